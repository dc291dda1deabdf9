package enquiries_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larkspur-bakery/storefront/internal/enquiries"
	"github.com/larkspur-bakery/storefront/jobs"
	_ "github.com/larkspur-bakery/storefront/testing"
)

type memRepo struct {
	stored []enquiries.Enquiry
	err    error
}

func (m *memRepo) Create(ctx context.Context, e *enquiries.Enquiry) error {
	if m.err != nil {
		return m.err
	}
	e.ID = int64(len(m.stored) + 1)
	m.stored = append(m.stored, *e)
	return nil
}

type recordingNotifier struct {
	payloads []jobs.EnquiryNotificationPayload
	err      error
}

func (r *recordingNotifier) EnqueueEnquiryNotification(ctx context.Context, p jobs.EnquiryNotificationPayload) error {
	r.payloads = append(r.payloads, p)
	return r.err
}

func validRequest() enquiries.Request {
	return enquiries.Request{
		Name:      "Grace Hopper",
		Email:     " Grace@Example.com ",
		EventDate: "2099-06-01",
		Servings:  40,
		Message:   "A three tier lemon and elderflower wedding cake.",
	}
}

func TestSubmitStoresAndNotifies(t *testing.T) {
	repo, notifier := &memRepo{}, &recordingNotifier{}
	svc := enquiries.NewService(repo, notifier, nil)

	enquiry, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(1), enquiry.ID)
	assert.Equal(t, "grace@example.com", enquiry.Email)
	require.Len(t, notifier.payloads, 1)
	assert.Equal(t, int64(1), notifier.payloads[0].EnquiryID)
	assert.Equal(t, 40, notifier.payloads[0].Servings)
}

func TestSubmitValidation(t *testing.T) {
	cases := map[string]func(*enquiries.Request){
		"no name":        func(r *enquiries.Request) { r.Name = "  " },
		"bad email":      func(r *enquiries.Request) { r.Email = "grace" },
		"zero servings":  func(r *enquiries.Request) { r.Servings = 0 },
		"huge party":     func(r *enquiries.Request) { r.Servings = 501 },
		"short message":  func(r *enquiries.Request) { r.Message = "cake pls" },
		"long message":   func(r *enquiries.Request) { r.Message = strings.Repeat("a", 2001) },
		"past event":     func(r *enquiries.Request) { r.EventDate = "2000-01-01" },
		"malformed date": func(r *enquiries.Request) { r.EventDate = "next june" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo, notifier := &memRepo{}, &recordingNotifier{}
			req := validRequest()
			mutate(&req)
			_, err := enquiries.NewService(repo, notifier, nil).Submit(context.Background(), req)
			assert.ErrorIs(t, err, enquiries.ErrInvalidEnquiry)
			assert.Empty(t, repo.stored)
			assert.Empty(t, notifier.payloads)
		})
	}
}

func TestSubmitToleratesEnqueueFailure(t *testing.T) {
	repo := &memRepo{}
	svc := enquiries.NewService(repo, &recordingNotifier{err: errors.New("redis down")}, nil)
	_, err := svc.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Len(t, repo.stored, 1)
}

func newRouter(repo *memRepo) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/enquiries", enquiries.NewHandler(nil, enquiries.NewService(repo, &recordingNotifier{}, nil)).MountRoutes)
	return r
}

func TestHandlerAcceptsJSONAndForms(t *testing.T) {
	repo := &memRepo{}
	router := newRouter(repo)

	body := `{"name":"Grace","email":"grace@example.com","event_date":"2099-06-01","servings":12,"message":"Birthday cake for twelve please."}`
	req := httptest.NewRequest(http.MethodPost, "/api/enquiries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":1,"status":"received"}`, rec.Body.String())

	form := url.Values{
		"name":       {"Ada"},
		"email":      {"ada@example.com"},
		"event_date": {"2099-07-01"},
		"servings":   {"8"},
		"message":    {"Chocolate cake with raspberries."},
		"csrf-token": {"ignored-here"},
	}
	req = httptest.NewRequest(http.MethodPost, "/api/enquiries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, repo.stored, 2)
	assert.Equal(t, 8, repo.stored[1].Servings)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newRouter(&memRepo{})

	form := url.Values{"servings": {"lots"}}
	req := httptest.NewRequest(http.MethodPost, "/api/enquiries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/enquiries", strings.NewReader(`{"servings":3}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Validation Failed")
}

func TestHandlerSurfacesStorageFailure(t *testing.T) {
	router := newRouter(&memRepo{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodPost, "/api/enquiries", strings.NewReader(`{"name":"Grace","email":"grace@example.com","event_date":"2099-06-01","servings":12,"message":"Birthday cake for twelve please."}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}
