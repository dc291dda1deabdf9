// Package enquiries accepts custom cake enquiries and forwards them to the
// shop inbox.
package enquiries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larkspur-bakery/storefront/internal/platform/validate"
	"github.com/larkspur-bakery/storefront/jobs"
)

// ErrInvalidEnquiry wraps payload problems.
var ErrInvalidEnquiry = errors.New("invalid enquiry")

// Request is the payload of POST /api/enquiries.
type Request struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"omitempty,max=32"`
	EventDate string `json:"event_date" validate:"required,datetime=2006-01-02"`
	Servings  int    `json:"servings" validate:"required,min=1,max=500"`
	Message   string `json:"message" validate:"required,min=10,max=2000"`
}

// Enquiry is a stored enquiry.
type Enquiry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	EventDate time.Time `json:"event_date"`
	Servings  int       `json:"servings"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists enquiries.
type Repository interface {
	Create(ctx context.Context, e *Enquiry) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts the enquiry and fills in its ID and creation time.
func (r *PGRepository) Create(ctx context.Context, e *Enquiry) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO enquiries (name, email, phone, event_date, servings, message)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		e.Name, e.Email, e.Phone, e.EventDate, e.Servings, e.Message,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("enquiries: insert: %w", err)
	}
	return nil
}

// Notifier schedules the shop inbox email.
type Notifier interface {
	EnqueueEnquiryNotification(ctx context.Context, payload jobs.EnquiryNotificationPayload) error
}

// Service validates and records enquiries.
type Service struct {
	repo      Repository
	notifier  Notifier
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, notifier: notifier, logger: logger, validator: validate.New(), now: time.Now}
}

// Submit stores the enquiry and queues a notification for the kitchen.
func (s *Service) Submit(ctx context.Context, req Request) (Enquiry, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return Enquiry{}, fmt.Errorf("%w: %s", ErrInvalidEnquiry, validate.Summary(err))
	}
	eventDate, err := time.Parse("2006-01-02", req.EventDate)
	if err != nil {
		return Enquiry{}, fmt.Errorf("%w: event_date: %v", ErrInvalidEnquiry, err)
	}
	if !eventDate.After(s.now().UTC().Truncate(24 * time.Hour)) {
		return Enquiry{}, fmt.Errorf("%w: event_date must be in the future", ErrInvalidEnquiry)
	}

	enquiry := Enquiry{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     strings.TrimSpace(req.Phone),
		EventDate: eventDate,
		Servings:  req.Servings,
		Message:   req.Message,
	}
	if err := s.repo.Create(ctx, &enquiry); err != nil {
		return Enquiry{}, err
	}

	err = s.notifier.EnqueueEnquiryNotification(ctx, jobs.EnquiryNotificationPayload{
		EnquiryID: enquiry.ID,
		Name:      enquiry.Name,
		Email:     enquiry.Email,
		Phone:     enquiry.Phone,
		EventDate: enquiry.EventDate,
		Servings:  enquiry.Servings,
		Message:   enquiry.Message,
	})
	if err != nil {
		s.logger.Error("enqueue enquiry notification", slog.Int64("enquiry_id", enquiry.ID), slog.Any("error", err))
	}
	return enquiry, nil
}
