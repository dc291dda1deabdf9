package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EmailJob renders and sends transactional emails.
type EmailJob struct {
	mailer    Mailer
	shopInbox string
	printer   *message.Printer
	logger    *slog.Logger
}

// NewEmailJob constructs an EmailJob.
func NewEmailJob(mailer Mailer, shopInbox string, logger *slog.Logger) *EmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailJob{
		mailer:    mailer,
		shopInbox: shopInbox,
		printer:   message.NewPrinter(language.BritishEnglish),
		logger:    logger,
	}
}

// HandleOrderConfirmation processes TaskOrderConfirmation tasks.
func (j *EmailJob) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var payload OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode order confirmation: %v: %w", err, asynq.SkipRetry)
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", payload.CustomerName)
	fmt.Fprintf(&body, "Thank you for your order %s.\n\n", payload.OrderNumber)
	for _, line := range payload.Lines {
		fmt.Fprintf(&body, "  %d x %s  %s\n", line.Quantity, line.Name, j.Money(line.LineTotalCents, payload.Currency))
	}
	fmt.Fprintf(&body, "\nTotal: %s\n", j.Money(payload.TotalCents, payload.Currency))
	if !payload.DeliveryDate.IsZero() {
		fmt.Fprintf(&body, "Delivery date: %s\n", payload.DeliveryDate.Format("Monday 2 January 2006"))
	}
	body.WriteString("\nWe will be in touch once your order is in the oven.\n\nLarkspur Bakery\n")

	err := j.mailer.Send(ctx, Message{
		To:      []string{payload.CustomerEmail},
		Subject: "Your Larkspur order " + payload.OrderNumber,
		Body:    body.String(),
	})
	if err != nil {
		j.logger.Warn("order confirmation email", slog.String("order", payload.OrderNumber), slog.Any("error", err))
		return err
	}
	j.logger.Info("order confirmation sent", slog.String("order", payload.OrderNumber))
	return nil
}

// HandleEnquiryNotification processes TaskEnquiryNotification tasks.
func (j *EmailJob) HandleEnquiryNotification(ctx context.Context, t *asynq.Task) error {
	var payload EnquiryNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode enquiry notification: %v: %w", err, asynq.SkipRetry)
	}
	if j.shopInbox == "" {
		return fmt.Errorf("enquiry notification: shop inbox not configured: %w", asynq.SkipRetry)
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Enquiry #%d from %s <%s>\n", payload.EnquiryID, payload.Name, payload.Email)
	if payload.Phone != "" {
		fmt.Fprintf(&body, "Phone: %s\n", payload.Phone)
	}
	fmt.Fprintf(&body, "Event date: %s\n", payload.EventDate.Format("2006-01-02"))
	fmt.Fprintf(&body, "Servings: %d\n\n", payload.Servings)
	body.WriteString(payload.Message)
	body.WriteString("\n")

	return j.mailer.Send(ctx, Message{
		To:      []string{j.shopInbox},
		ReplyTo: payload.Email,
		Subject: fmt.Sprintf("Cake enquiry from %s (%d servings)", payload.Name, payload.Servings),
		Body:    body.String(),
	})
}

// Money formats minor units in the given ISO currency, e.g. "GBP 12.50".
func (j *EmailJob) Money(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %d.%02d", code, minor/100, minor%100)
	}
	scale, _ := currency.Standard.Rounding(unit)
	amount := float64(minor)
	for i := 0; i < scale; i++ {
		amount /= 10
	}
	return j.printer.Sprint(unit.Amount(amount))
}
