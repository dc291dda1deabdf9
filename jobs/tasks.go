package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrderConfirmation emails the customer after checkout.
	TaskOrderConfirmation = "email:order_confirmation"
	// TaskEnquiryNotification forwards a custom cake enquiry to the shop inbox.
	TaskEnquiryNotification = "email:enquiry_notification"
)

// OrderLine is a single line of an order confirmation email.
type OrderLine struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// OrderConfirmationPayload carries everything needed to render the email.
type OrderConfirmationPayload struct {
	OrderNumber   string      `json:"order_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email"`
	DeliveryDate  time.Time   `json:"delivery_date"`
	Currency      string      `json:"currency"`
	TotalCents    int64       `json:"total_cents"`
	Lines         []OrderLine `json:"lines"`
}

// EnquiryNotificationPayload describes a custom cake enquiry.
type EnquiryNotificationPayload struct {
	EnquiryID int64     `json:"enquiry_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	EventDate time.Time `json:"event_date"`
	Servings  int       `json:"servings"`
	Message   string    `json:"message"`
}

// NewOrderConfirmationTask constructs an Asynq task. The order number is
// used as the task ID so a retried checkout never mails twice.
func NewOrderConfirmationTask(payload OrderConfirmationPayload) (*asynq.Task, error) {
	if payload.OrderNumber == "" || payload.CustomerEmail == "" {
		return nil, fmt.Errorf("order confirmation: order number and email required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderConfirmation, data,
		asynq.TaskID("order-confirmation:"+payload.OrderNumber),
		asynq.MaxRetry(8),
		asynq.Queue(QueueDefault),
	), nil
}

// NewEnquiryNotificationTask constructs an Asynq task.
func NewEnquiryNotificationTask(payload EnquiryNotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEnquiryNotification, data,
		asynq.MaxRetry(5),
		asynq.Queue(QueueDefault),
	), nil
}
