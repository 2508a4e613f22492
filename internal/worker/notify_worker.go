package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"orderdesk/internal/amqp"
	"orderdesk/internal/mail"
	"orderdesk/internal/storage"
)

// Config carries the delivery settings the worker needs.
type Config struct {
	FromEmail      string
	OrderCreatedTo []string
	OrderCreatedCc []string
	BaseURL        string
	BatchSize      int
}

// NotifyWorker consumes notification messages, renders the matching email
// template from current database state, and delivers it.
type NotifyWorker struct {
	storage *storage.SQLiteRepository
	sender  mail.Sender
	cfg     Config
}

func NewNotifyWorker(storage *storage.SQLiteRepository, sender mail.Sender, cfg Config) *NotifyWorker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 10
	}
	return &NotifyWorker{
		storage: storage,
		sender:  sender,
		cfg:     cfg,
	}
}

// HandleMessage processes a single notification message from AMQP.
// Returning an error requeues the message.
func (w *NotifyWorker) HandleMessage(ctx context.Context, msg *amqp.NotificationMessage) error {
	switch msg.Kind {
	case storage.KindOrderCreated:
		return w.sendOrderCreated(ctx, msg.NotificationID, msg.OrderID)
	case storage.KindCustomerCreated:
		return w.sendWelcome(ctx, msg.NotificationID, msg.CustomerID)
	default:
		slog.WarnContext(ctx, "Unknown notification kind, dropping",
			"kind", msg.Kind, "notification_id", msg.NotificationID)
		return nil
	}
}

func (w *NotifyWorker) sendOrderCreated(ctx context.Context, notificationID, orderID int64) error {
	data, err := w.storage.GetOrderEmailData(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order email data: %w", err)
	}

	products := ""
	for _, l := range data.Lines {
		products += fmt.Sprintf("  %s x %d = %s\n", l.Name, l.Quantity, l.Amount.GBP())
	}

	values := map[string]string{
		"order_url":        w.cfg.BaseURL + "/orders/" + strconv.FormatInt(data.OrderID, 10),
		"order_id":         strconv.FormatInt(data.OrderID, 10),
		"order_notes":      data.Notes,
		"products":         products,
		"customer_address": data.Customer.FullAddress(),
		"customer_phone":   data.Customer.Phone,
		"customer_mobile":  data.Customer.Mobile,
		"customer_email":   data.Customer.Email,
		"total_amount":     data.Total.GBP() + " (EX VAT)",
		"sales_rep":        repDisplayName(data.Rep.FullName, data.Rep.Email),
	}

	to := append([]string{}, w.cfg.OrderCreatedTo...)
	if data.Rep.Email != "" {
		to = append(to, data.Rep.Email)
	}

	return w.renderAndSend(ctx, notificationID, mail.OrderCreated, values, to, w.cfg.OrderCreatedCc)
}

func (w *NotifyWorker) sendWelcome(ctx context.Context, notificationID, customerID int64) error {
	customer, err := w.storage.GetCustomer(ctx, customerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	values := map[string]string{"customer_name": customer.Name}
	var to []string
	if customer.Email != "" {
		to = append(to, customer.Email)
	}

	return w.renderAndSend(ctx, notificationID, mail.Welcome, values, to, nil)
}

func (w *NotifyWorker) renderAndSend(ctx context.Context, notificationID int64, tmpl mail.Template, values map[string]string, to, cc []string) error {
	if len(to) == 0 {
		// A defined no-op, not an error
		slog.InfoContext(ctx, "Not sending email because no destination emails",
			"notification_id", notificationID)
		return w.storage.MarkNotificationSent(ctx, notificationID)
	}

	subject, body := mail.RenderTemplate(tmpl, values)
	msg := mail.Message{
		From:    w.cfg.FromEmail,
		To:      to,
		Cc:      cc,
		Subject: subject,
		Body:    body,
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		if markErr := w.storage.MarkNotificationError(ctx, notificationID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark notification error",
				"notification_id", notificationID, "error", markErr)
		}
		return fmt.Errorf("send email: %w", err)
	}

	if err := w.storage.MarkNotificationSent(ctx, notificationID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark notification sent",
			"notification_id", notificationID, "error", err)
		// The email went out; don't requeue
	}

	slog.InfoContext(ctx, "Notification email delivered",
		"notification_id", notificationID, "subject", subject, "recipients", len(to))
	return nil
}

// ProcessPending delivers outbox rows whose queue message was lost. This
// is a backup mechanism; normal delivery goes through AMQP.
func (w *NotifyWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingNotifications(ctx, w.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("get pending notifications: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending notifications", "count", len(pending))

	for _, n := range pending {
		var err error
		switch {
		case n.Kind == storage.KindOrderCreated && n.OrderID.Valid:
			err = w.sendOrderCreated(ctx, n.ID, n.OrderID.Int64)
		case n.Kind == storage.KindCustomerCreated && n.CustomerID.Valid:
			err = w.sendWelcome(ctx, n.ID, n.CustomerID.Int64)
		default:
			slog.WarnContext(ctx, "Pending notification with no target, marking error",
				"id", n.ID, "kind", n.Kind)
			err = w.storage.MarkNotificationError(ctx, n.ID)
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to deliver pending notification",
				"id", n.ID, "kind", n.Kind, "error", err)
		}
	}

	return nil
}

func repDisplayName(fullName, email string) string {
	if fullName != "" {
		return fullName
	}
	return email
}
