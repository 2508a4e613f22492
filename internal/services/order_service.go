package services

import (
	"context"
	"fmt"
	"log/slog"

	"orderdesk/internal/amqp"
	"orderdesk/internal/core"
	"orderdesk/internal/storage"
)

// OrderService orchestrates order and customer creation across SQLite and
// the notification queue.
type OrderService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewOrderService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *OrderService {
	return &OrderService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateOrder validates and saves an order placed by the staff member
// identified by repEmail, then queues the order-created email. A queue
// failure never fails the request; the pending scan recovers it.
func (s *OrderService) CreateOrder(ctx context.Context, repEmail, repName string, o core.Order) (int64, error) {
	if repEmail == "" {
		return 0, core.ErrNoSalesRepEmail
	}
	if o.Status == "" {
		o.Status = core.StatusProcessing
	}
	if err := o.Validate(); err != nil {
		return 0, err
	}

	repID, err := s.storage.UpsertSalesRep(ctx, repEmail, repName)
	if err != nil {
		return 0, fmt.Errorf("assign sales rep: %w", err)
	}
	o.SalesRepID = repID

	id, err := s.storage.CreateOrder(ctx, o)
	if err != nil {
		return 0, fmt.Errorf("save order: %w", err)
	}

	notificationID, err := s.storage.RecordOrderNotification(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record order notification", "order_id", id, "error", err)
		return id, nil // order is saved; email bookkeeping is best-effort
	}

	if err := s.publish(ctx, amqp.NewOrderCreatedMessage(notificationID, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish order notification",
			"order_id", id, "notification_id", notificationID, "error", err)
	}

	return id, nil
}

// CreateCustomer saves a customer and queues the welcome email.
func (s *OrderService) CreateCustomer(ctx context.Context, c core.Customer) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	id, err := s.storage.CreateCustomer(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("save customer: %w", err)
	}

	notificationID, err := s.storage.RecordCustomerNotification(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record customer notification", "customer_id", id, "error", err)
		return id, nil
	}

	if err := s.publish(ctx, amqp.NewCustomerCreatedMessage(notificationID, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish customer notification",
			"customer_id", id, "notification_id", notificationID, "error", err)
	}

	return id, nil
}

func (s *OrderService) publish(ctx context.Context, msg *amqp.NotificationMessage) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, notification stays pending",
			"notification_id", msg.NotificationID)
		return nil
	}
	return s.amqpClient.PublishNotification(ctx, msg)
}

// Close closes both storage and AMQP connections.
func (s *OrderService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close order service: %v", errs)
	}

	return nil
}
