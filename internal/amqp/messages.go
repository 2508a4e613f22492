package amqp

import (
	"encoding/json"
	"time"
)

// NotificationMessage asks the worker to deliver one outbox notification.
// It carries only identifiers; the worker fetches the full data from the
// database so the email always reflects current state.
type NotificationMessage struct {
	NotificationID int64     `json:"notification_id"`
	Kind           string    `json:"kind"`
	OrderID        int64     `json:"order_id,omitempty"`
	CustomerID     int64     `json:"customer_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewOrderCreatedMessage(notificationID, orderID int64) *NotificationMessage {
	return &NotificationMessage{
		NotificationID: notificationID,
		Kind:           "order_created",
		OrderID:        orderID,
		Timestamp:      time.Now(),
	}
}

func NewCustomerCreatedMessage(notificationID, customerID int64) *NotificationMessage {
	return &NotificationMessage{
		NotificationID: notificationID,
		Kind:           "customer_created",
		CustomerID:     customerID,
		Timestamp:      time.Now(),
	}
}

func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
