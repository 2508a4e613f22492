package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"orderdesk/internal/core"
	"orderdesk/internal/storage"
)

func newService(t *testing.T) (*OrderService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "orderdesk.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	// nil AMQP client: publish is skipped, the outbox row stays pending
	return NewOrderService(repo, nil), repo
}

func TestCreateOrderRequiresRepEmail(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateOrder(context.Background(), "", "Nobody", core.Order{
		Lines: []core.OrderLine{{ProductID: 1, Quantity: 1}},
	})
	if !errors.Is(err, core.ErrNoSalesRepEmail) {
		t.Fatalf("got %v, want ErrNoSalesRepEmail", err)
	}
}

func TestCreateOrderRequiresLines(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateOrder(context.Background(), "rep@example.test", "", core.Order{})
	if !errors.Is(err, core.ErrNoOrderLines) {
		t.Fatalf("got %v, want ErrNoOrderLines", err)
	}
}

func TestCreateOrderRecordsPendingNotification(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	productID, err := repo.CreateProduct(ctx, core.Product{Name: "Widget", SKU: "W-1", Price: core.Money{Pence: 500}})
	if err != nil {
		t.Fatal(err)
	}
	customerID, err := repo.CreateCustomer(ctx, core.Customer{Name: "Acme"})
	if err != nil {
		t.Fatal(err)
	}

	orderID, err := svc.CreateOrder(ctx, "rep@example.test", "Rep Name", core.Order{
		CustomerID: customerID,
		Lines:      []core.OrderLine{{ProductID: productID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	o, err := repo.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != core.StatusProcessing {
		t.Fatalf("status = %q, want default processing", o.Status)
	}

	pending, err := repo.PendingNotifications(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Kind != storage.KindOrderCreated {
		t.Fatalf("pending = %+v", pending)
	}
	if !pending[0].OrderID.Valid || pending[0].OrderID.Int64 != orderID {
		t.Fatalf("pending order id = %+v", pending[0].OrderID)
	}
}

func TestCreateCustomerRecordsWelcomeNotification(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	id, err := svc.CreateCustomer(ctx, core.Customer{Name: "Globex", Email: "hello@globex.test"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}

	pending, err := repo.PendingNotifications(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Kind != storage.KindCustomerCreated {
		t.Fatalf("pending = %+v", pending)
	}
	if !pending[0].CustomerID.Valid || pending[0].CustomerID.Int64 != id {
		t.Fatalf("pending customer id = %+v", pending[0].CustomerID)
	}
}

func TestCreateCustomerRejectsBadPhone(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CreateCustomer(context.Background(), core.Customer{Name: "Acme", Phone: "bad"})
	if !errors.Is(err, core.ErrInvalidPhone) {
		t.Fatalf("got %v, want ErrInvalidPhone", err)
	}
}

func TestCloseWithNilComponents(t *testing.T) {
	svc := &OrderService{}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close should not fail with nil components: %v", err)
	}
}
