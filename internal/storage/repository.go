package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"orderdesk/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Products ---

func (r *SQLiteRepository) CreateProduct(ctx context.Context, p core.Product) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, sku, price_pence) VALUES (?, ?, ?)`,
		p.Name, p.SKU, p.Price.Pence)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("product id: %w", err)
	}
	slog.InfoContext(ctx, "Product saved", "id", id, "name", p.Name, "sku", p.SKU)
	return id, nil
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	var p core.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, sku, price_pence FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Price.Pence)
	if err != nil {
		return core.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// ListProducts returns products ordered by name, optionally filtered by a
// name/sku substring.
func (r *SQLiteRepository) ListProducts(ctx context.Context, search string) ([]core.Product, error) {
	query := `SELECT id, name, sku, price_pence FROM products`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ? OR sku LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Price.Pence); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// --- Customers ---

func (r *SQLiteRepository) CreateCustomer(ctx context.Context, c core.Customer) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (name, email, phone, mobile, address, city, county, postcode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Phone, c.Mobile, c.Address, c.City, c.County, c.Postcode)
	if err != nil {
		return 0, fmt.Errorf("create customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("customer id: %w", err)
	}
	slog.InfoContext(ctx, "Customer saved", "id", id, "name", c.Name)
	return id, nil
}

func (r *SQLiteRepository) GetCustomer(ctx context.Context, id int64) (core.Customer, error) {
	var c core.Customer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, mobile, address, city, county, postcode
		 FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Mobile, &c.Address, &c.City, &c.County, &c.Postcode)
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCustomers(ctx context.Context, search string) ([]core.Customer, error) {
	query := `SELECT id, name, email, phone, mobile, address, city, county, postcode FROM customers`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ? OR phone LIKE ? OR email LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []core.Customer
	for rows.Next() {
		var c core.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Mobile, &c.Address, &c.City, &c.County, &c.Postcode); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// --- Sales reps ---

// UpsertSalesRep inserts or reuses the rep record for an email address.
func (r *SQLiteRepository) UpsertSalesRep(ctx context.Context, email, fullName string) (int64, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sales_reps (email, full_name) VALUES (?, ?)
		 ON CONFLICT(email) DO UPDATE SET full_name = excluded.full_name
		 WHERE excluded.full_name != ''`,
		email, fullName)
	if err != nil {
		return 0, fmt.Errorf("upsert sales rep: %w", err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT id FROM sales_reps WHERE email = ?`, email).Scan(&id); err != nil {
		return 0, fmt.Errorf("sales rep id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetSalesRep(ctx context.Context, id int64) (core.SalesRep, error) {
	var rep core.SalesRep
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, full_name FROM sales_reps WHERE id = ?`, id).
		Scan(&rep.ID, &rep.Email, &rep.FullName)
	if err != nil {
		return core.SalesRep{}, fmt.Errorf("get sales rep %d: %w", id, err)
	}
	return rep, nil
}

// --- Orders ---

func (r *SQLiteRepository) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (status, notes, customer_id, sales_rep_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(o.Status), o.Notes, o.CustomerID, o.SalesRepID, createdAt.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}

	for _, l := range o.Lines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, product_id, quantity) VALUES (?, ?, ?)`,
			id, l.ProductID, l.Quantity); err != nil {
			return 0, fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit order: %w", err)
	}

	slog.InfoContext(ctx, "Order saved", "id", id, "customer_id", o.CustomerID, "lines", len(o.Lines))
	return id, nil
}

func (r *SQLiteRepository) GetOrder(ctx context.Context, id int64) (core.Order, error) {
	var o core.Order
	var status, createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, notes, customer_id, sales_rep_id, created_at FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &status, &o.Notes, &o.CustomerID, &o.SalesRepID, &createdAt)
	if err != nil {
		return core.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	o.Status = core.OrderStatus(status)
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		o.CreatedAt = t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity FROM order_lines WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return core.Order{}, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l core.OrderLine
		if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
			return core.Order{}, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

// OrderSummary is one row of the staff order list.
type OrderSummary struct {
	ID            int64
	Status        core.OrderStatus
	SalesRepEmail string
	CustomerName  string
	CreatedAt     time.Time
}

// OrderFilter narrows ListOrders. RepEmail restricts non-superusers to
// their own orders; Search matches order id or customer email.
type OrderFilter struct {
	Status   core.OrderStatus
	RepEmail string
	Search   string
}

func (r *SQLiteRepository) ListOrders(ctx context.Context, f OrderFilter) ([]OrderSummary, error) {
	query := `SELECT o.id, o.status, s.email, c.name, o.created_at
		FROM orders o
		JOIN sales_reps s ON s.id = o.sales_rep_id
		JOIN customers c ON c.id = o.customer_id
		WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		query += ` AND o.status = ?`
		args = append(args, string(f.Status))
	}
	if f.RepEmail != "" {
		query += ` AND s.email = ?`
		args = append(args, f.RepEmail)
	}
	if f.Search != "" {
		query += ` AND (CAST(o.id AS TEXT) = ? OR c.email LIKE ?)`
		args = append(args, f.Search, "%"+f.Search+"%")
	}
	query += ` ORDER BY o.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []OrderSummary
	for rows.Next() {
		var s OrderSummary
		var status, createdAt string
		if err := rows.Scan(&s.ID, &status, &s.SalesRepEmail, &s.CustomerName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan order summary: %w", err)
		}
		s.Status = core.OrderStatus(status)
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			s.CreatedAt = t
		}
		orders = append(orders, s)
	}
	return orders, rows.Err()
}

func (r *SQLiteRepository) UpdateOrderStatus(ctx context.Context, id int64, status core.OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update order status: order %d: %w", id, sql.ErrNoRows)
	}
	slog.InfoContext(ctx, "Order status updated", "id", id, "status", string(status))
	return nil
}

// --- Order email data ---

// OrderEmailLine is one product row of an order-created email.
type OrderEmailLine struct {
	Name     string
	Quantity int
	Amount   core.Money
}

// OrderEmailData is everything the notification worker needs to render an
// order-created email.
type OrderEmailData struct {
	OrderID  int64
	Notes    string
	Customer core.Customer
	Rep      core.SalesRep
	Lines    []OrderEmailLine
	Total    core.Money
}

func (r *SQLiteRepository) GetOrderEmailData(ctx context.Context, orderID int64) (OrderEmailData, error) {
	data := OrderEmailData{OrderID: orderID}

	var customerID, repID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT notes, customer_id, sales_rep_id FROM orders WHERE id = ?`, orderID).
		Scan(&data.Notes, &customerID, &repID)
	if err != nil {
		return data, fmt.Errorf("get order %d: %w", orderID, err)
	}

	if data.Customer, err = r.GetCustomer(ctx, customerID); err != nil {
		return data, err
	}
	if data.Rep, err = r.GetSalesRep(ctx, repID); err != nil {
		return data, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT p.name, l.quantity, l.quantity * p.price_pence
		 FROM order_lines l
		 JOIN products p ON p.id = l.product_id
		 WHERE l.order_id = ?
		 ORDER BY l.id`, orderID)
	if err != nil {
		return data, fmt.Errorf("get order email lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l OrderEmailLine
		if err := rows.Scan(&l.Name, &l.Quantity, &l.Amount.Pence); err != nil {
			return data, fmt.Errorf("scan order email line: %w", err)
		}
		data.Lines = append(data.Lines, l)
		data.Total = data.Total.Add(l.Amount)
	}
	return data, rows.Err()
}

// --- Dispatched-revenue aggregation ---

// DispatchedRevenueBySalesRep returns flat (month, amount, rep email) rows
// for dispatched orders created in the given year, ordered by email then
// month. Line amounts are quantity times the product's current price.
func (r *SQLiteRepository) DispatchedRevenueBySalesRep(ctx context.Context, year int) ([]core.RevenueRow, error) {
	return r.dispatchedRevenue(ctx, year, `s.email`, `JOIN sales_reps s ON s.id = o.sales_rep_id`)
}

// DispatchedRevenueByCustomer groups by customer name, not id. Two
// customers sharing a name merge in the report.
func (r *SQLiteRepository) DispatchedRevenueByCustomer(ctx context.Context, year int) ([]core.RevenueRow, error) {
	return r.dispatchedRevenue(ctx, year, `c.name`, `JOIN customers c ON c.id = o.customer_id`)
}

func (r *SQLiteRepository) dispatchedRevenue(ctx context.Context, year int, keyExpr, join string) ([]core.RevenueRow, error) {
	query := `SELECT CAST(strftime('%m', o.created_at) AS INTEGER) AS month,
		SUM(l.quantity * p.price_pence) AS amount_pence,
		` + keyExpr + ` AS grouping_key
		FROM orders o
		JOIN order_lines l ON l.order_id = o.id
		JOIN products p ON p.id = l.product_id
		` + join + `
		WHERE o.status = ? AND CAST(strftime('%Y', o.created_at) AS INTEGER) = ?
		GROUP BY grouping_key, month
		ORDER BY grouping_key, month`

	rows, err := r.db.QueryContext(ctx, query, string(core.StatusDispatched), year)
	if err != nil {
		return nil, fmt.Errorf("dispatched revenue query: %w", err)
	}
	defer rows.Close()

	var out []core.RevenueRow
	for rows.Next() {
		var row core.RevenueRow
		if err := rows.Scan(&row.Month, &row.Amount.Pence, &row.Key); err != nil {
			return nil, fmt.Errorf("scan revenue row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// --- Notification outbox ---

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationError   = "error"

	KindOrderCreated    = "order_created"
	KindCustomerCreated = "customer_created"
)

// Notification is one outbox row awaiting (or recording) email delivery.
type Notification struct {
	ID         int64
	Kind       string
	OrderID    sql.NullInt64
	CustomerID sql.NullInt64
	Status     string
}

func (r *SQLiteRepository) RecordOrderNotification(ctx context.Context, orderID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO order_notifications (kind, order_id) VALUES (?, ?)`,
		KindOrderCreated, orderID)
	if err != nil {
		return 0, fmt.Errorf("record order notification: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) RecordCustomerNotification(ctx context.Context, customerID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO order_notifications (kind, customer_id) VALUES (?, ?)`,
		KindCustomerCreated, customerID)
	if err != nil {
		return 0, fmt.Errorf("record customer notification: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) MarkNotificationSent(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE order_notifications SET status = ?, sent_at = CURRENT_TIMESTAMP WHERE id = ?`,
		NotificationSent, id); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkNotificationError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE order_notifications SET status = ? WHERE id = ?`,
		NotificationError, id); err != nil {
		return fmt.Errorf("mark notification error: %w", err)
	}
	slog.WarnContext(ctx, "Notification marked with delivery error", "id", id)
	return nil
}

// PendingNotifications returns outbox rows not yet delivered, oldest
// first. The worker re-scans these periodically in case a queue message
// was lost.
func (r *SQLiteRepository) PendingNotifications(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, order_id, customer_id, status
		 FROM order_notifications WHERE status = ? ORDER BY id LIMIT ?`,
		NotificationPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Kind, &n.OrderID, &n.CustomerID, &n.Status); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
