package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	StatusProcessing OrderStatus = "processing"
	StatusAwaiting   OrderStatus = "awaiting"
	StatusDispatched OrderStatus = "dispatched"
)

type (
	OrderStatus string

	Product struct {
		ID    int64
		Name  string
		SKU   string
		Price Money
	}

	Customer struct {
		ID       int64
		Name     string
		Email    string
		Phone    string
		Mobile   string
		Address  string
		City     string
		County   string
		Postcode string
	}

	// SalesRep is an application user referenced by orders; only the email
	// and display name matter for reporting.
	SalesRep struct {
		ID       int64
		Email    string
		FullName string
	}

	OrderLine struct {
		ProductID int64
		Quantity  int
	}

	Order struct {
		ID         int64
		Status     OrderStatus
		Notes      string
		CustomerID int64
		SalesRepID int64
		CreatedAt  time.Time
		Lines      []OrderLine
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrEmptySKU        = errors.New("empty sku")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidPhone    = errors.New("phone number must be entered in the format '+999999999', up to 15 digits")
	ErrNoSalesRepEmail = errors.New("you don't have an email which is mandatory to add orders")
	ErrNoOrderLines    = errors.New("at least one item required")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrDuplicateLine   = errors.New("a product appears more than once on the order")
)

var phoneRe = regexp.MustCompile(`^\+?1?\d{8,15}$`)

// Label returns the human-readable form of a status value.
func (s OrderStatus) Label() string {
	switch s {
	case StatusProcessing:
		return "Processing"
	case StatusAwaiting:
		return "Awaiting customer response"
	case StatusDispatched:
		return "Dispatched"
	}
	return string(s)
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusAwaiting, StatusDispatched:
		return true
	}
	return false
}

// Statuses lists the valid order statuses in display order.
func Statuses() []OrderStatus {
	return []OrderStatus{StatusProcessing, StatusAwaiting, StatusDispatched}
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.SKU) == "" {
		return ErrEmptySKU
	}
	if p.Price.Pence <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Phone != "" && !phoneRe.MatchString(c.Phone) {
		return ErrInvalidPhone
	}
	if c.Mobile != "" && !phoneRe.MatchString(c.Mobile) {
		return ErrInvalidPhone
	}
	return nil
}

// FullAddress joins the postal fields the way order emails present them.
func (c Customer) FullAddress() string {
	return c.Address + ", " + c.City + ", " + c.County + ", " + c.Postcode
}

func (o Order) Validate() error {
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	if len(o.Lines) == 0 {
		return ErrNoOrderLines
	}
	seen := make(map[int64]bool, len(o.Lines))
	for _, l := range o.Lines {
		if l.Quantity < 1 {
			return ErrInvalidQuantity
		}
		if seen[l.ProductID] {
			return ErrDuplicateLine
		}
		seen[l.ProductID] = true
	}
	return nil
}
