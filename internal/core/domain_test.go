package core

import (
	"errors"
	"testing"
)

func TestProductValidate(t *testing.T) {
	ok := Product{Name: "Widget", SKU: "W-1", Price: Money{Pence: 199}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid product rejected: %v", err)
	}
	cases := []struct {
		name string
		p    Product
		want error
	}{
		{"no name", Product{SKU: "W-1", Price: Money{Pence: 1}}, ErrEmptyName},
		{"no sku", Product{Name: "Widget", Price: Money{Pence: 1}}, ErrEmptySKU},
		{"zero price", Product{Name: "Widget", SKU: "W-1"}, ErrInvalidPrice},
	}
	for _, tc := range cases {
		if err := tc.p.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestCustomerValidatePhone(t *testing.T) {
	cases := []struct {
		phone string
		ok    bool
	}{
		{"", true},
		{"+447911123456", true},
		{"02079460000", true},
		{"12345", false},
		{"not-a-phone", false},
		{"+4479111234567890123", false},
	}
	for _, tc := range cases {
		c := Customer{Name: "Acme", Phone: tc.phone}
		err := c.Validate()
		if tc.ok && err != nil {
			t.Errorf("phone %q rejected: %v", tc.phone, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("phone %q accepted", tc.phone)
		}
	}
}

func TestOrderValidate(t *testing.T) {
	ok := Order{Status: StatusProcessing, Lines: []OrderLine{{ProductID: 1, Quantity: 2}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid order rejected: %v", err)
	}
	cases := []struct {
		name string
		o    Order
		want error
	}{
		{"no lines", Order{Status: StatusProcessing}, ErrNoOrderLines},
		{"bad status", Order{Status: "shipped", Lines: []OrderLine{{ProductID: 1, Quantity: 1}}}, ErrInvalidStatus},
		{"zero quantity", Order{Status: StatusDispatched, Lines: []OrderLine{{ProductID: 1}}}, ErrInvalidQuantity},
		{"duplicate product", Order{Status: StatusProcessing, Lines: []OrderLine{
			{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2},
		}}, ErrDuplicateLine},
	}
	for _, tc := range cases {
		if err := tc.o.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestStatusLabels(t *testing.T) {
	if got := StatusAwaiting.Label(); got != "Awaiting customer response" {
		t.Fatalf("label = %q", got)
	}
	for _, s := range Statuses() {
		if !s.Valid() {
			t.Errorf("status %q reported invalid", s)
		}
	}
	if OrderStatus("shipped").Valid() {
		t.Error("unknown status reported valid")
	}
}
