// Package mail renders and delivers staff notification emails.
package mail

import (
	"context"
	"regexp"
)

// Template pairs a subject line and a plain-text body, both with
// {name}-style placeholders.
type Template struct {
	Subject string
	Body    string
}

// Message is a fully rendered email ready for a Sender.
type Message struct {
	From    string
	To      []string
	Cc      []string
	Subject string
	Body    string
}

// Sender delivers a rendered message. Implementations own their own
// retry and timeout semantics.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render substitutes {name} placeholders from values. A placeholder with
// no value resolves to the empty string; rendering never fails.
func Render(text string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := m[1 : len(m)-1]
		return values[name]
	})
}

// RenderTemplate renders both parts of a template with the same values.
func RenderTemplate(t Template, values map[string]string) (subject, body string) {
	return Render(t.Subject, values), Render(t.Body, values)
}

// OrderCreated announces a new wholesale order to the operations list and
// the sales rep who placed it.
var OrderCreated = Template{
	Subject: "Wholesale order placed {order_id} by {sales_rep}",
	Body: `A new order has been placed.

Order:    {order_url}
Notes:    {order_notes}

Products:
{products}

Total: {total_amount}

Customer
  Address: {customer_address}
  Phone:   {customer_phone}
  Mobile:  {customer_mobile}
  Email:   {customer_email}

Placed by {sales_rep}
`,
}

// Welcome greets a newly created customer.
var Welcome = Template{
	Subject: "Welcome to Reign Wholesale, {customer_name}!",
	Body: `Hello {customer_name},

Your account has been set up. Your sales representative will be in touch
shortly to take your first order.

Reign Wholesale
`,
}
