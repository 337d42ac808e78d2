package email

import (
	"html/template"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// OrderConfirmationData feeds the order confirmation template.
type OrderConfirmationData struct {
	CustomerName  string
	OrderID       string
	OrderDate     time.Time
	Status        string
	ItemsPrice    decimal.Decimal
	TaxPrice      decimal.Decimal
	ShippingPrice decimal.Decimal
	Discount      decimal.Decimal
	TotalPrice    decimal.Decimal
}

var orderConfirmationTmpl = template.Must(template.New("order_confirmation").Parse(`<html>
<body>
  <h2>Thanks for your order{{if .CustomerName}}, {{.CustomerName}}{{end}}!</h2>
  <p>Order <strong>{{.OrderID}}</strong> was placed on {{.OrderDate.Format "Jan 2, 2006"}} and is now <strong>{{.Status}}</strong>.</p>
  <table>
    <tr><td>Items</td><td>{{.ItemsPrice}}</td></tr>
    <tr><td>Tax</td><td>{{.TaxPrice}}</td></tr>
    <tr><td>Shipping</td><td>{{.ShippingPrice}}</td></tr>
    {{if .Discount.IsPositive}}<tr><td>Discount</td><td>-{{.Discount}}</td></tr>{{end}}
    <tr><td><strong>Total</strong></td><td><strong>{{.TotalPrice}}</strong></td></tr>
  </table>
  <p>We will email you again when your order ships.</p>
</body>
</html>`))

// RenderOrderConfirmation renders the order confirmation email body.
func RenderOrderConfirmation(data OrderConfirmationData) (string, error) {
	var b strings.Builder
	if err := orderConfirmationTmpl.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "render order confirmation")
	}
	return b.String(), nil
}
