package notify

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/orders"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplOrderConfirmation = "order_confirmation.html"
	tmplPaymentApproved   = "payment_approved.html"
)

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"brl": func(d decimal.Decimal) string { return d.StringFixed(2) },
}).ParseFS(templateFS, "templates/*.html"))

// saoPaulo is used for display only. Falls back to a fixed -03:00 offset
// when tzdata is missing from the image.
var saoPaulo = func() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}()

type orderView struct {
	Name     string
	ShortID  string
	Items    []orders.Item
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Status   orders.Status
}

type paymentView struct {
	Name    string
	ShortID string
	Amount  decimal.Decimal
	Status  string
	PaidAt  string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatPaidAt(t time.Time) string {
	return t.In(saoPaulo).Format("02/01/2006 15:04:05")
}
