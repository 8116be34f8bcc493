package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de cobro del proveedor relevantes para la atención.
const (
	ChargeStatusPending  = "PENDING"
	ChargeStatusOverdue  = "OVERDUE"
	ChargeStatusReceived = "RECEIVED"

	BillingTypeUndefined = "UNDEFINED"
)

// Charge es una pendencia (boleto/cobro) del cliente. Foto inmutable por consulta:
// cualquier cambio se hace vía el proveedor y se vuelve a leer.
type Charge struct {
	ID              string
	CreatedAt       string // dateCreated (YYYY-MM-DD)
	Status          string
	Value           decimal.Decimal
	Fine            decimal.Decimal
	Interest        decimal.Decimal
	Total           decimal.Decimal // Value + Fine + Interest
	DueDate         string
	OriginalDueDate string
	BillingType     string
	InvoiceNumber   string
	InvoiceURL      string
	BankSlipURL     string
	Description     string
	Paid            bool
}

// ChargeTotal calcula el valor total de una pendencia.
func ChargeTotal(value, fine, interest decimal.Decimal) decimal.Decimal {
	return value.Add(fine).Add(interest)
}

// IsPaidStatus indica si el estado es el terminal "recibido" del proveedor.
func IsPaidStatus(status string) bool {
	return status == ChargeStatusReceived
}

// CreatedOn interpreta CreatedAt; devuelve el zero value si no es parseable.
func (c *Charge) CreatedOn() time.Time {
	t, err := time.Parse("2006-01-02", c.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
