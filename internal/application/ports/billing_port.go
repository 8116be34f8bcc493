package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// BillingProvider puerto hacia el proveedor de cobros (Asaas).
// Los errores se envuelven con las clases de domain (ErrConfiguration,
// ErrNotFound, ErrRemote, ErrConnectivity).
type BillingProvider interface {
	// FindCustomer busca el cliente por CNPJ/CPF; ErrNotFound si no existe.
	FindCustomer(ctx context.Context, taxID string) (*entity.Customer, error)
	// ListCharges pendencias del cliente (pagas incluidas, marcadas como Paid).
	ListCharges(ctx context.Context, customerID string) ([]*entity.Charge, error)
	// UpdateCharge emite la segunda vía con el nuevo valor y vencimiento hoy+3.
	// No es idempotente: nunca se reintenta.
	UpdateCharge(ctx context.Context, chargeID string, amount decimal.Decimal) (*entity.Charge, error)
}
