package repository

import (
	"context"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// NegotiationRepository puerto de persistencia del registro de negociaciones.
// Solo inserción y lectura: los registros nunca se actualizan ni se eliminan.
type NegotiationRepository interface {
	// Create inserta el registro; CreatedAt e ID los genera el servidor y se
	// devuelven en el mismo struct.
	Create(ctx context.Context, n *entity.Negotiation) error
	// ListByTaxID devuelve las negociaciones del CNPJ/CPF, más recientes primero.
	ListByTaxID(ctx context.Context, taxID string) ([]*entity.Negotiation, error)
	// CountByTaxID cuántas negociaciones existen (para la regla de primer descuento).
	CountByTaxID(ctx context.Context, taxID string) (int, error)
	// LockTaxID serializa, dentro de una transacción, las operaciones sobre un mismo CNPJ.
	LockTaxID(ctx context.Context, taxID string) error
}
