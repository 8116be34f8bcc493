package billing

import (
	"context"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
)

// NegotiationTxRunner ejecuta una función dentro de una transacción con el repo de negociaciones.
// Si fn retorna error se hace rollback.
type NegotiationTxRunner interface {
	RunNegotiation(ctx context.Context, fn func(repo repository.NegotiationRepository) error) error
}

// NegotiationTermGenerator genera el termo de negociación (PDF) de un cliente.
type NegotiationTermGenerator interface {
	GenerateNegotiationTerm(ctx context.Context, taxID string, negotiations []*entity.Negotiation) ([]byte, error)
}
