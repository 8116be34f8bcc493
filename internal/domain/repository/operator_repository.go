package repository

import (
	"context"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// OperatorRepository define el puerto de persistencia para Operator (DIP).
type OperatorRepository interface {
	Create(ctx context.Context, op *entity.Operator) error
	GetByID(ctx context.Context, id string) (*entity.Operator, error)
	GetByEmail(ctx context.Context, email string) (*entity.Operator, error)
}
