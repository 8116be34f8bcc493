package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
)

// Ensure TxRunner implements billing.NegotiationTxRunner.
var _ billing.NegotiationTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunNegotiation inicia una transacción, ejecuta fn con el repo de negociaciones
// atado a la tx y hace Commit o Rollback.
func (r *TxRunner) RunNegotiation(ctx context.Context, fn func(repo repository.NegotiationRepository) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return dbError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewNegotiationRepository(tx)); err != nil {
		return err
	}
	// fn terminó bien: el commit no depende de un ctx que venció mientras tanto.
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return dbError("commit transaction", err)
	}
	return nil
}
