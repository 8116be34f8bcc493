package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

var _ repository.NegotiationRepository = (*NegotiationRepo)(nil)

// NegotiationRepo implementación del puerto NegotiationRepository sobre PostgreSQL.
// Tabla append-only negociacoes(id, cnpj, detalhes, data_criacao).
type NegotiationRepo struct {
	q Querier
}

// NewNegotiationRepository construye el adaptador (pool o tx).
func NewNegotiationRepository(q Querier) *NegotiationRepo {
	return &NegotiationRepo{q: q}
}

// Create inserta el registro. La validación ocurre antes de cualquier acceso a la base.
func (r *NegotiationRepo) Create(ctx context.Context, n *entity.Negotiation) error {
	if n == nil {
		return fmt.Errorf("%w: negociación nil", domain.ErrValidation)
	}
	digits, err := normalizedTaxID(n.TaxID)
	if err != nil {
		return err
	}
	details := strings.TrimSpace(n.Details)
	if details == "" {
		return fmt.Errorf("%w: detalhes vacío", domain.ErrValidation)
	}
	query := `
		INSERT INTO negociacoes (cnpj, detalhes)
		VALUES ($1, $2)
		RETURNING id, data_criacao`
	if err := r.q.QueryRow(ctx, query, digits, details).Scan(&n.ID, &n.CreatedAt); err != nil {
		return dbError("insert negociacao", err)
	}
	n.TaxID = digits
	n.Details = details
	return nil
}

// ListByTaxID devuelve el historial del CNPJ, más reciente primero.
func (r *NegotiationRepo) ListByTaxID(ctx context.Context, taxID string) ([]*entity.Negotiation, error) {
	digits, err := normalizedTaxID(taxID)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, cnpj, detalhes, data_criacao
		FROM negociacoes WHERE cnpj = $1
		ORDER BY data_criacao DESC, id DESC`
	rows, err := r.q.Query(ctx, query, digits)
	if err != nil {
		return nil, dbError("list negociacoes", err)
	}
	defer rows.Close()
	var list []*entity.Negotiation
	for rows.Next() {
		var n entity.Negotiation
		if err := rows.Scan(&n.ID, &n.TaxID, &n.Details, &n.CreatedAt); err != nil {
			return nil, dbError("scan negociacao", err)
		}
		list = append(list, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list negociacoes", err)
	}
	return list, nil
}

// CountByTaxID cuántas negociaciones existen para el CNPJ.
func (r *NegotiationRepo) CountByTaxID(ctx context.Context, taxID string) (int, error) {
	digits, err := normalizedTaxID(taxID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM negociacoes WHERE cnpj = $1`, digits).Scan(&n); err != nil {
		return 0, dbError("count negociacoes", err)
	}
	return n, nil
}

// LockTaxID toma un advisory lock de transacción por CNPJ; dos segundas vías
// simultáneas del mismo cliente no pueden ver ambas "cero negociaciones".
func (r *NegotiationRepo) LockTaxID(ctx context.Context, taxID string) error {
	digits, err := normalizedTaxID(taxID)
	if err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "negociacoes:"+digits); err != nil {
		return dbError("lock negociacoes", err)
	}
	return nil
}

func normalizedTaxID(taxID string) (string, error) {
	if taxid.IsBlank(taxID) {
		return "", fmt.Errorf("%w: CNPJ vacío", domain.ErrValidation)
	}
	digits := taxid.Normalize(taxID)
	if digits == "" {
		return "", fmt.Errorf("%w: CNPJ sin dígitos", domain.ErrValidation)
	}
	return digits, nil
}
