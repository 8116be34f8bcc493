package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// NegotiationUseCase registrar_negociacao y verificar_negociacao sobre el ledger.
type NegotiationUseCase struct {
	repo repository.NegotiationRepository
	tx   NegotiationTxRunner
	log  *logger.Logger
}

// NewNegotiationUseCase construye el caso de uso.
func NewNegotiationUseCase(repo repository.NegotiationRepository, tx NegotiationTxRunner, log *logger.Logger) *NegotiationUseCase {
	return &NegotiationUseCase{repo: repo, tx: tx, log: log.Component("ledger")}
}

// Record agrega una negociación. CNPJ vacío o detalhes vacío se rechazan
// antes de abrir la transacción.
func (uc *NegotiationUseCase) Record(ctx context.Context, rawTaxID, details string) dto.RecordNegotiationOutput {
	if taxid.IsBlank(rawTaxID) {
		return dto.RecordNegotiationOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: CNPJ é obrigatório", domain.ErrValidation))}
	}
	if strings.TrimSpace(details) == "" {
		return dto.RecordNegotiationOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: detalhes da negociação são obrigatórios", domain.ErrValidation))}
	}

	n := &entity.Negotiation{TaxID: rawTaxID, Details: details}
	err := uc.tx.RunNegotiation(ctx, func(repo repository.NegotiationRepository) error {
		return repo.Create(ctx, n)
	})
	if err != nil {
		uc.log.Error().Err(err).Msg("registrar negociación")
		return dto.RecordNegotiationOutput{Outcome: dto.FailureFrom(err)}
	}
	uc.log.Info().Int64("id", n.ID).Str("cnpj", n.TaxID).Msg("negociación registrada")
	out := dto.RecordNegotiationOutput{Outcome: dto.Success(), ID: n.ID}
	out.Mensagem = "Negociação registrada com sucesso"
	return out
}

// List historial del CNPJ, más reciente primero; sin registros -> not_found.
func (uc *NegotiationUseCase) List(ctx context.Context, rawTaxID string) dto.CheckNegotiationsOutput {
	list, err := uc.History(ctx, rawTaxID)
	if err != nil {
		return dto.CheckNegotiationsOutput{Outcome: dto.FailureFrom(err)}
	}
	items := make([]dto.NegotiationDTO, 0, len(list))
	for _, n := range list {
		items = append(items, dto.ToNegotiationDTO(n))
	}
	return dto.CheckNegotiationsOutput{Outcome: dto.Success(), Negociacoes: items}
}

// History devuelve las entidades; ErrNotFound si no hay registros.
func (uc *NegotiationUseCase) History(ctx context.Context, rawTaxID string) ([]*entity.Negotiation, error) {
	if taxid.IsBlank(rawTaxID) {
		return nil, fmt.Errorf("%w: CNPJ é obrigatório", domain.ErrValidation)
	}
	list, err := uc.repo.ListByTaxID(ctx, rawTaxID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: nenhuma negociação para %s", domain.ErrNotFound, taxid.Normalize(rawTaxID))
	}
	return list, nil
}
