package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// ReissueRequest segunda vía de un boleto del cliente verificado.
type ReissueRequest struct {
	Customer *entity.Customer
	Charges  []*entity.Charge // foto de la última consulta
	ChargeID string
}

// ReissueResult DTO de salida y boleto actualizado para refrescar la sesión.
type ReissueResult struct {
	Output dto.ReissueOutput
	Charge *entity.Charge
}

// ReissueUseCase atualizar_boleto con la regla de descuento de primera negociación.
type ReissueUseCase struct {
	provider ports.BillingProvider
	tx       NegotiationTxRunner
	policy   policy.DiscountPolicy
	log      *logger.Logger
	now      func() time.Time
}

// NewReissueUseCase construye el caso de uso.
func NewReissueUseCase(provider ports.BillingProvider, tx NegotiationTxRunner, p policy.DiscountPolicy, log *logger.Logger) *ReissueUseCase {
	return &ReissueUseCase{provider: provider, tx: tx, policy: p, log: log.Component("reissue"), now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (uc *ReissueUseCase) WithClock(now func() time.Time) *ReissueUseCase {
	uc.now = now
	return uc
}

// Reissue emite la segunda vía. Dentro de una transacción del ledger:
//  1. bloquea el CNPJ y cuenta negociaciones previas;
//  2. decide el descuento (solo si no hay ninguna);
//  3. si hay descuento, registra la negociación;
//  4. actualiza el boleto en el proveedor; si falla, rollback del registro,
//     salvo que el resultado sea desconocido: el registro se confirma y el
//     descuento no se vuelve a ofrecer.
func (uc *ReissueUseCase) Reissue(ctx context.Context, req ReissueRequest) ReissueResult {
	charge, err := uc.target(req)
	if err != nil {
		return ReissueResult{Output: dto.ReissueOutput{Outcome: dto.FailureFrom(err)}}
	}
	today := uc.now()
	taxID := taxid.Normalize(req.Customer.TaxID)

	var (
		decision  policy.DiscountDecision
		updated   *entity.Charge
		uncertain error
	)
	err = uc.tx.RunNegotiation(ctx, func(repo repository.NegotiationRepository) error {
		if err := repo.LockTaxID(ctx, taxID); err != nil {
			return err
		}
		prior, err := repo.CountByTaxID(ctx, taxID)
		if err != nil {
			return err
		}
		decision = uc.policy.Decide(charge.Total, prior, today)
		if decision.Eligible {
			note := &entity.Negotiation{TaxID: taxID, Details: discountNote(charge, decision)}
			if err := repo.Create(ctx, note); err != nil {
				return err
			}
		}
		updated, err = uc.provider.UpdateCharge(ctx, charge.ID, decision.FinalValue)
		if err != nil && decision.Eligible && domain.OutcomeUnknown(err) {
			uncertain = err
			return nil
		}
		return err
	})
	if err == nil && uncertain != nil {
		uc.log.Warn().Str("charge", charge.ID).Err(uncertain).Msg("segunda vía con resultado desconocido; negociación registrada")
		err = uncertain
	}
	if err != nil {
		uc.log.Warn().Str("charge", charge.ID).Str("kind", string(domain.KindOf(err))).Err(err).Msg("segunda vía falló")
		return ReissueResult{Output: dto.ReissueOutput{Outcome: dto.FailureFrom(err)}}
	}

	uc.log.Info().Str("charge", charge.ID).Bool("discount", decision.Eligible).
		Str("value", decision.FinalValue.StringFixed(2)).Msg("segunda vía emitida")

	out := dto.ReissueOutput{Outcome: dto.Success()}
	boleto := dto.ToChargeDTO(updated)
	out.Boleto = &boleto
	if decision.Eligible {
		out.Desconto = &dto.DiscountDTO{
			Percentual: decision.Percent,
			Valor:      decision.Amount,
			ValorFinal: decision.FinalValue,
			ValidoAte:  decision.ValidUntil.Format("2006-01-02"),
		}
	}
	return ReissueResult{Output: out, Charge: updated}
}

// target aplica la compuerta: cliente verificado, boleto de su foto y no pagado.
func (uc *ReissueUseCase) target(req ReissueRequest) (*entity.Charge, error) {
	if req.Customer == nil {
		return nil, fmt.Errorf("%w: cliente não validado; consulte o CNPJ primeiro", domain.ErrValidation)
	}
	for _, c := range req.Charges {
		if c.ID != req.ChargeID {
			continue
		}
		if c.Paid {
			return nil, fmt.Errorf("%w: boleto %s já está pago", domain.ErrValidation, c.ID)
		}
		if !c.Total.IsPositive() {
			return nil, fmt.Errorf("%w: boleto %s sem valor a pagar", domain.ErrValidation, c.ID)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: boleto %s não pertence ao cliente consultado", domain.ErrValidation, req.ChargeID)
}

func discountNote(c *entity.Charge, d policy.DiscountDecision) string {
	return fmt.Sprintf("Segunda via do boleto %s com desconto de %s%% (R$ %s -> R$ %s), válido até %s",
		c.ID, d.Percent.String(), c.Total.StringFixed(2), d.FinalValue.StringFixed(2), d.ValidUntil.Format("02/01/2006"))
}
