package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// LookupResult salida de la consulta: DTO para el modelo/canal y entidades para la sesión.
type LookupResult struct {
	Output   dto.LookupOutput
	Customer *entity.Customer
	Charges  []*entity.Charge
}

// LookupUseCase consulta_financeira: cliente por CNPJ y sus pendencias.
type LookupUseCase struct {
	provider ports.BillingProvider
	log      *logger.Logger
}

// NewLookupUseCase construye el caso de uso.
func NewLookupUseCase(provider ports.BillingProvider, log *logger.Logger) *LookupUseCase {
	return &LookupUseCase{provider: provider, log: log.Component("lookup")}
}

// Lookup valida el formato del CNPJ/CPF, busca el cliente y, solo si existe, sus pendencias.
// Los dígitos verificadores inválidos se registran pero no bloquean la consulta:
// el proveedor es la fuente de verdad sobre qué clientes existen.
func (uc *LookupUseCase) Lookup(ctx context.Context, rawTaxID string) LookupResult {
	if err := taxid.CheckLength(rawTaxID); err != nil {
		return LookupResult{Output: dto.LookupOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: %v", domain.ErrValidation, err))}}
	}
	if !taxid.IsValid(rawTaxID) {
		uc.log.Warn().Str("cnpj", taxid.Format(rawTaxID)).Msg("dígitos verificadores inválidos; consultando igual")
	}

	customer, err := uc.provider.FindCustomer(ctx, rawTaxID)
	if err != nil {
		uc.log.Info().Str("kind", string(domain.KindOf(err))).Err(err).Msg("consulta de cliente sin éxito")
		return LookupResult{Output: dto.LookupOutput{Outcome: dto.FailureFrom(err)}}
	}

	charges, err := uc.provider.ListCharges(ctx, customer.ID)
	if err != nil {
		return LookupResult{Output: dto.LookupOutput{Outcome: dto.FailureFrom(err)}}
	}

	open := decimal.Zero
	items := make([]dto.ChargeDTO, 0, len(charges))
	for _, c := range charges {
		items = append(items, dto.ToChargeDTO(c))
		if !c.Paid {
			open = open.Add(c.Total)
		}
	}
	uc.log.Info().Str("customer", customer.ID).Int("charges", len(charges)).Msg("cliente verificado")

	return LookupResult{
		Output: dto.LookupOutput{
			Outcome:       dto.Success(),
			Cliente:       dto.ToCustomerDTO(customer),
			Pendencias:    items,
			TotalEmAberto: open,
		},
		Customer: customer,
		Charges:  charges,
	}
}
