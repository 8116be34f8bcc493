package agent

import (
	"context"
	"fmt"

	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// Lookuper consulta_financeira.
type Lookuper interface {
	Lookup(ctx context.Context, rawTaxID string) billing.LookupResult
}

// Reissuer atualizar_boleto.
type Reissuer interface {
	Reissue(ctx context.Context, req billing.ReissueRequest) billing.ReissueResult
}

// NegotiationLedger registrar_negociacao y verificar_negociacao.
type NegotiationLedger interface {
	Record(ctx context.Context, rawTaxID, details string) dto.RecordNegotiationOutput
	List(ctx context.Context, rawTaxID string) dto.CheckNegotiationsOutput
}

// DocumentValidator validar_comprovante.
type DocumentValidator interface {
	ValidateText(ctx context.Context, req billing.DocumentRequest) dto.DocumentValidationOutput
}

// Escalator transferir_humano.
type Escalator interface {
	Escalate(ctx context.Context, contexto string) dto.EscalationOutput
}

// Deps casos de uso detrás de cada herramienta.
type Deps struct {
	Lookup     Lookuper
	Reissue    Reissuer
	Ledger     NegotiationLedger
	Documents  DocumentValidator
	Escalation Escalator
}

// Dispatcher ejecuta la acción elegida contra la sesión. Es el único lugar
// donde se abre o cierra la compuerta de CNPJ.
type Dispatcher struct {
	tools *Toolset
	deps  Deps
	log   *logger.Logger
}

// NewDispatcher construye el despachante.
func NewDispatcher(tools *Toolset, deps Deps, log *logger.Logger) *Dispatcher {
	return &Dispatcher{tools: tools, deps: deps, log: log.Component("dispatcher")}
}

// Tools catálogo expuesto al modelo.
func (d *Dispatcher) Tools() []ports.ToolSpec {
	return d.tools.Specs()
}

// Dispatch valida los argumentos, aplica la compuerta y ejecuta la herramienta.
// Nunca devuelve error: las fallas viajan en el Outcome del resultado.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, action ports.Action) dto.Result {
	res := d.dispatch(ctx, sess, action)
	o := res.GetOutcome()
	ev := d.log.Info()
	if !o.OK() {
		ev = d.log.Warn().Str("kind", string(o.ErrorKind))
	}
	ev.Str("conversation", sess.ConversationID).Str("tool", string(action.Kind)).
		Str("status", o.Status).Bool("verified", sess.Verified()).Msg("herramienta ejecutada")
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, sess *Session, action ports.Action) dto.Result {
	switch action.Kind {
	case ports.ActionLookup:
		var in dto.LookupInput
		if err := d.tools.Decode(action.Kind, action.Args, &in); err != nil {
			return dto.FailureFrom(err)
		}
		res := d.deps.Lookup.Lookup(ctx, in.CNPJ)
		switch res.Output.Status {
		case dto.StatusSuccess:
			if sess.Customer == nil || sess.Customer.ID != res.Customer.ID {
				sess.DiscountGiven = false
			}
			sess.Verify(res.Customer, res.Charges)
		case dto.StatusNotFound:
			sess.ClearCustomer()
		}
		return res.Output

	case ports.ActionReissue:
		var in dto.ReissueInput
		if err := d.tools.Decode(action.Kind, action.Args, &in); err != nil {
			return dto.FailureFrom(err)
		}
		if err := gate(sess); err != nil {
			return dto.FailureFrom(err)
		}
		res := d.deps.Reissue.Reissue(ctx, billing.ReissueRequest{
			Customer: sess.Customer,
			Charges:  sess.Charges,
			ChargeID: in.BoletoID,
		})
		if res.Output.OK() {
			sess.ReplaceCharge(res.Charge)
			if res.Output.Desconto != nil {
				sess.DiscountGiven = true
			}
		}
		return res.Output

	case ports.ActionRecordNegotiation:
		var in dto.RecordNegotiationInput
		if err := d.tools.Decode(action.Kind, action.Args, &in); err != nil {
			return dto.FailureFrom(err)
		}
		if err := gate(sess); err != nil {
			return dto.FailureFrom(err)
		}
		if err := sameCustomer(sess, in.CNPJ); err != nil {
			return dto.FailureFrom(err)
		}
		return d.deps.Ledger.Record(ctx, in.CNPJ, in.Detalhes)

	case ports.ActionCheckNegotiations:
		var in dto.CheckNegotiationsInput
		if err := d.tools.Decode(action.Kind, action.Args, &in); err != nil {
			return dto.FailureFrom(err)
		}
		if err := gate(sess); err != nil {
			return dto.FailureFrom(err)
		}
		if err := sameCustomer(sess, in.CNPJ); err != nil {
			return dto.FailureFrom(err)
		}
		return d.deps.Ledger.List(ctx, in.CNPJ)

	case ports.ActionValidateDocument:
		var in dto.ValidateDocumentInput
		if err := d.tools.Decode(action.Kind, action.Args, &in); err != nil {
			return dto.FailureFrom(err)
		}
		if err := gate(sess); err != nil {
			return dto.FailureFrom(err)
		}
		return d.deps.Documents.ValidateText(ctx, billing.DocumentRequest{
			Customer:   sess.Customer,
			Charges:    sess.Charges,
			ChargeID:   in.BoletoID,
			Text:       in.OCRText,
			Confidence: in.Confianca,
		})

	case ports.ActionEscalate:
		var in dto.EscalateInput
		if err := d.tools.Decode(action.Kind, action.Args, &in); err != nil {
			return dto.FailureFrom(err)
		}
		return d.deps.Escalation.Escalate(ctx, in.Contexto)
	}
	return dto.FailureFrom(fmt.Errorf("%w: ferramenta desconhecida %q", domain.ErrValidation, action.Kind))
}

func gate(sess *Session) error {
	if !sess.Verified() {
		return fmt.Errorf("%w: cliente não validado; consulte o CNPJ primeiro", domain.ErrValidation)
	}
	return nil
}

// sameCustomer impide mezclar clientes: el CNPJ de la herramienta tiene que
// ser el del cliente verificado. Se llama después de gate.
func sameCustomer(sess *Session, raw string) error {
	if taxid.Normalize(raw) != taxid.Normalize(sess.Customer.TaxID) {
		return fmt.Errorf("%w: CNPJ %s difere do cliente consultado", domain.ErrValidation, taxid.Format(raw))
	}
	return nil
}
