package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

const sampleCNPJ = "22.333.444/0001-55"

var fixedNow = time.Date(2025, 3, 28, 9, 0, 0, 0, time.UTC)

type stubProvider struct {
	mu          sync.Mutex
	customers   map[string]*entity.Customer
	charges     map[string][]*entity.Charge
	findCalls   int
	listCalls   int
	updateCalls int
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		customers: map[string]*entity.Customer{
			"22333444000155": {ID: "cus_1", Name: "Lanchonete Sabor Divino", TaxID: "22333444000155"},
			"11222333000181": {ID: "cus_2", Name: "Pizzaria Bella Massa", TaxID: "11222333000181"},
		},
		charges: map[string][]*entity.Charge{
			"cus_1": {
				{ID: "pay_1", CreatedAt: "2025-03-01", Status: entity.ChargeStatusOverdue,
					Value: decimal.RequireFromString("100"), Fine: decimal.RequireFromString("2"),
					Interest: decimal.RequireFromString("1.5"), Total: decimal.RequireFromString("103.5"),
					DueDate: "2025-03-10", BankSlipURL: "https://sandbox.asaas.com/b/pdf/pay_1"},
			},
		},
	}
}

func (p *stubProvider) FindCustomer(_ context.Context, raw string) (*entity.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.findCalls++
	c, ok := p.customers[taxid.Normalize(raw)]
	if !ok {
		return nil, fmt.Errorf("%w: nenhum cliente com CNPJ %s", domain.ErrNotFound, taxid.Normalize(raw))
	}
	return c, nil
}

func (p *stubProvider) ListCharges(_ context.Context, customerID string) ([]*entity.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listCalls++
	return p.charges[customerID], nil
}

func (p *stubProvider) UpdateCharge(_ context.Context, chargeID string, amount decimal.Decimal) (*entity.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateCalls++
	due := policy.ReissueDueDate(fixedNow).Format("2006-01-02")
	return &entity.Charge{
		ID: chargeID, Status: entity.ChargeStatusPending, Value: amount, Total: amount, DueDate: due,
		BankSlipURL: "https://sandbox.asaas.com/b/pdf/" + chargeID,
	}, nil
}

// memLedger ledger en memoria; implementa el repositorio y el runner de transacciones.
type memLedger struct {
	mu   sync.Mutex
	rows []*entity.Negotiation
}

func (m *memLedger) RunNegotiation(_ context.Context, fn func(repository.NegotiationRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memLedgerTx{rows: append([]*entity.Negotiation(nil), m.rows...)}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows = tx.rows
	return nil
}

func (m *memLedger) view() *memLedgerTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memLedgerTx{rows: append([]*entity.Negotiation(nil), m.rows...)}
}

func (m *memLedger) Create(ctx context.Context, n *entity.Negotiation) error {
	return m.RunNegotiation(ctx, func(r repository.NegotiationRepository) error { return r.Create(ctx, n) })
}
func (m *memLedger) ListByTaxID(ctx context.Context, t string) ([]*entity.Negotiation, error) {
	return m.view().ListByTaxID(ctx, t)
}
func (m *memLedger) CountByTaxID(ctx context.Context, t string) (int, error) {
	return m.view().CountByTaxID(ctx, t)
}
func (m *memLedger) LockTaxID(context.Context, string) error { return nil }

type memLedgerTx struct {
	rows []*entity.Negotiation
}

func (t *memLedgerTx) Create(_ context.Context, n *entity.Negotiation) error {
	n.ID = int64(len(t.rows) + 1)
	n.TaxID = taxid.Normalize(n.TaxID)
	n.CreatedAt = fixedNow.Add(time.Duration(n.ID) * time.Minute)
	t.rows = append(t.rows, n)
	return nil
}

func (t *memLedgerTx) ListByTaxID(_ context.Context, raw string) ([]*entity.Negotiation, error) {
	var out []*entity.Negotiation
	for i := len(t.rows) - 1; i >= 0; i-- {
		if t.rows[i].TaxID == taxid.Normalize(raw) {
			out = append(out, t.rows[i])
		}
	}
	return out, nil
}

func (t *memLedgerTx) CountByTaxID(ctx context.Context, raw string) (int, error) {
	list, _ := t.ListByTaxID(ctx, raw)
	return len(list), nil
}

func (t *memLedgerTx) LockTaxID(context.Context, string) error { return nil }

// scriptedDecider devuelve las acciones en orden y guarda el tamaño del historial visto.
type scriptedDecider struct {
	mu       sync.Mutex
	actions  []ports.Action
	err      error
	seen     []int
	lastSeen []ports.Turn
}

func (d *scriptedDecider) ChooseAction(_ context.Context, history []ports.Turn, tools []ports.ToolSpec) (ports.Action, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, len(history))
	d.lastSeen = append([]ports.Turn(nil), history...)
	if d.err != nil {
		return ports.Action{}, d.err
	}
	if len(tools) == 0 {
		return ports.Action{}, errors.New("sem ferramentas")
	}
	if len(d.actions) == 0 {
		return ports.Action{Kind: ports.ActionReply, Text: "Posso ajudar com mais alguma coisa? 😊"}, nil
	}
	a := d.actions[0]
	d.actions = d.actions[1:]
	return a, nil
}

func tool(kind ports.ActionKind, args string) ports.Action {
	return ports.Action{Kind: kind, Args: json.RawMessage(args)}
}

func reply(text string) ports.Action {
	return ports.Action{Kind: ports.ActionReply, Text: text}
}

type fixture struct {
	provider *stubProvider
	ledger   *memLedger
	store    *MemoryStore
	svc      *ConversationService
	disp     *Dispatcher
}

func newFixture(t *testing.T, decider ports.DecisionMaker) *fixture {
	t.Helper()
	log := logger.Nop()
	provider := newStubProvider()
	ledger := &memLedger{}

	tools, err := NewToolset()
	require.NoError(t, err)
	escalation, err := billing.NewEscalationUseCase(1, log)
	require.NoError(t, err)

	disp := NewDispatcher(tools, Deps{
		Lookup:     billing.NewLookupUseCase(provider, log),
		Reissue:    billing.NewReissueUseCase(provider, ledger, policy.DefaultDiscountPolicy(), log).WithClock(func() time.Time { return fixedNow }),
		Ledger:     billing.NewNegotiationUseCase(ledger, ledger, log),
		Documents:  billing.NewDocumentUseCase(nil, nil, billing.Beneficiary{Name: "Nexuz", TaxID: "11222333000181"}, log).WithClock(func() time.Time { return fixedNow }),
		Escalation: escalation,
	}, log)

	store := NewMemoryStore()
	svc := NewConversationService(decider, disp, store, nil, ServiceConfig{MaxSteps: 6, TurnTimeout: 5 * time.Second}, log)
	return &fixture{provider: provider, ledger: ledger, store: store, svc: svc, disp: disp}
}

// toolResults decodifica los resultados de herramienta del historial en orden.
func toolResults(t *testing.T, sess *Session, kind ports.ActionKind) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	for _, turn := range sess.History {
		if turn.Role == ports.RoleTool && turn.Tool == kind {
			out = append(out, turn.Result)
		}
	}
	return out
}
