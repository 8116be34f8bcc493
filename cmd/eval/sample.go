package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

var (
	_ ports.BillingProvider            = (*sampleProvider)(nil)
	_ billing.NegotiationTxRunner      = (*memoryLedger)(nil)
	_ repository.NegotiationRepository = (*memoryLedger)(nil)
)

// sampleProvider cartera fija para evaluar sin credenciales del Asaas.
type sampleProvider struct {
	mu        sync.Mutex
	customers map[string]*entity.Customer
	charges   map[string][]*entity.Charge
	now       func() time.Time
}

func newSampleProvider() *sampleProvider {
	return &sampleProvider{
		customers: map[string]*entity.Customer{
			"01248526000158": {ID: "cus_eval_1", Name: "Restaurante Sabor da Serra", Company: "Sabor da Serra LTDA",
				TaxID: "01248526000158", Email: "financeiro@saborserra.com.br", City: "Curitiba", State: "PR", PersonType: "JURIDICA"},
			"22333444000155": {ID: "cus_eval_2", Name: "Lanchonete Sabor Divino", TaxID: "22333444000155", PersonType: "JURIDICA"},
		},
		charges: map[string][]*entity.Charge{
			"cus_eval_1": {
				{ID: "pay_eval_1", CreatedAt: "2025-02-01", Status: entity.ChargeStatusOverdue,
					Value: decimal.RequireFromString("189.90"), Fine: decimal.RequireFromString("3.80"),
					Interest: decimal.RequireFromString("1.27"), Total: decimal.RequireFromString("194.97"),
					DueDate: "2025-02-10", BillingType: "BOLETO", Description: "Mensalidade NEXUZ PDV",
					BankSlipURL: "https://sandbox.asaas.com/b/pdf/pay_eval_1"},
			},
			"cus_eval_2": {
				{ID: "pay_eval_2", CreatedAt: "2025-03-01", Status: entity.ChargeStatusOverdue,
					Value: decimal.RequireFromString("100"), Fine: decimal.RequireFromString("2"),
					Interest: decimal.RequireFromString("1.5"), Total: decimal.RequireFromString("103.5"),
					DueDate: "2025-03-10", BillingType: "BOLETO",
					BankSlipURL: "https://sandbox.asaas.com/b/pdf/pay_eval_2"},
			},
		},
		now: time.Now,
	}
}

func (p *sampleProvider) FindCustomer(_ context.Context, raw string) (*entity.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.customers[taxid.Normalize(raw)]
	if !ok {
		return nil, fmt.Errorf("%w: nenhum cliente com CNPJ %s", domain.ErrNotFound, taxid.Normalize(raw))
	}
	return c, nil
}

func (p *sampleProvider) ListCharges(_ context.Context, customerID string) ([]*entity.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.charges[customerID], nil
}

func (p *sampleProvider) UpdateCharge(_ context.Context, chargeID string, amount decimal.Decimal) (*entity.Charge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, list := range p.charges {
		for i, c := range list {
			if c.ID != chargeID {
				continue
			}
			updated := *c
			updated.Value = amount
			updated.Fine = decimal.Zero
			updated.Interest = decimal.Zero
			updated.Total = amount
			updated.Status = entity.ChargeStatusPending
			updated.OriginalDueDate = c.DueDate
			updated.DueDate = policy.ReissueDueDate(p.now()).Format("2006-01-02")
			list[i] = &updated
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("%w: cobrança %s", domain.ErrNotFound, chargeID)
}

// memoryLedger ledger en proceso: append-only, más reciente primero al listar.
type memoryLedger struct {
	mu     sync.Mutex
	rows   []*entity.Negotiation
	nextID int64
}

func (m *memoryLedger) RunNegotiation(ctx context.Context, fn func(repository.NegotiationRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryLedger{rows: append([]*entity.Negotiation(nil), m.rows...), nextID: m.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows, m.nextID = tx.rows, tx.nextID
	return nil
}

// Create, ListByTaxID y CountByTaxID se llaman dentro de RunNegotiation (ya bloqueado)
// o sobre el ledger directo en lecturas de cmd/eval, que es secuencial.
func (m *memoryLedger) Create(_ context.Context, n *entity.Negotiation) error {
	d := taxid.Normalize(n.TaxID)
	if d == "" {
		return fmt.Errorf("%w: CNPJ vazio", domain.ErrValidation)
	}
	m.nextID++
	n.ID = m.nextID
	n.TaxID = d
	n.CreatedAt = time.Now()
	m.rows = append(m.rows, n)
	return nil
}

func (m *memoryLedger) ListByTaxID(_ context.Context, raw string) ([]*entity.Negotiation, error) {
	d := taxid.Normalize(raw)
	var out []*entity.Negotiation
	for i := len(m.rows) - 1; i >= 0; i-- {
		if m.rows[i].TaxID == d {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memoryLedger) CountByTaxID(ctx context.Context, raw string) (int, error) {
	list, err := m.ListByTaxID(ctx, raw)
	return len(list), err
}

func (m *memoryLedger) LockTaxID(context.Context, string) error { return nil }
