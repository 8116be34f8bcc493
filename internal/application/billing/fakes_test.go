package billing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/repository"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// fakeProvider proveedor en memoria indexado por CNPJ normalizado.
type fakeProvider struct {
	customers   map[string]*entity.Customer
	charges     map[string][]*entity.Charge
	findErr     error
	updateErr   error
	findCalls   int
	listCalls   int
	updateCalls []decimal.Decimal
}

func (f *fakeProvider) FindCustomer(_ context.Context, taxID string) (*entity.Customer, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.customers[taxid.Normalize(taxID)]
	if !ok {
		return nil, fmt.Errorf("%w: cliente", domain.ErrNotFound)
	}
	return c, nil
}

func (f *fakeProvider) ListCharges(_ context.Context, customerID string) ([]*entity.Charge, error) {
	f.listCalls++
	return f.charges[customerID], nil
}

func (f *fakeProvider) UpdateCharge(_ context.Context, chargeID string, amount decimal.Decimal) (*entity.Charge, error) {
	f.updateCalls = append(f.updateCalls, amount)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &entity.Charge{
		ID: chargeID, Status: entity.ChargeStatusPending, Value: amount, Total: amount,
		DueDate:     "2025-03-31",
		BankSlipURL: "https://sandbox.asaas.com/b/pdf/" + chargeID,
	}, nil
}

// memLedger ledger en memoria con semántica transaccional simple (copia y reemplazo).
type memLedger struct {
	mu      sync.Mutex
	rows    []*entity.Negotiation
	nextID  int64
	failAll error
	calls   int
}

func (m *memLedger) RunNegotiation(ctx context.Context, fn func(repo repository.NegotiationRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	tx := &memTx{parent: m, rows: append([]*entity.Negotiation(nil), m.rows...), nextID: m.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	m.rows, m.nextID = tx.rows, tx.nextID
	return nil
}

type memTx struct {
	parent *memLedger
	rows   []*entity.Negotiation
	nextID int64
}

func (t *memTx) Create(_ context.Context, n *entity.Negotiation) error {
	t.parent.calls++
	if taxid.IsBlank(n.TaxID) {
		return domain.ErrValidation
	}
	t.nextID++
	n.ID = t.nextID
	n.TaxID = taxid.Normalize(n.TaxID)
	n.CreatedAt = time.Date(2025, 3, 20, 10, 0, 0, int(t.nextID), time.UTC)
	t.rows = append(t.rows, n)
	return nil
}

func (t *memTx) ListByTaxID(_ context.Context, taxID string) ([]*entity.Negotiation, error) {
	t.parent.calls++
	return filterNewest(t.rows, taxID), nil
}

func (t *memTx) CountByTaxID(_ context.Context, taxID string) (int, error) {
	t.parent.calls++
	return len(filterNewest(t.rows, taxID)), nil
}

func (t *memTx) LockTaxID(context.Context, string) error { return nil }

// repo vista fuera de transacción.
func (m *memLedger) repo() repository.NegotiationRepository {
	return &memTx{parent: m, rows: m.rows, nextID: m.nextID}
}

func (m *memLedger) ListByTaxID(ctx context.Context, taxID string) ([]*entity.Negotiation, error) {
	return m.repo().ListByTaxID(ctx, taxID)
}
func (m *memLedger) CountByTaxID(ctx context.Context, taxID string) (int, error) {
	return m.repo().CountByTaxID(ctx, taxID)
}
func (m *memLedger) Create(ctx context.Context, n *entity.Negotiation) error {
	return m.RunNegotiation(ctx, func(r repository.NegotiationRepository) error { return r.Create(ctx, n) })
}
func (m *memLedger) LockTaxID(context.Context, string) error { return nil }

func filterNewest(rows []*entity.Negotiation, taxID string) []*entity.Negotiation {
	digits := taxid.Normalize(taxID)
	var out []*entity.Negotiation
	for _, r := range rows {
		if r.TaxID == digits {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

const sampleCNPJ = "22.333.444/0001-55"

func sampleProvider() *fakeProvider {
	return &fakeProvider{
		customers: map[string]*entity.Customer{
			"22333444000155": {ID: "cus_1", Name: "Lanchonete Sabor Divino", TaxID: "22333444000155"},
		},
		charges: map[string][]*entity.Charge{
			"cus_1": {
				{ID: "pay_1", CreatedAt: "2025-03-01", Status: entity.ChargeStatusOverdue,
					Value: decimal.RequireFromString("100"), Fine: decimal.RequireFromString("2"),
					Interest: decimal.RequireFromString("1.5"), Total: decimal.RequireFromString("103.5"),
					BankSlipURL: "https://sandbox.asaas.com/b/pdf/pay_1"},
				{ID: "pay_2", CreatedAt: "2025-02-01", Status: entity.ChargeStatusReceived, Paid: true,
					Value: decimal.RequireFromString("80"), Total: decimal.RequireFromString("80")},
			},
		},
	}
}
