package asaas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/domain"
)

const customerJSON = `{"totalCount":1,"data":[{"id":"cus_000005219613","name":"Lanchonete Sabor Divino","cpfCnpj":"22333444000155",
"cityName":"São Paulo","state":"SP","personType":"JURIDICA","deleted":false,"groups":[{"name":"Food Service"}]}]}`

const paymentsJSON = `{"totalCount":2,"data":[
{"id":"pay_1","dateCreated":"2025-03-01","status":"OVERDUE","value":100.00,"fine":{"value":2.00},"interest":{"value":1.50},
 "dueDate":"2025-03-10","billingType":"BOLETO","bankSlipUrl":"https://sandbox.asaas.com/b/pdf/pay_1"},
{"id":"pay_2","dateCreated":"2025-02-01","status":"RECEIVED","value":80,"fine":null}]}`

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(Config{APIKey: "$aact_test", BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	return c, &hits
}

func TestFindCustomer_Encontrado(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers", r.URL.Path)
		assert.Equal(t, "22333444000155", r.URL.Query().Get("cpfCnpj"))
		assert.Equal(t, "$aact_test", r.Header.Get("access_token"))
		_, _ = io.WriteString(w, customerJSON)
	})

	cust, err := c.FindCustomer(context.Background(), "22.333.444/0001-55")
	require.NoError(t, err)
	assert.Equal(t, "cus_000005219613", cust.ID)
	assert.Equal(t, "São Paulo", cust.City)
	assert.Equal(t, []string{"Food Service"}, cust.Groups)
	assert.Equal(t, "active", cust.Status())
}

func TestFindCustomer_TotalCountCero(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"totalCount":0,"data":[]}`)
	})

	cust, err := c.FindCustomer(context.Background(), "99.999.999/0001-99")
	assert.Nil(t, cust)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestListCharges_TotalesYPagado(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cus_1", r.URL.Query().Get("customer"))
		_, _ = io.WriteString(w, paymentsJSON)
	})

	charges, err := c.ListCharges(context.Background(), "cus_1")
	require.NoError(t, err)
	require.Len(t, charges, 2)

	assert.Equal(t, "103.50", charges[0].Total.StringFixed(2))
	assert.False(t, charges[0].Paid)
	assert.Equal(t, "https://sandbox.asaas.com/b/pdf/pay_1", charges[0].BankSlipURL)

	assert.Equal(t, "80.00", charges[1].Total.StringFixed(2))
	assert.True(t, charges[1].Fine.IsZero())
	assert.True(t, charges[1].Paid)
}

func TestUpdateCharge_VencimientoHoyMasTres(t *testing.T) {
	fixed := time.Date(2025, 3, 28, 18, 0, 0, 0, time.UTC)
	var got map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/payments/pay_1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":"pay_1","status":"PENDING","value":98.33,"dueDate":"2025-03-31",
			"bankSlipUrl":"https://sandbox.asaas.com/b/pdf/pay_1","invoiceUrl":"https://sandbox.asaas.com/i/pay_1"}`)
	})
	c.WithClock(func() time.Time { return fixed })

	ch, err := c.UpdateCharge(context.Background(), "pay_1", decimal.RequireFromString("98.325"))
	require.NoError(t, err)

	assert.Equal(t, "2025-03-31", got["dueDate"])
	assert.Equal(t, "UNDEFINED", got["billingType"])
	assert.Equal(t, 98.33, got["value"])
	assert.Equal(t, "https://sandbox.asaas.com/b/pdf/pay_1", ch.BankSlipURL)
	assert.Equal(t, "2025-03-31", ch.DueDate)
}

func TestUpdateCharge_NoReintenta(t *testing.T) {
	c, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"code":"invalid_value","description":"Valor inválido"}]}`)
	})

	_, err := c.UpdateCharge(context.Background(), "pay_1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "Valor inválido")
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestSinCredenciales_NoTocaLaRed(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL}, nil)
	ctx := context.Background()

	_, err := c.FindCustomer(ctx, "11222333000181")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = c.ListCharges(ctx, "cus_1")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = c.UpdateCharge(ctx, "pay_1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestHTTPNo200_EsRemoto(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", 1000))
	})

	_, err := c.ListCharges(context.Background(), "cus_1")
	require.ErrorIs(t, err, domain.ErrRemote)
	assert.Contains(t, err.Error(), "500")
	assert.Less(t, len(err.Error()), 500)
}

func TestTimeout_EsRemoto(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := c.FindCustomer(context.Background(), "11222333000181")
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.Equal(t, domain.KindRemote, domain.KindOf(err))
	assert.True(t, domain.OutcomeUnknown(err))
}

func TestServidorCaido_EsConectividad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: base, Timeout: time.Second}, nil)
	_, err := c.FindCustomer(context.Background(), "11222333000181")
	assert.ErrorIs(t, err, domain.ErrConnectivity)
	assert.False(t, domain.OutcomeUnknown(err))
}

func TestNewClient_BaseURLPorAmbiente(t *testing.T) {
	assert.Equal(t, SandboxBaseURL, NewClient(Config{Sandbox: true}, nil).baseURL)
	assert.Equal(t, ProductionBaseURL, NewClient(Config{}, nil).baseURL)
}

func TestPaymentTotal_EsSumaDeComponentes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("total == value + fine.value + interest.value (ausente = 0)", prop.ForAll(
		func(value, fine, interest int64, hasFine, hasInterest bool) bool {
			doc := fmt.Sprintf(`{"id":"pay","status":"PENDING","value":%s`, decimal.New(value, -2).String())
			want := decimal.New(value, -2)
			if hasFine {
				doc += fmt.Sprintf(`,"fine":{"value":%s}`, decimal.New(fine, -2).String())
				want = want.Add(decimal.New(fine, -2))
			}
			if hasInterest {
				doc += fmt.Sprintf(`,"interest":{"value":%s}`, decimal.New(interest, -2).String())
				want = want.Add(decimal.New(interest, -2))
			}
			doc += "}"

			var p paymentEntry
			if err := json.Unmarshal([]byte(doc), &p); err != nil {
				return false
			}
			ch := p.toEntity()
			return ch.Total.Equal(want) && ch.Total.Equal(ch.Value.Add(ch.Fine).Add(ch.Interest))
		},
		gen.Int64Range(0, 10_000_000),
		gen.Int64Range(0, 100_000),
		gen.Int64Range(0, 100_000),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestPaymentTotal_CamposMalformados(t *testing.T) {
	var p paymentEntry
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","value":"50.5","fine":"abc","interest":{"value":"n/a"}}`), &p))
	ch := p.toEntity()
	assert.Equal(t, "50.50", ch.Total.StringFixed(2))
	assert.True(t, ch.Fine.IsZero())
	assert.True(t, ch.Interest.IsZero())
}
