package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	"github.com/jhoicas/fernanda-api/pkg/logger"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// Verificar en tiempo de compilación que Client implementa BillingProvider.
var _ ports.BillingProvider = (*Client)(nil)

const (
	SandboxBaseURL    = "https://sandbox.asaas.com/api/v3"
	ProductionBaseURL = "https://api.asaas.com/v3"

	maxBodyBytes  = 1 << 20
	maxErrorChars = 300
)

// Config parámetros del cliente; se pasan explícitamente en la construcción.
type Config struct {
	APIKey    string
	Sandbox   bool
	BaseURL   string // opcional; tiene prioridad sobre Sandbox (tests, proxies)
	Timeout   time.Duration
	RateLimit float64 // req/s; <= 0 desactiva el límite
	Burst     int
}

// Client adaptador REST del Asaas. Usa net/http; el proveedor no publica SDK Go.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
	now        func() time.Time
}

// NewClient construye el cliente. Con APIKey vacío todas las llamadas
// devuelven ErrConfiguration sin tocar la red.
func NewClient(cfg Config, log *logger.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = ProductionBaseURL
		if cfg.Sandbox {
			base = SandboxBaseURL
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		log:        log.Component("asaas"),
		now:        time.Now,
	}
}

// WithClock reemplaza el reloj (vencimiento de la segunda vía en tests).
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// FindCustomer GET /customers?cpfCnpj=. Usa solo el primer resultado.
func (c *Client) FindCustomer(ctx context.Context, taxID string) (*entity.Customer, error) {
	digits := taxid.Normalize(taxID)
	if digits == "" {
		return nil, fmt.Errorf("%w: CNPJ/CPF vacío", domain.ErrValidation)
	}
	var out listCustomersResponse
	q := url.Values{"cpfCnpj": {digits}}
	if err := c.getJSON(ctx, "/customers?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if out.TotalCount <= 0 || len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: cliente %s no existe en el Asaas", domain.ErrNotFound, digits)
	}
	if len(out.Data) > 1 {
		c.log.Warn().Int("matches", len(out.Data)).Msg("varios clientes con el mismo CNPJ; se usa el primero")
	}
	return out.Data[0].toEntity(), nil
}

// ListCharges GET /payments?customer=.
func (c *Client) ListCharges(ctx context.Context, customerID string) ([]*entity.Charge, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id vacío", domain.ErrValidation)
	}
	var out listPaymentsResponse
	q := url.Values{"customer": {customerID}}
	if err := c.getJSON(ctx, "/payments?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	charges := make([]*entity.Charge, 0, len(out.Data))
	for _, p := range out.Data {
		charges = append(charges, p.toEntity())
	}
	return charges, nil
}

// UpdateCharge PUT /payments/{id} con nuevo valor, vencimiento hoy+3 y tipo UNDEFINED.
// No se reintenta: un PUT repetido podría emitir dos veces.
func (c *Client) UpdateCharge(ctx context.Context, chargeID string, amount decimal.Decimal) (*entity.Charge, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, fmt.Errorf("%w: boleto id vacío", domain.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: valor debe ser positivo", domain.ErrValidation)
	}
	body := updatePaymentRequest{
		Value:       json.Number(amount.StringFixed(2)),
		DueDate:     policy.ReissueDueDate(c.now()).Format("2006-01-02"),
		BillingType: entity.BillingTypeUndefined,
	}
	var out paymentEntry
	if err := c.do(ctx, http.MethodPut, "/payments/"+url.PathEscape(chargeID), body, &out); err != nil {
		return nil, err
	}
	return out.toEntity(), nil
}

// getJSON GET con un reintento ante error de conectividad.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	err := c.do(ctx, http.MethodGet, path, nil, out)
	if errors.Is(err, domain.ErrConnectivity) && ctx.Err() == nil {
		c.log.Warn().Str("path", path).Err(err).Msg("reintentando consulta")
		err = c.do(ctx, http.MethodGet, path, nil, out)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.apiKey == "" {
		return fmt.Errorf("%w: ASAAS_API_KEY no configurado", domain.ErrConfiguration)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: límite de requisiciones: %v", domain.ErrRemote, err)
	}

	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("asaas: serializar request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: crear request: %v", domain.ErrConnectivity, err)
	}
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "fernanda-api")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %w: timeout en %s %s: %v", domain.ErrRemote, domain.ErrOutcomeUnknown, method, path, err)
		}
		return fmt.Errorf("%w: %s %s: %v", domain.ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w: leer respuesta: %v", domain.ErrConnectivity, domain.ErrOutcomeUnknown, err)
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("asaas")

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("asaas respondió con error")
		return fmt.Errorf("%w: Asaas HTTP %d: %s", domain.ErrRemote, resp.StatusCode, describeError(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: respuesta inválida del Asaas: %v", domain.ErrRemote, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// describeError prefiere la descripción estructurada del Asaas; si no, el cuerpo truncado.
func describeError(raw []byte) string {
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 {
		parts := make([]string, 0, len(er.Errors))
		for _, e := range er.Errors {
			parts = append(parts, e.Code+": "+e.Description)
		}
		return strings.Join(parts, "; ")
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorChars {
		s = s[:maxErrorChars] + "..."
	}
	return s
}
