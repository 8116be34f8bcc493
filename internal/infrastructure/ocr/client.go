package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

var _ ports.DocumentExtractor = (*Client)(nil)

const maxBodyBytes = 1 << 20

// Config servicio de extracción.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client adaptador HTTP del servicio de extracción de texto.
// Contrato: POST {document_url} -> {text, confidence?}.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient construye el cliente. Con URL vacía Extract devuelve ErrConfiguration.
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(cfg.URL),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Component("ocr"),
	}
}

type extractRequest struct {
	DocumentURL string `json:"document_url"`
}

type extractResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
}

// Extract pide el texto del documento publicado en documentURL.
func (c *Client) Extract(ctx context.Context, documentURL string) (*ports.Extraction, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: OCR_URL no configurado", domain.ErrConfiguration)
	}
	if strings.TrimSpace(documentURL) == "" {
		return nil, fmt.Errorf("%w: URL do documento vazia", domain.ErrValidation)
	}

	body, err := json.Marshal(extractRequest{DocumentURL: documentURL})
	if err != nil {
		return nil, fmt.Errorf("ocr: serializar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: ocr: crear request: %v", domain.ErrConnectivity, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("%w: ocr: timeout: %v", domain.ErrRemote, err)
		}
		return nil, fmt.Errorf("%w: ocr: %v", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: ocr: leer respuesta: %v", domain.ErrConnectivity, err)
	}
	c.log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("extracción")

	var out extractResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = truncate(strings.TrimSpace(string(raw)))
		}
		return nil, fmt.Errorf("%w: ocr HTTP %d: %s", domain.ErrRemote, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: ocr: respuesta inválida: %v", domain.ErrRemote, decodeErr)
	}
	if out.Confidence != nil {
		v := clamp01(*out.Confidence)
		out.Confidence = &v
	}
	return &ports.Extraction{Text: out.Text, Confidence: out.Confidence}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func truncate(s string) string {
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
