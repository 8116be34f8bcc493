package ai

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

	"github.com/jhoicas/fernanda-api/internal/domain"
)

const (
	maxResponseBytes = 256 * 1024
	maxErrorChars    = 300
)

// postJSON envía payload y decodifica la respuesta 200 en out. describe
// extrae el mensaje de error del cuerpo cuando el proveedor responde != 200.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload, out any, describe func([]byte) string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("AI: serializar request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: AI: crear HTTP request: %v", domain.ErrConnectivity, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) || ctx.Err() != nil {
			return fmt.Errorf("%w: AI: timeout o cancelación: %v", domain.ErrRemote, err)
		}
		return fmt.Errorf("%w: AI: llamada HTTP fallida: %v", domain.ErrConnectivity, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: AI: leer respuesta: %v", domain.ErrConnectivity, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if describe != nil {
			msg = describe(raw)
		}
		if msg == "" {
			msg = truncate(strings.TrimSpace(string(raw)))
		}
		return fmt.Errorf("%w: AI: HTTP %d: %s", domain.ErrRemote, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: AI: deserializar respuesta: %v", domain.ErrRemote, err)
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

func truncate(s string) string {
	if len(s) > maxErrorChars {
		return s[:maxErrorChars] + "..."
	}
	return s
}
