package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

func TestExtract_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer ocr-key", r.Header.Get("Authorization"))
		var in extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "https://bucket/comprovantes/x.pdf", in.DocumentURL)
		_, _ = w.Write([]byte(`{"text":"Pagamento de R$ 103,50 para NEXUZ","confidence":1.4}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, APIKey: "ocr-key", Timeout: time.Second}, logger.Nop())
	ext, err := c.Extract(context.Background(), "https://bucket/comprovantes/x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Pagamento de R$ 103,50 para NEXUZ", ext.Text)
	require.NotNil(t, ext.Confidence)
	assert.Equal(t, 1.0, *ext.Confidence)
}

func TestExtract_WithoutConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"text":"abc"}`))
	}))
	defer srv.Close()

	ext, err := NewClient(Config{URL: srv.URL}, logger.Nop()).Extract(context.Background(), "https://x")
	require.NoError(t, err)
	assert.Nil(t, ext.Confidence)
}

func TestExtract_Errors(t *testing.T) {
	_, err := NewClient(Config{}, logger.Nop()).Extract(context.Background(), "https://x")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"formato não suportado"}`))
	}))
	defer srv.Close()
	c := NewClient(Config{URL: srv.URL}, logger.Nop())

	_, err = c.Extract(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.Extract(context.Background(), "https://x")
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.Contains(t, err.Error(), "formato não suportado")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer bad.Close()
	_, err = NewClient(Config{URL: bad.URL}, logger.Nop()).Extract(context.Background(), "https://x")
	assert.ErrorIs(t, err, domain.ErrRemote)

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := down.URL
	down.Close()
	_, err = NewClient(Config{URL: url}, logger.Nop()).Extract(context.Background(), "https://x")
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestExtract_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, logger.Nop())
	_, err := c.Extract(context.Background(), "https://x")
	assert.ErrorIs(t, err, domain.ErrRemote)
}
