package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fernanda-api/internal/application/agent"
	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	apphttp "github.com/jhoicas/fernanda-api/internal/interfaces/http"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

// ── fakes ─────────────────────────────────────────────────────────────────────

type fakeConversations struct {
	lastID    string
	lastText  string
	lastTool  ports.ActionKind
	lastArgs  string
	uploaded  []byte
	uploadErr error
	reset     []string
}

func (f *fakeConversations) HandleMessage(_ context.Context, id, text string) (dto.MessageResponse, error) {
	f.lastID, f.lastText = id, text
	return dto.MessageResponse{ConversationID: id, Reply: "Olá! Sou a Fernanda.", Tools: []dto.ToolCallDTO{}, Steps: 1}, nil
}

func (f *fakeConversations) InvokeTool(_ context.Context, id string, kind ports.ActionKind, args json.RawMessage) (dto.Result, error) {
	f.lastID, f.lastTool, f.lastArgs = id, kind, string(args)
	if kind == ports.ActionCheckNegotiations {
		return dto.CheckNegotiationsOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: sem registros", domain.ErrNotFound))}, nil
	}
	return dto.LookupOutput{Outcome: dto.Success(), Cliente: &dto.CustomerDTO{ID: "cus_1", Nome: "Lanchonete Sabor Divino"}}, nil
}

func (f *fakeConversations) UploadDocument(_ context.Context, id, filename, chargeID string, data []byte) (dto.DocumentValidationOutput, error) {
	if f.uploadErr != nil {
		return dto.DocumentValidationOutput{}, f.uploadErr
	}
	f.lastID, f.uploaded = id, data
	return dto.DocumentValidationOutput{Outcome: dto.Success(), Valido: true, Confianca: 0.9, BoletoID: chargeID}, nil
}

func (f *fakeConversations) Session(_ context.Context, id string) (*agent.Session, error) {
	s := agent.NewSession(id)
	s.Verify(&entity.Customer{ID: "cus_1", Name: "Lanchonete Sabor Divino", TaxID: "22333444000155"}, nil)
	s.Trajectory = []ports.ActionKind{ports.ActionLookup}
	return s, nil
}

func (f *fakeConversations) Reset(_ context.Context, id string) error {
	f.reset = append(f.reset, id)
	return nil
}

type fakeLedger struct{}

func (fakeLedger) List(_ context.Context, raw string) dto.CheckNegotiationsOutput {
	if raw != "22333444000155" {
		return dto.CheckNegotiationsOutput{Outcome: dto.FailureFrom(fmt.Errorf("%w: nenhuma negociação", domain.ErrNotFound))}
	}
	now := time.Date(2025, 3, 28, 10, 0, 0, 0, time.UTC)
	return dto.CheckNegotiationsOutput{Outcome: dto.Success(), Negociacoes: []dto.NegotiationDTO{
		{ID: 2, CNPJ: raw, Detalhes: "segunda", DataCriacao: now},
		{ID: 1, CNPJ: raw, Detalhes: "primeira", DataCriacao: now.Add(-time.Hour)},
	}}
}

type fakeTerm struct{}

func (fakeTerm) DownloadNegotiationTerm(_ context.Context, raw string) ([]byte, string, error) {
	if raw != "22333444000155" {
		return nil, "", fmt.Errorf("%w: nenhuma negociação", domain.ErrNotFound)
	}
	return []byte("%PDF-1.3 fake"), "termo_negociacao_22333444000155.pdf", nil
}

type fakeAuth struct{}

func (fakeAuth) RegisterOperator(_ context.Context, in dto.RegisterOperatorRequest) (*dto.OperatorResponse, error) {
	if in.Email == "dup@nexuz.com.br" {
		return nil, domain.ErrEmailAlreadyExists
	}
	return &dto.OperatorResponse{ID: "op-2", Email: in.Email, Role: in.Role, Status: "active"}, nil
}

func (fakeAuth) Login(_ context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	if in.Password != "correcta123" {
		return nil, domain.ErrUnauthorized
	}
	return &dto.LoginResponse{Token: "tok", Operator: dto.OperatorResponse{ID: "op-1", Email: in.Email}}, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func newRouterApp(conv *fakeConversations) *fiber.App {
	app := fiber.New()
	app.Use(apphttp.RequestLogger(logger.Nop()))
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:         fakeAuth{},
		Conversations:  conv,
		Negotiations:   fakeLedger{},
		NegotiationPDF: fakeTerm{},
		JWTSecret:      testJWTSecret,
	})
	return app
}

func send(t *testing.T, app *fiber.App, method, path, role string, body io.Reader, contentType string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, string(raw)
}

func jsonBody(s string) io.Reader { return strings.NewReader(s) }

// ── conversaciones ────────────────────────────────────────────────────────────

func TestSendMessage(t *testing.T) {
	conv := &fakeConversations{}
	app := newRouterApp(conv)

	resp, body := send(t, app, http.MethodPost, "/api/conversations/5511999990000/messages", "canal",
		jsonBody(`{"text":"Oi, preciso da segunda via"}`), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	var out dto.MessageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "Olá! Sou a Fernanda.", out.Reply)
	assert.Equal(t, "5511999990000", conv.lastID)
	assert.Equal(t, "Oi, preciso da segunda via", conv.lastText)
	assert.NotEmpty(t, resp.Header.Get(apphttp.HeaderRequestID))
}

func TestSendMessage_Validaciones(t *testing.T) {
	app := newRouterApp(&fakeConversations{})

	resp, body := send(t, app, http.MethodPost, "/api/conversations/c1/messages", "canal",
		jsonBody(`{"text":""}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "VALIDATION")

	resp, _ = send(t, app, http.MethodPost, "/api/conversations/c1/messages", "agente",
		jsonBody(`{"text":"oi"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/api/conversations/c1/messages", "",
		jsonBody(`{"text":"oi"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUploadDocument(t *testing.T) {
	conv := &fakeConversations{}
	app := newRouterApp(conv)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "comprovante.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4 comprovante"))
	require.NoError(t, w.WriteField("boleto_id", "pay_1"))
	require.NoError(t, w.Close())

	resp, body := send(t, app, http.MethodPost, "/api/conversations/c1/documents", "canal", &buf, w.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, []byte("%PDF-1.4 comprovante"), conv.uploaded)
	assert.Contains(t, body, `"boleto_id":"pay_1"`)
}

func TestUploadDocument_SinArchivoYNoConfigurado(t *testing.T) {
	conv := &fakeConversations{uploadErr: fmt.Errorf("%w: envio não configurado", domain.ErrConfiguration)}
	app := newRouterApp(conv)

	resp, _ := send(t, app, http.MethodPost, "/api/conversations/c1/documents", "canal", jsonBody(`{}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("file", "c.png")
	_, _ = fw.Write([]byte("png"))
	_ = w.Close()
	resp, body := send(t, app, http.MethodPost, "/api/conversations/c1/documents", "canal", &buf, w.FormDataContentType())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "NOT_CONFIGURED")
}

func TestGetSessionYReset(t *testing.T) {
	conv := &fakeConversations{}
	app := newRouterApp(conv)

	resp, body := send(t, app, http.MethodGet, "/api/conversations/c1", "agente", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var sum dto.SessionSummaryResponse
	require.NoError(t, json.Unmarshal([]byte(body), &sum))
	assert.True(t, sum.Verificado)
	assert.Equal(t, []string{"consulta_financeira"}, sum.Trajetoria)

	resp, _ = send(t, app, http.MethodDelete, "/api/conversations/c1", "canal", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"c1"}, conv.reset)
}

// ── herramientas ──────────────────────────────────────────────────────────────

func TestInvokeTool(t *testing.T) {
	conv := &fakeConversations{}
	app := newRouterApp(conv)

	resp, body := send(t, app, http.MethodPost, "/api/tools/consulta_financeira?conversation_id=c1", "canal",
		jsonBody(`{"cnpj":"22.333.444/0001-55"}`), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, ports.ActionLookup, conv.lastTool)
	assert.JSONEq(t, `{"cnpj":"22.333.444/0001-55"}`, conv.lastArgs)
	assert.Contains(t, body, "cus_1")
}

func TestInvokeTool_Errores(t *testing.T) {
	conv := &fakeConversations{}
	app := newRouterApp(conv)

	resp, body := send(t, app, http.MethodPost, "/api/tools/consulta_financeira?conversation_id=c1", "canal",
		jsonBody(`{"cnpj":"123"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "cnpj")
	assert.Empty(t, conv.lastTool, "no debe despacharse con argumentos inválidos")

	resp, _ = send(t, app, http.MethodPost, "/api/tools/consulta_financeira", "canal",
		jsonBody(`{"cnpj":"22333444000155"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/api/tools/borrar_todo?conversation_id=c1", "canal", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = send(t, app, http.MethodPost, "/api/tools/verificar_negociacao?conversation_id=c1", "canal",
		jsonBody(`{"cnpj":"22333444000155"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, `"status":"not_found"`)
}

// ── negociaciones ─────────────────────────────────────────────────────────────

func TestListNegotiations_Paginado(t *testing.T) {
	app := newRouterApp(&fakeConversations{})

	resp, body := send(t, app, http.MethodGet, "/api/negociacoes/22333444000155?limit=1&offset=1", "agente", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	var out dto.NegotiationListResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out.Negociacoes, 1)
	assert.Equal(t, int64(1), out.Negociacoes[0].ID)
	assert.Equal(t, 2, out.Page.Total)

	resp, _ = send(t, app, http.MethodGet, "/api/negociacoes/11222333000181", "agente", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = send(t, app, http.MethodGet, "/api/negociacoes/123", "agente", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, app, http.MethodGet, "/api/negociacoes/22333444000155?limit=500", "agente", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, app, http.MethodGet, "/api/negociacoes/22333444000155", "canal", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDownloadTerm(t *testing.T) {
	app := newRouterApp(&fakeConversations{})

	resp, body := send(t, app, http.MethodGet, "/api/negociacoes/22333444000155/termo.pdf", "admin", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "termo_negociacao_22333444000155.pdf")
	assert.True(t, strings.HasPrefix(body, "%PDF"))

	resp, _ = send(t, app, http.MethodGet, "/api/negociacoes/11222333000181/termo.pdf", "admin", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ── auth ──────────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	app := newRouterApp(&fakeConversations{})

	resp, body := send(t, app, http.MethodPost, "/api/auth/login", "",
		jsonBody(`{"email":"ana@nexuz.com.br","password":"correcta123"}`), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `"token":"tok"`)

	resp, body = send(t, app, http.MethodPost, "/api/auth/login", "",
		jsonBody(`{"email":"ana@nexuz.com.br","password":"errada"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "credenciales inválidas")

	resp, _ = send(t, app, http.MethodPost, "/api/auth/login", "",
		jsonBody(`{"email":"no-es-email","password":"x"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_SoloAdmin(t *testing.T) {
	app := newRouterApp(&fakeConversations{})
	payload := `{"email":"bia@nexuz.com.br","password":"segura1234","role":"agente"}`

	resp, _ := send(t, app, http.MethodPost, "/api/auth/register", "agente", jsonBody(payload), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := send(t, app, http.MethodPost, "/api/auth/register", "admin", jsonBody(payload), fiber.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.Contains(t, body, "bia@nexuz.com.br")

	resp, _ = send(t, app, http.MethodPost, "/api/auth/register", "admin",
		jsonBody(`{"email":"dup@nexuz.com.br","password":"segura1234"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = send(t, app, http.MethodPost, "/api/auth/register", "admin",
		jsonBody(`{"email":"x@nexuz.com.br","password":"segura1234","role":"root"}`), fiber.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestLogger_RespetaRequestID(t *testing.T) {
	app := newRouterApp(&fakeConversations{})
	req := httptest.NewRequest(http.MethodGet, "/api/negociacoes/22333444000155", nil)
	req.Header.Set("Authorization", tokenForRole(t, "agente"))
	req.Header.Set(apphttp.HeaderRequestID, "6f1c1f43-9a4f-4e55-8d43-1f1d1c2b3a4e")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "6f1c1f43-9a4f-4e55-8d43-1f1d1c2b3a4e", resp.Header.Get(apphttp.HeaderRequestID))
}
