package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

// Verificar en tiempo de compilación que GeminiService implementa DecisionMaker.
var _ ports.DecisionMaker = (*GeminiService)(nil)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"

// GeminiConfig parámetros del adaptador.
type GeminiConfig struct {
	APIKey  string
	Model   string // p. ej. "gemini-1.5-flash"
	BaseURL string
	Timeout time.Duration
}

// GeminiService adaptador que implementa DecisionMaker llamando a la API REST
// de Google Gemini con function calling.
type GeminiService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewGeminiService construye el adaptador.
// Si APIKey está vacío, las llamadas devuelven ErrConfiguration.
func NewGeminiService(cfg GeminiConfig, log *logger.Logger) *GeminiService {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = geminiDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &GeminiService{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Component("gemini"),
	}
}

// ── Estructuras internas para la API de Gemini ────────────────────────────────

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiFunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type genConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// ChooseAction llama a Gemini con el historial; un functionCall se convierte en
// la acción de esa herramienta y el texto plano en Reply.
func (s *GeminiService) ChooseAction(ctx context.Context, history []ports.Turn, tools []ports.ToolSpec) (ports.Action, error) {
	if s.apiKey == "" {
		return ports.Action{}, fmt.Errorf("%w: GEMINI_API_KEY no configurado", domain.ErrConfiguration)
	}
	if len(history) == 0 {
		return ports.Action{}, fmt.Errorf("%w: historial vacío", domain.ErrValidation)
	}

	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: SystemPrompt}}},
		Contents:          toGeminiContents(history),
		GenerationConfig: genConfig{
			Temperature:     0.2, // baja temperatura para respuestas más deterministas
			MaxOutputTokens: 1024,
		},
	}
	if len(tools) > 0 {
		decl := make([]geminiFunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decl = append(decl, geminiFunctionDeclaration{
				Name:        string(t.Name),
				Description: t.Description,
				Parameters:  geminiSchema(t.Schema),
			})
		}
		payload.Tools = []geminiTool{{FunctionDeclarations: decl}}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, url.PathEscape(s.model))
	var out geminiResponse
	start := time.Now()
	if err := postJSON(ctx, s.httpClient, endpoint, map[string]string{"x-goog-api-key": s.apiKey}, payload, &out, describeGeminiError); err != nil {
		return ports.Action{}, err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return ports.Action{}, fmt.Errorf("%w: AI: Gemini devolvió respuesta vacía", domain.ErrRemote)
	}
	cand := out.Candidates[0]
	s.log.Debug().Str("model", s.model).Str("finish_reason", cand.FinishReason).Dur("elapsed", time.Since(start)).Msg("respuesta del modelo")

	var text []string
	for _, p := range cand.Content.Parts {
		if p.FunctionCall != nil {
			args := p.FunctionCall.Args
			if len(args) == 0 || string(args) == "null" {
				args = json.RawMessage(`{}`)
			}
			return ports.Action{Kind: ports.ActionKind(p.FunctionCall.Name), Args: args, Text: strings.Join(text, "\n")}, nil
		}
		if t := strings.TrimSpace(p.Text); t != "" {
			text = append(text, t)
		}
	}
	joined := strings.Join(text, "\n")
	if a, ok := parseInlineToolCall(joined, tools); ok {
		return a, nil
	}
	if joined == "" {
		return ports.Action{}, fmt.Errorf("%w: AI: Gemini devolvió respuesta vacía", domain.ErrRemote)
	}
	return ports.Action{Kind: ports.ActionReply, Text: joined}, nil
}

// toGeminiContents traduce el historial; Gemini usa el rol "model" para el
// asistente y correlaciona resultados por nombre de función.
func toGeminiContents(history []ports.Turn) []geminiContent {
	var out []geminiContent
	push := func(role string, parts ...geminiPart) {
		if len(parts) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			return
		}
		out = append(out, geminiContent{Role: role, Parts: parts})
	}

	for _, t := range history {
		switch t.Role {
		case ports.RoleUser:
			if strings.TrimSpace(t.Text) != "" {
				push("user", geminiPart{Text: t.Text})
			}
		case ports.RoleAssistant:
			var parts []geminiPart
			if strings.TrimSpace(t.Text) != "" {
				parts = append(parts, geminiPart{Text: t.Text})
			}
			if t.Action != nil && t.Action.Kind.IsTool() {
				args := t.Action.Args
				if !json.Valid(args) {
					args = json.RawMessage(`{}`)
				}
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: string(t.Action.Kind), Args: args}})
			}
			push("model", parts...)
		case ports.RoleTool:
			resp := t.Result
			if !isJSONObject(resp) {
				wrapped, _ := json.Marshal(map[string]json.RawMessage{"result": asJSON(resp)})
				resp = wrapped
			}
			push("user", geminiPart{FunctionResponse: &geminiFunctionResponse{Name: string(t.Tool), Response: resp}})
		}
	}
	return out
}

// geminiAllowedKeys subconjunto de JSON Schema (OpenAPI) que acepta Gemini.
var geminiAllowedKeys = map[string]bool{
	"type": true, "properties": true, "required": true, "description": true,
	"items": true, "enum": true, "format": true, "minimum": true, "maximum": true, "nullable": true,
}

// geminiSchema elimina del esquema las claves que Gemini rechaza (additionalProperties, minLength, ...).
func geminiSchema(raw json.RawMessage) json.RawMessage {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return raw
	}
	out, err := json.Marshal(filterSchema(doc, false))
	if err != nil {
		return raw
	}
	return out
}

// filterSchema recorre el esquema; inProperties indica que las claves del mapa
// son nombres de propiedades y no palabras clave.
func filterSchema(node any, inProperties bool) any {
	m, ok := node.(map[string]any)
	if !ok {
		return node
	}
	res := make(map[string]any, len(m))
	for k, v := range m {
		switch {
		case inProperties:
			res[k] = filterSchema(v, false)
		case k == "properties":
			res[k] = filterSchema(v, true)
		case k == "items":
			res[k] = filterSchema(v, false)
		case geminiAllowedKeys[k]:
			res[k] = v
		}
	}
	return res
}

func isJSONObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{") && json.Valid(raw)
}

// asJSON devuelve raw si es JSON válido; si no, lo codifica como string.
func asJSON(raw json.RawMessage) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(string(raw))
	return b
}

func describeGeminiError(raw []byte) string {
	var er geminiResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != nil {
		return fmt.Sprintf("%d: %s", er.Error.Code, er.Error.Message)
	}
	return ""
}
