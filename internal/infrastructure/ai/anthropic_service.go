package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

// Verificar en tiempo de compilación que AnthropicService implementa DecisionMaker.
var _ ports.DecisionMaker = (*AnthropicService)(nil)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 1024
)

// AnthropicConfig parámetros del adaptador.
type AnthropicConfig struct {
	APIKey  string
	Model   string // p. ej. "claude-3-5-haiku-20241022"
	BaseURL string // opcional (tests, proxies)
	Timeout time.Duration
}

// AnthropicService adaptador que implementa DecisionMaker usando la Messages API
// de Anthropic con tool use nativo. Usa net/http; no requiere el SDK oficial.
type AnthropicService struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewAnthropicService construye el adaptador.
// Si APIKey está vacío las llamadas devuelven ErrConfiguration en lugar de panic.
func NewAnthropicService(cfg AnthropicConfig, log *logger.Logger) *AnthropicService {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = anthropicDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &AnthropicService{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Component("anthropic"),
	}
}

// ── Estructuras internas del protocolo Anthropic Messages API ─────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

// anthropicBlock bloque de contenido: text, tool_use o tool_result.
type anthropicBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// ChooseAction envía el historial a Claude y traduce la respuesta: un bloque
// tool_use se convierte en la acción de esa herramienta; solo texto, en Reply.
func (s *AnthropicService) ChooseAction(ctx context.Context, history []ports.Turn, tools []ports.ToolSpec) (ports.Action, error) {
	if s.apiKey == "" {
		return ports.Action{}, fmt.Errorf("%w: ANTHROPIC_API_KEY no configurado", domain.ErrConfiguration)
	}
	if len(history) == 0 {
		return ports.Action{}, fmt.Errorf("%w: historial vacío", domain.ErrValidation)
	}

	payload := anthropicRequest{
		Model:     s.model,
		MaxTokens: anthropicMaxTokens,
		System:    SystemPrompt,
		Messages:  toAnthropicMessages(history),
	}
	for _, t := range tools {
		payload.Tools = append(payload.Tools, anthropicTool{Name: string(t.Name), Description: t.Description, InputSchema: t.Schema})
	}

	var out anthropicResponse
	headers := map[string]string{"x-api-key": s.apiKey, "anthropic-version": anthropicVersion}
	start := time.Now()
	if err := postJSON(ctx, s.httpClient, s.baseURL+"/v1/messages", headers, payload, &out, describeAnthropicError); err != nil {
		return ports.Action{}, err
	}
	s.log.Debug().Str("model", s.model).Str("stop_reason", out.StopReason).Dur("elapsed", time.Since(start)).Msg("respuesta del modelo")

	var text []string
	for _, b := range out.Content {
		switch b.Type {
		case "text":
			if t := strings.TrimSpace(b.Text); t != "" {
				text = append(text, t)
			}
		case "tool_use":
			args := b.Input
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			return ports.Action{Kind: ports.ActionKind(b.Name), CallID: b.ID, Args: args, Text: strings.Join(text, "\n")}, nil
		}
	}
	joined := strings.Join(text, "\n")
	if a, ok := parseInlineToolCall(joined, tools); ok {
		return a, nil
	}
	if joined == "" {
		return ports.Action{}, fmt.Errorf("%w: AI: Claude devolvió respuesta vacía", domain.ErrRemote)
	}
	return ports.Action{Kind: ports.ActionReply, Text: joined}, nil
}

// toAnthropicMessages traduce el historial y fusiona turnos consecutivos del
// mismo rol (la API exige alternancia user/assistant).
func toAnthropicMessages(history []ports.Turn) []anthropicMessage {
	var msgs []anthropicMessage
	push := func(role string, blocks ...anthropicBlock) {
		if len(blocks) == 0 {
			return
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
			return
		}
		msgs = append(msgs, anthropicMessage{Role: role, Content: blocks})
	}

	for _, t := range history {
		switch t.Role {
		case ports.RoleUser:
			if strings.TrimSpace(t.Text) != "" {
				push("user", anthropicBlock{Type: "text", Text: t.Text})
			}
		case ports.RoleAssistant:
			var blocks []anthropicBlock
			if strings.TrimSpace(t.Text) != "" {
				blocks = append(blocks, anthropicBlock{Type: "text", Text: t.Text})
			}
			if t.Action != nil && t.Action.Kind.IsTool() {
				input := t.Action.Args
				if !json.Valid(input) {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropicBlock{Type: "tool_use", ID: t.Action.CallID, Name: string(t.Action.Kind), Input: input})
			}
			push("assistant", blocks...)
		case ports.RoleTool:
			push("user", anthropicBlock{
				Type:      "tool_result",
				ToolUseID: t.CallID,
				Content:   string(t.Result),
				IsError:   toolFailed(t.Result),
			})
		}
	}
	return msgs
}

func describeAnthropicError(raw []byte) string {
	var er anthropicResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != nil {
		return er.Error.Type + ": " + er.Error.Message
	}
	return ""
}

// toolFailed lee el status del resultado serializado.
func toolFailed(result json.RawMessage) bool {
	var o struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(result, &o) != nil {
		return false
	}
	return o.Status == "error"
}
