package ports

import (
	"context"
	"encoding/json"
)

// ActionKind variante de acción que puede elegir el tomador de decisión.
// Salvo Reply, cada variante corresponde a una herramienta con nombre fijo.
type ActionKind string

const (
	ActionLookup            ActionKind = "consulta_financeira"
	ActionReissue           ActionKind = "atualizar_boleto"
	ActionRecordNegotiation ActionKind = "registrar_negociacao"
	ActionCheckNegotiations ActionKind = "verificar_negociacao"
	ActionValidateDocument  ActionKind = "validar_comprovante"
	ActionEscalate          ActionKind = "transferir_humano"
	ActionReply             ActionKind = "responder"
)

// IsTool indica si la acción invoca una herramienta (todo salvo Reply).
func (k ActionKind) IsTool() bool {
	switch k {
	case ActionLookup, ActionReissue, ActionRecordNegotiation,
		ActionCheckNegotiations, ActionValidateDocument, ActionEscalate:
		return true
	}
	return false
}

// Action decisión del modelo para el siguiente paso de la conversación.
type Action struct {
	Kind   ActionKind
	CallID string          // id de la llamada (tool_use) para correlacionar el resultado
	Args   json.RawMessage // argumentos JSON de la herramienta
	Text   string          // texto al cliente (Reply) o razonamiento previo a la herramienta
}

// TurnRole autor de un turno del historial.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleTool      TurnRole = "tool"
)

// Turn elemento del historial de conversación que se entrega al modelo.
//   - user: Text del cliente.
//   - assistant: Text de respuesta, o Action con la herramienta invocada.
//   - tool: Result de la herramienta CallID.
type Turn struct {
	Role   TurnRole        `json:"role"`
	Text   string          `json:"text,omitempty"`
	Action *Action         `json:"action,omitempty"`
	CallID string          `json:"call_id,omitempty"`
	Tool   ActionKind      `json:"tool,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ToolSpec descripción de una herramienta expuesta al modelo (JSON Schema de argumentos).
type ToolSpec struct {
	Name        ActionKind
	Description string
	Schema      json.RawMessage
}

// DecisionMaker puerto de salida hacia el modelo de lenguaje.
// Cualquier adaptador (Anthropic, Gemini, mock) debe implementar esta interfaz;
// la aplicación solo conoce este contrato.
type DecisionMaker interface {
	// ChooseAction decide la próxima acción a partir del historial.
	// El contexto debe llevar un timeout para evitar bloqueos en llamadas externas.
	ChooseAction(ctx context.Context, history []Turn, tools []ToolSpec) (Action, error)
}
