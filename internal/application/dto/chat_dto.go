package dto

import "time"

// SendMessageRequest mensaje del cliente recibido por el canal.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// ToolCallDTO herramienta invocada durante el turno.
type ToolCallDTO struct {
	Tool   string `json:"tool"`
	Status string `json:"status"`
}

// MessageResponse respuesta de Fernanda y trayectoria del turno.
type MessageResponse struct {
	ConversationID string        `json:"conversation_id"`
	Reply          string        `json:"reply"`
	Tools          []ToolCallDTO `json:"tools"`
	Steps          int           `json:"steps"`
	Escalated      bool          `json:"escalated"`
	Ticket         string        `json:"ticket,omitempty"`
}

// SessionSummaryResponse estado de una conversación para operadores.
type SessionSummaryResponse struct {
	ConversationID string       `json:"conversation_id"`
	Verificado     bool         `json:"verificado"`
	Cliente        *CustomerDTO `json:"cliente,omitempty"`
	Pendencias     []ChargeDTO  `json:"pendencias,omitempty"`
	DescontoDado   bool         `json:"desconto_dado"`
	Trajetoria     []string     `json:"trajetoria"`
	Turnos         int          `json:"turnos"`
	AtualizadoEm   time.Time    `json:"atualizado_em"`
}

// NegotiationListResponse historial paginado de un CNPJ.
type NegotiationListResponse struct {
	CNPJ        string           `json:"cnpj"`
	Negociacoes []NegotiationDTO `json:"negociacoes"`
	Page        PageResponse     `json:"page"`
}
