package entity

import "time"

// Roles válidos para Operator.
const (
	RoleAdmin  = "admin"
	RoleAgente = "agente" // atendente humano que recibe transferencias
	RoleCanal  = "canal"  // integración de canal (WhatsApp, webchat)
)

// Operator cuenta con acceso a la API: atendentes humanos e integraciones de canal.
type Operator struct {
	ID           string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Name         string
	Role         string // admin, agente, canal
	Status       string // active, inactive
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
