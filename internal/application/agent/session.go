package agent

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// Session estado de una conversación: historial, cliente verificado y la
// última foto de pendencias. El cliente solo se fija vía consulta_financeira.
type Session struct {
	ConversationID string             `json:"conversation_id"`
	History        []ports.Turn       `json:"history"`
	Customer       *entity.Customer   `json:"customer,omitempty"`
	Charges        []*entity.Charge   `json:"charges,omitempty"`
	DiscountGiven  bool               `json:"discount_given"`
	Trajectory     []ports.ActionKind `json:"trajectory,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewSession sesión vacía.
func NewSession(conversationID string) *Session {
	return &Session{ConversationID: conversationID}
}

// Verified indica si la compuerta de CNPJ está abierta.
func (s *Session) Verified() bool {
	return s.Customer != nil
}

// Verify fija el cliente y su foto de pendencias.
func (s *Session) Verify(c *entity.Customer, charges []*entity.Charge) {
	s.Customer = c
	s.Charges = charges
}

// ClearCustomer cierra la compuerta (consulta sin resultado).
func (s *Session) ClearCustomer() {
	s.Customer = nil
	s.Charges = nil
}

// ReplaceCharge reemplaza en la foto el boleto reemitido.
func (s *Session) ReplaceCharge(updated *entity.Charge) {
	if updated == nil {
		return
	}
	for i, c := range s.Charges {
		if c.ID == updated.ID {
			s.Charges[i] = updated
			return
		}
	}
}

// SessionStore persistencia de sesiones (Redis o memoria).
// Load devuelve una sesión nueva si no existe.
type SessionStore interface {
	Load(ctx context.Context, conversationID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, conversationID string) error
}

// MemoryStore SessionStore en proceso; para desarrollo, tests y cmd/eval.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore construye el store vacío.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		cp.History = append([]ports.Turn(nil), s.History...)
		cp.Charges = append([]*entity.Charge(nil), s.Charges...)
		cp.Trajectory = append([]ports.ActionKind(nil), s.Trajectory...)
		return &cp, nil
	}
	return NewSession(id), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ConversationID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
