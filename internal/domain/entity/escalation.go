package entity

import "time"

// EscalationTicket transferencia a un atendente humano. Efímero: no se persiste,
// el contexto viaja sin modificar para el ruteo humano.
type EscalationTicket struct {
	ID        string
	Context   string
	CreatedAt time.Time
}
