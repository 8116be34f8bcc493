package entity

import "time"

// Negotiation registro append-only de una negociación (tabla negociacoes).
// Se crea una vez por evento; nunca se actualiza ni se elimina.
type Negotiation struct {
	ID        int64
	TaxID     string // CNPJ/CPF normalizado (solo dígitos)
	Details   string
	CreatedAt time.Time // generado por el servidor (DEFAULT now())
}
