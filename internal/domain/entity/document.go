package entity

// DocumentValidation resultado derivado (no almacenado) de validar un comprobante.
type DocumentValidation struct {
	Valid      bool
	Confidence float64  // [0,1]
	ChargeID   string   // pendencia contra la cual se validó (vacío si ninguna coincidió)
	Mismatches []string // motivos para pedir un nuevo comprobante
}
