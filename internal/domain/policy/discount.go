// Package policy contiene las reglas de negocio de la atención financiera:
// descuento de primera negociación, vencimiento de la segunda vía y
// verificación de comprobantes de pago. No depende de infraestructura.
package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultDiscountPercent descuento de primera negociación (5%).
	DefaultDiscountPercent = 5
	// DefaultDiscountBusinessDays vigencia del descuento en días hábiles.
	DefaultDiscountBusinessDays = 3
	// ReissueDueDays días corridos hasta el nuevo vencimiento de la segunda vía.
	ReissueDueDays = 3
)

var hundred = decimal.NewFromInt(100)

// DiscountPolicy política de descuento de primera negociación.
type DiscountPolicy struct {
	Percent      decimal.Decimal
	BusinessDays int
}

// DefaultDiscountPolicy 5% válido por 3 días hábiles.
func DefaultDiscountPolicy() DiscountPolicy {
	return DiscountPolicy{
		Percent:      decimal.NewFromInt(DefaultDiscountPercent),
		BusinessDays: DefaultDiscountBusinessDays,
	}
}

// DiscountDecision resultado de aplicar la política a un boleto.
type DiscountDecision struct {
	Eligible   bool
	Percent    decimal.Decimal
	Amount     decimal.Decimal // monto descontado
	FinalValue decimal.Decimal // valor a emitir en la segunda vía
	ValidUntil time.Time       // zero si no aplica
}

// Decide aplica el descuento si y solo si no hay negociaciones previas para el CNPJ.
// La vigencia nunca pasa del vencimiento de la segunda vía (ReissueDueDate).
func (p DiscountPolicy) Decide(total decimal.Decimal, priorNegotiations int, today time.Time) DiscountDecision {
	if priorNegotiations > 0 || !p.Percent.IsPositive() {
		return DiscountDecision{FinalValue: total, Percent: decimal.Zero, Amount: decimal.Zero}
	}
	amount := total.Mul(p.Percent).Div(hundred).Round(2)
	return DiscountDecision{
		Eligible:   true,
		Percent:    p.Percent,
		Amount:     amount,
		FinalValue: total.Sub(amount),
		ValidUntil: discountDeadline(today, p.BusinessDays),
	}
}

func discountDeadline(today time.Time, businessDays int) time.Time {
	until := AddBusinessDays(today, businessDays)
	if due := ReissueDueDate(today); due.Before(until) {
		return due
	}
	return until
}

// AddBusinessDays suma n días hábiles (lunes a viernes) a la fecha.
func AddBusinessDays(from time.Time, n int) time.Time {
	d := truncateDay(from)
	for n > 0 {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return d
}

// ReissueDueDate vencimiento de la segunda vía: hoy + 3 días corridos,
// independientemente del vencimiento original.
func ReissueDueDate(today time.Time) time.Time {
	return truncateDay(today).AddDate(0, 0, ReissueDueDays)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
