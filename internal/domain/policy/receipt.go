package policy

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

var (
	// 1.234,56 | 1234,56 | R$ 99,90
	brAmountRe = regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})+,\d{2}\b|\b\d+,\d{2}\b`)
	brDateRe   = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	isoDateRe  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	cnpjRe     = regexp.MustCompile(`\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}`)

	amountTolerance = decimal.NewFromFloat(0.01)
)

// ReceiptExpectation datos contra los que se contrasta el texto extraído.
type ReceiptExpectation struct {
	Charges          []*entity.Charge // foto vigente de pendencias del cliente verificado
	ChargeID         string           // opcional: boleto específico
	BeneficiaryName  string           // razón social del beneficiario esperado
	BeneficiaryTaxID string           // CNPJ del beneficiario esperado
	Today            time.Time
	// ExtractionConfidence confianza informada por el servicio de extracción (nil = no informada).
	ExtractionConfidence *float64
}

// ValidateReceipt contrasta valor, fecha y beneficiario del comprobante con la
// pendencia esperada. Es válido solo si todas las verificaciones pasan; si no,
// Mismatches indica qué pedir en el reenvío.
func ValidateReceipt(text string, exp ReceiptExpectation) entity.DocumentValidation {
	var mismatches []string
	amounts := ParseAmounts(text)
	dates := ParseDates(text)

	charge, err := expectedCharge(exp, amounts)
	if err != nil {
		mismatches = append(mismatches, err.Error())
	}

	checks, passed := 0, 0

	checks++
	if charge != nil && matchesAmount(amounts, charge) {
		passed++
	} else if charge != nil {
		mismatches = append(mismatches, fmt.Sprintf("valor do comprovante não confere com o boleto %s (esperado R$ %s)", charge.ID, charge.Total.StringFixed(2)))
	} else if len(amounts) == 0 {
		mismatches = append(mismatches, "valor não encontrado no comprovante")
	}

	checks++
	if msg := checkDate(dates, charge, exp.Today); msg == "" {
		passed++
	} else {
		mismatches = append(mismatches, msg)
	}

	if exp.BeneficiaryName != "" || exp.BeneficiaryTaxID != "" {
		checks++
		if matchesBeneficiary(text, exp.BeneficiaryName, exp.BeneficiaryTaxID) {
			passed++
		} else {
			mismatches = append(mismatches, "beneficiário do comprovante não confere")
		}
	}

	confidence := float64(passed) / float64(checks)
	if exp.ExtractionConfidence != nil {
		confidence *= clamp01(*exp.ExtractionConfidence)
	}

	out := entity.DocumentValidation{
		Valid:      passed == checks && charge != nil,
		Confidence: confidence,
		Mismatches: mismatches,
	}
	if charge != nil {
		out.ChargeID = charge.ID
	}
	return out
}

// ParseAmounts extrae montos en formato brasileño (1.234,56).
func ParseAmounts(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range brAmountRe.FindAllString(text, -1) {
		raw := strings.ReplaceAll(m, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
		if d, err := decimal.NewFromString(raw); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// ParseDates extrae fechas dd/mm/aaaa y aaaa-mm-dd válidas.
func ParseDates(text string) []time.Time {
	var out []time.Time
	for _, m := range brDateRe.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("02/01/2006", m[0]); err == nil {
			out = append(out, t)
		}
	}
	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		if t, err := time.Parse("2006-01-02", m[0]); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// Fold normaliza texto para comparaciones: minúsculas, sin acentos ni espacios repetidos.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func expectedCharge(exp ReceiptExpectation, amounts []decimal.Decimal) (*entity.Charge, error) {
	if exp.ChargeID != "" {
		for _, c := range exp.Charges {
			if c.ID == exp.ChargeID {
				return c, nil
			}
		}
		return nil, fmt.Errorf("boleto %s não pertence ao cliente consultado", exp.ChargeID)
	}
	var open []*entity.Charge
	for _, c := range exp.Charges {
		if !c.Paid {
			open = append(open, c)
		}
	}
	for _, c := range open {
		if matchesAmount(amounts, c) {
			return c, nil
		}
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("cliente sem pendências em aberto para este comprovante")
	}
	return nil, fmt.Errorf("nenhuma pendência em aberto com o valor do comprovante")
}

func matchesAmount(amounts []decimal.Decimal, c *entity.Charge) bool {
	for _, a := range amounts {
		if a.Sub(c.Total).Abs().LessThanOrEqual(amountTolerance) ||
			a.Sub(c.Value).Abs().LessThanOrEqual(amountTolerance) {
			return true
		}
	}
	return false
}

func checkDate(dates []time.Time, charge *entity.Charge, today time.Time) string {
	if len(dates) == 0 {
		return "data de pagamento não encontrada no comprovante"
	}
	// las fechas del comprobante son días de calendario en UTC
	limit := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	var from time.Time
	if charge != nil {
		from = charge.CreatedOn()
	}
	for _, d := range dates {
		if d.After(limit) {
			continue
		}
		if !from.IsZero() && d.Before(from) {
			continue
		}
		return ""
	}
	return "data do comprovante fora do período do boleto"
}

func matchesBeneficiary(text, name, cnpj string) bool {
	if name != "" && strings.Contains(Fold(text), Fold(name)) {
		return true
	}
	if want := taxid.Normalize(cnpj); want != "" {
		for _, m := range cnpjRe.FindAllString(text, -1) {
			if taxid.Normalize(m) == want {
				return true
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
