package agent

import (
	"regexp"
	"strings"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
)

// Reglas de conformidad de una trayectoria de atención.
const (
	RuleLookupFirst = "consulta_financeira deve vir antes de qualquer outra ferramenta"
	RuleNoTaxID     = "sem CNPJ informado nenhuma ferramenta pode ser chamada"
)

// Violation paso de la trayectoria que rompe una regla.
type Violation struct {
	Step int              `json:"step"`
	Tool ports.ActionKind `json:"tool"`
	Rule string           `json:"rule"`
}

// taxIDPattern 11 (CPF) o 14 (CNPJ) dígitos, con o sin puntuación.
var taxIDPattern = regexp.MustCompile(`\d{2,3}[.\s]?\d{3}[.\s]?\d{3}[/\s]?\d{4}[-\s]?\d{2}|\d{3}[.\s]?\d{3}[.\s]?\d{3}[-\s]?\d{2}`)

// MentionsTaxID indica si el texto del cliente trae algo con forma de CPF/CNPJ.
func MentionsTaxID(text string) bool {
	return taxIDPattern.MatchString(strings.TrimSpace(text))
}

// CheckTrajectory revisa la secuencia de herramientas de una conversación.
// taxIDGiven indica si el cliente llegó a informar un CNPJ/CPF.
func CheckTrajectory(steps []ports.ActionKind, taxIDGiven bool) []Violation {
	var out []Violation
	looked := false
	for i, kind := range steps {
		if !kind.IsTool() {
			continue
		}
		if !taxIDGiven {
			out = append(out, Violation{Step: i, Tool: kind, Rule: RuleNoTaxID})
			continue
		}
		if kind == ports.ActionLookup {
			looked = true
			continue
		}
		if !looked {
			out = append(out, Violation{Step: i, Tool: kind, Rule: RuleLookupFirst})
		}
	}
	return out
}

// Compliant atajo sobre CheckTrajectory.
func Compliant(steps []ports.ActionKind, taxIDGiven bool) bool {
	return len(CheckTrajectory(steps, taxIDGiven)) == 0
}
