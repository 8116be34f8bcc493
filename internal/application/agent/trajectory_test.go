package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
)

func TestCheckTrajectory(t *testing.T) {
	tests := []struct {
		name       string
		steps      []ports.ActionKind
		taxIDGiven bool
		want       []Violation
	}{
		{
			name:       "segunda via",
			steps:      []ports.ActionKind{ports.ActionLookup, ports.ActionReissue},
			taxIDGiven: true,
		},
		{
			name:       "transferir para humano",
			steps:      []ports.ActionKind{ports.ActionLookup, ports.ActionEscalate},
			taxIDGiven: true,
		},
		{
			name:       "sem CNPJ e sem ferramentas",
			steps:      nil,
			taxIDGiven: false,
		},
		{
			name:       "respostas não contam",
			steps:      []ports.ActionKind{ports.ActionReply, ports.ActionLookup, ports.ActionReply},
			taxIDGiven: true,
		},
		{
			name:       "segunda via sem consulta",
			steps:      []ports.ActionKind{ports.ActionReissue, ports.ActionLookup},
			taxIDGiven: true,
			want:       []Violation{{Step: 0, Tool: ports.ActionReissue, Rule: RuleLookupFirst}},
		},
		{
			name:       "ferramenta sem CNPJ",
			steps:      []ports.ActionKind{ports.ActionLookup, ports.ActionReissue},
			taxIDGiven: false,
			want: []Violation{
				{Step: 0, Tool: ports.ActionLookup, Rule: RuleNoTaxID},
				{Step: 1, Tool: ports.ActionReissue, Rule: RuleNoTaxID},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckTrajectory(tt.steps, tt.taxIDGiven)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want) == 0, Compliant(tt.steps, tt.taxIDGiven))
		})
	}
}

func TestMentionsTaxID(t *testing.T) {
	assert.True(t, MentionsTaxID("Meu CNPJ é 01248526000158"))
	assert.True(t, MentionsTaxID("CNPJ: 22.333.444/0001-55"))
	assert.True(t, MentionsTaxID("cpf 123.456.789-09"))
	assert.False(t, MentionsTaxID("Preciso da segunda via do boleto"))
	assert.False(t, MentionsTaxID("pedido 12345"))
}
