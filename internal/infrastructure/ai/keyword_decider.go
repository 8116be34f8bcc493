package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
)

var _ ports.DecisionMaker = (*KeywordDecider)(nil)

const closing = "Posso ajudar com mais alguma coisa? 😊"

var docPattern = regexp.MustCompile(`\d{2,3}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}|\d{3}\.?\d{3}\.?\d{3}-?\d{2}`)

// Palabras clave por intención (texto ya normalizado con policy.Fold).
var (
	reissueWords     = []string{"segunda via", "2a via", "boleto", "fatura"}
	escalateWords    = []string{"parcel", "contrato", "especific", "humano", "atendente", "reclama", "cancel"}
	negotiationWords = []string{"negociac", "acordo"}
	receiptWords     = []string{"comprovante", "paguei", "pagamento feito"}
)

// KeywordDecider tomador de decisión determinista basado en palabras clave.
// Sigue el mismo flujo que el modelo (consulta primero, después la intención)
// y sirve para desarrollo sin credenciales y para cmd/eval.
type KeywordDecider struct{}

// NewKeywordDecider construye el decisor.
func NewKeywordDecider() *KeywordDecider { return &KeywordDecider{} }

// keywordState lo que el decisor necesita saber del historial.
type keywordState struct {
	userText   string
	afterUser  []ports.Turn
	lookup     *dto.LookupOutput // última consulta de toda la conversación
	calledNow  map[ports.ActionKind]bool
	lastResult *ports.Turn
}

func readState(history []ports.Turn) keywordState {
	st := keywordState{calledNow: map[ports.ActionKind]bool{}}
	lastUser := -1
	for i, t := range history {
		if t.Role == ports.RoleUser {
			lastUser = i
		}
		if t.Role == ports.RoleTool && t.Tool == ports.ActionLookup {
			var out dto.LookupOutput
			if json.Unmarshal(t.Result, &out) == nil {
				st.lookup = &out
			}
		}
	}
	if lastUser >= 0 {
		st.userText = history[lastUser].Text
		st.afterUser = history[lastUser+1:]
	}
	for i := range st.afterUser {
		t := st.afterUser[i]
		if t.Role == ports.RoleTool {
			st.calledNow[t.Tool] = true
			st.lastResult = &st.afterUser[i]
		}
	}
	return st
}

func (st keywordState) verified() bool {
	return st.lookup != nil && st.lookup.Status == dto.StatusSuccess && st.lookup.Cliente != nil
}

// ChooseAction decide el próximo paso.
func (d *KeywordDecider) ChooseAction(_ context.Context, history []ports.Turn, tools []ports.ToolSpec) (ports.Action, error) {
	if len(history) == 0 {
		return ports.Action{}, fmt.Errorf("%w: historial vacío", domain.ErrValidation)
	}
	st := readState(history)
	text := policy.Fold(st.userText)

	if doc := docPattern.FindString(st.userText); doc != "" && !st.calledNow[ports.ActionLookup] {
		return toolAction(ports.ActionLookup, map[string]string{"cnpj": doc}), nil
	}
	if !st.verified() {
		if st.calledNow[ports.ActionLookup] && st.lookup != nil && st.lookup.Status == dto.StatusNotFound {
			return reply("Não encontrei nenhum cadastro com esse CNPJ. Pode conferir o número e me enviar novamente?"), nil
		}
		if st.calledNow[ports.ActionLookup] {
			return reply(apologyText), nil
		}
		return reply("Oi! Sou a Fernanda da NEXUZ. Para começar, me informe seu CNPJ, por favor. Assim posso te ajudar da melhor forma possível."), nil
	}

	switch {
	case containsAny(text, escalateWords) && !st.calledNow[ports.ActionEscalate]:
		return toolAction(ports.ActionEscalate, map[string]string{"contexto": fmt.Sprintf("Cliente %s: %s", st.lookup.Cliente.Nome, st.userText)}), nil
	case containsAny(text, reissueWords) && !st.calledNow[ports.ActionReissue]:
		if id := firstOpenCharge(st.lookup); id != "" {
			return toolAction(ports.ActionReissue, map[string]string{"boleto_id": id}), nil
		}
		return reply("Verifiquei aqui e você não tem boletos em aberto. " + closing), nil
	case containsAny(text, negotiationWords) && !st.calledNow[ports.ActionCheckNegotiations]:
		return toolAction(ports.ActionCheckNegotiations, map[string]string{"cnpj": st.lookup.Cliente.CNPJ}), nil
	case containsAny(text, receiptWords) && st.lastResult == nil:
		return reply("Claro! Envie o comprovante em PDF, JPG ou PNG que eu faço a conferência."), nil
	}
	return reply(summarize(st)), nil
}

const apologyText = "Desculpe, tive um problema para consultar seus dados agora. Pode tentar novamente em instantes?"

// summarize redacta la respuesta a partir del último resultado del turno.
func summarize(st keywordState) string {
	if st.lastResult == nil {
		return "Como posso ajudar? Posso enviar a segunda via do boleto, conferir um comprovante ou consultar suas negociações."
	}
	raw := st.lastResult.Result
	var o dto.Outcome
	_ = json.Unmarshal(raw, &o)
	if o.Status == dto.StatusError {
		return apologyText
	}

	switch st.lastResult.Tool {
	case ports.ActionLookup:
		open := 0
		for _, c := range st.lookup.Pendencias {
			if !c.Pago {
				open++
			}
		}
		if open == 0 {
			return fmt.Sprintf("Prontinho, encontrei o cadastro da %s e não há pendências em aberto. Como posso ajudar?", st.lookup.Cliente.Nome)
		}
		return fmt.Sprintf("Prontinho, encontrei o cadastro da %s. Há %d pendência(s) em aberto, total de R$ %s. Como posso ajudar?",
			st.lookup.Cliente.Nome, open, st.lookup.TotalEmAberto.StringFixed(2))
	case ports.ActionReissue:
		var out dto.ReissueOutput
		if json.Unmarshal(raw, &out) != nil || out.Boleto == nil {
			return apologyText
		}
		msg := fmt.Sprintf("Segunda via gerada com vencimento em %s: %s", out.Boleto.Vencimento, out.Boleto.LinkBoleto)
		if out.Desconto != nil {
			msg += fmt.Sprintf("\n🎁 Como é sua primeira negociação, aplicamos %s%% de desconto: R$ %s, válido até %s.",
				out.Desconto.Percentual.String(), out.Desconto.ValorFinal.StringFixed(2), out.Desconto.ValidoAte)
		}
		return msg + "\n" + closing
	case ports.ActionEscalate:
		var out dto.EscalationOutput
		_ = json.Unmarshal(raw, &out)
		return fmt.Sprintf("Entendo! Transferi seu atendimento para um de nossos especialistas (protocolo %s). Em breve alguém continua a conversa com você.", out.Ticket)
	case ports.ActionCheckNegotiations:
		var out dto.CheckNegotiationsOutput
		_ = json.Unmarshal(raw, &out)
		if len(out.Negociacoes) == 0 {
			return "Não encontrei negociações anteriores para o seu CNPJ. " + closing
		}
		return fmt.Sprintf("Encontrei %d negociação(ões). A mais recente: %s. %s", len(out.Negociacoes), out.Negociacoes[0].Detalhes, closing)
	case ports.ActionValidateDocument:
		var out dto.DocumentValidationOutput
		_ = json.Unmarshal(raw, &out)
		if out.Valido {
			return "Comprovante conferido, está tudo certo! " + closing
		}
		return "Não consegui confirmar o comprovante: " + strings.Join(out.Divergencias, "; ") + ". Pode enviar um novo arquivo?"
	}
	return closing
}

func firstOpenCharge(l *dto.LookupOutput) string {
	for _, c := range l.Pendencias {
		if !c.Pago && c.ValorTotal.IsPositive() {
			return c.ID
		}
	}
	return ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func toolAction(kind ports.ActionKind, args map[string]string) ports.Action {
	raw, _ := json.Marshal(args)
	return ports.Action{Kind: kind, Args: raw}
}

func reply(text string) ports.Action {
	return ports.Action{Kind: ports.ActionReply, Text: text}
}
