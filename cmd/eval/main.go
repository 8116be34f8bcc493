// eval reproduce conversaciones de referencia contra el agente y verifica
// la trayectoria de herramientas de cada una.
//
// Uso:
//
//	go run ./cmd/eval
//	go run ./cmd/eval -provider anthropic -out report.json
//	go run ./cmd/eval -provider gemini -asaas
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/application/agent"
	"github.com/jhoicas/fernanda-api/internal/application/billing"
	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain/policy"
	infraai "github.com/jhoicas/fernanda-api/internal/infrastructure/ai"
	"github.com/jhoicas/fernanda-api/internal/infrastructure/asaas"
	"github.com/jhoicas/fernanda-api/pkg/config"
	"github.com/jhoicas/fernanda-api/pkg/logger"
)

// Scenario conversación de referencia y el flujo de herramientas esperado.
type Scenario struct {
	Name     string             `json:"name"`
	Messages []string           `json:"messages"`
	Expected []ports.ActionKind `json:"expected"`
}

// Scenarios casos base de la evaluación.
var Scenarios = []Scenario{
	{
		Name:     "Segunda Via Simples",
		Messages: []string{"Meu CNPJ é 01248526000158", "Preciso da segunda via do boleto"},
		Expected: []ports.ActionKind{ports.ActionLookup, ports.ActionReissue},
	},
	{
		Name:     "Transferir para Humano",
		Messages: []string{"CNPJ: 01248526000158", "Tenho uma questão muito específica sobre meu contrato"},
		Expected: []ports.ActionKind{ports.ActionLookup, ports.ActionEscalate},
	},
	{
		Name:     "Sem CNPJ",
		Messages: []string{"Preciso da segunda via do boleto"},
		Expected: nil,
	},
}

// Outcome resultado de un escenario.
type Outcome struct {
	Scenario   string             `json:"scenario"`
	Tools      []ports.ActionKind `json:"tools"`
	Replies    []string           `json:"replies"`
	Violations []agent.Violation  `json:"violations,omitempty"`
	Missing    []ports.ActionKind `json:"missing,omitempty"`
	Compliant  bool               `json:"compliant"`
	Error      string             `json:"error,omitempty"`
}

// Report resumen de la corrida.
type Report struct {
	Provider  string    `json:"provider"`
	StartedAt time.Time `json:"started_at"`
	Passed    int       `json:"passed"`
	Total     int       `json:"total"`
	Outcomes  []Outcome `json:"outcomes"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run devuelve el código de salida: 0 todo conforme, 1 algún escenario falló, 2 uso incorrecto.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("eval", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		provider string
		useAsaas bool
		out      string
		timeout  time.Duration
	)
	cmd.StringVar(&provider, "provider", "keywords", "tomador de decisión: keywords | anthropic | gemini")
	cmd.BoolVar(&useAsaas, "asaas", false, "usa el Asaas configurado (sandbox) en vez de la cartera de ejemplo")
	cmd.StringVar(&out, "out", "", "archivo donde escribir el reporte JSON")
	cmd.DurationVar(&timeout, "timeout", 5*time.Minute, "tiempo máximo de la corrida")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	switch provider {
	case "keywords", "anthropic", "gemini":
	default:
		_, _ = fmt.Fprintf(stderr, "Error: provider desconocido %q\n", provider)
		return 2
	}

	cfg := &config.Config{}
	if provider != "keywords" || useAsaas {
		loaded, err := config.Load()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "cargar configuración: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	log := logger.New(logger.Config{Env: "development", Level: "warn", Output: stderr})

	var billingProvider ports.BillingProvider = newSampleProvider()
	if useAsaas {
		billingProvider = asaas.NewClient(asaas.Config{
			APIKey:    cfg.Asaas.APIKey,
			Sandbox:   cfg.Asaas.Sandbox,
			BaseURL:   cfg.Asaas.BaseURL,
			Timeout:   cfg.Asaas.Timeout,
			RateLimit: cfg.Asaas.RateLimit,
			Burst:     cfg.Asaas.Burst,
		}, log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report := Report{Provider: provider, StartedAt: time.Now().UTC(), Total: len(Scenarios)}
	for _, sc := range Scenarios {
		svc, err := newService(provider, cfg, billingProvider, log)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "armar agente: %v\n", err)
			return 1
		}
		o := Evaluate(ctx, svc, sc)
		if o.Compliant {
			report.Passed++
		}
		report.Outcomes = append(report.Outcomes, o)
		printOutcome(stdout, o)
	}
	_, _ = fmt.Fprintf(stdout, "\n%d/%d escenarios conformes\n", report.Passed, report.Total)

	if out != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "serializar reporte: %v\n", err)
			return 1
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "escribir reporte: %v\n", err)
			return 1
		}
	}
	if report.Passed != report.Total {
		return 1
	}
	return 0
}

// newService arma un agente completo con ledger en memoria; cada escenario
// arranca sin descuentos previos.
func newService(provider string, cfg *config.Config, bp ports.BillingProvider, log *logger.Logger) (*agent.ConversationService, error) {
	ledger := &memoryLedger{}
	discount := policy.DefaultDiscountPolicy()
	if cfg.Policy.DiscountPercent > 0 {
		discount.Percent = decimal.NewFromFloat(cfg.Policy.DiscountPercent)
	}
	negotiations := billing.NewNegotiationUseCase(ledger, ledger, log)
	escalation, err := billing.NewEscalationUseCase(1, log)
	if err != nil {
		return nil, err
	}
	toolset, err := agent.NewToolset()
	if err != nil {
		return nil, err
	}
	dispatcher := agent.NewDispatcher(toolset, agent.Deps{
		Lookup:     billing.NewLookupUseCase(bp, log),
		Reissue:    billing.NewReissueUseCase(bp, ledger, discount, log),
		Ledger:     negotiations,
		Documents:  billing.NewDocumentUseCase(nil, nil, billing.Beneficiary{Name: cfg.Policy.BeneficiaryName, TaxID: cfg.Policy.BeneficiaryCNPJ}, log),
		Escalation: escalation,
	}, log)
	return agent.NewConversationService(newDecider(provider, cfg, log), dispatcher, agent.NewMemoryStore(), nil,
		agent.ServiceConfig{MaxSteps: cfg.Agent.MaxSteps, TurnTimeout: cfg.Agent.TurnTimeout}, log), nil
}

func newDecider(provider string, cfg *config.Config, log *logger.Logger) ports.DecisionMaker {
	switch provider {
	case "anthropic":
		return infraai.NewAnthropicService(infraai.AnthropicConfig{
			APIKey:  cfg.AI.AnthropicAPIKey,
			Model:   cfg.AI.AnthropicModel,
			BaseURL: cfg.AI.AnthropicBaseURL,
			Timeout: cfg.AI.Timeout,
		}, log)
	case "gemini":
		return infraai.NewGeminiService(infraai.GeminiConfig{
			APIKey:  cfg.AI.GeminiAPIKey,
			Model:   cfg.AI.GeminiModel,
			BaseURL: cfg.AI.GeminiBaseURL,
			Timeout: cfg.AI.Timeout,
		}, log)
	default:
		return infraai.NewKeywordDecider()
	}
}

// Evaluate reproduce los mensajes del escenario en una conversación nueva y
// compara la trayectoria contra las reglas y el flujo esperado.
func Evaluate(ctx context.Context, svc *agent.ConversationService, sc Scenario) Outcome {
	o := Outcome{Scenario: sc.Name}
	convID := "eval-" + strings.ToLower(strings.ReplaceAll(sc.Name, " ", "-"))
	taxIDGiven := false
	for _, msg := range sc.Messages {
		if agent.MentionsTaxID(msg) {
			taxIDGiven = true
		}
		resp, err := svc.HandleMessage(ctx, convID, msg)
		if err != nil {
			o.Error = err.Error()
			return o
		}
		o.Replies = append(o.Replies, resp.Reply)
		for _, call := range resp.Tools {
			o.Tools = append(o.Tools, ports.ActionKind(call.Tool))
		}
	}
	o.Violations = agent.CheckTrajectory(o.Tools, taxIDGiven)
	o.Missing = missingInOrder(o.Tools, sc.Expected)
	o.Compliant = len(o.Violations) == 0 && len(o.Missing) == 0
	if sc.Expected == nil && len(o.Tools) > 0 {
		o.Compliant = false
	}
	return o
}

// missingInOrder devuelve los pasos esperados que no aparecen como
// subsecuencia de la trayectoria real.
func missingInOrder(got, expected []ports.ActionKind) []ports.ActionKind {
	i := 0
	for _, k := range got {
		if i < len(expected) && k == expected[i] {
			i++
		}
	}
	if i == len(expected) {
		return nil
	}
	return slices.Clone(expected[i:])
}

func printOutcome(w io.Writer, o Outcome) {
	mark := "OK  "
	if !o.Compliant {
		mark = "FAIL"
	}
	tools := make([]string, len(o.Tools))
	for i, t := range o.Tools {
		tools[i] = string(t)
	}
	_, _ = fmt.Fprintf(w, "[%s] %s: %s\n", mark, o.Scenario, strings.Join(tools, " -> "))
	for _, v := range o.Violations {
		_, _ = fmt.Fprintf(w, "       paso %d (%s): %s\n", v.Step, v.Tool, v.Rule)
	}
	if len(o.Missing) > 0 {
		_, _ = fmt.Fprintf(w, "       faltan: %v\n", o.Missing)
	}
	if o.Error != "" {
		_, _ = fmt.Fprintf(w, "       error: %s\n", o.Error)
	}
}
