package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jhoicas/fernanda-api/internal/application/ports"
	"github.com/jhoicas/fernanda-api/internal/domain"
)

// Catálogo fijo de herramientas expuestas al modelo. Las descripciones
// están en portugués porque el modelo conversa en portugués.
var toolCatalog = []struct {
	kind        ports.ActionKind
	description string
	schema      string
}{
	{
		kind:        ports.ActionLookup,
		description: "Busca o cliente pelo CNPJ/CPF no Asaas e lista suas pendências. Use SEMPRE antes de qualquer outra ferramenta financeira.",
		schema: `{
			"type": "object",
			"properties": {"cnpj": {"type": "string", "minLength": 1, "description": "CNPJ ou CPF informado pelo cliente"}},
			"required": ["cnpj"],
			"additionalProperties": false
		}`,
	},
	{
		kind:        ports.ActionReissue,
		description: "Gera a segunda via de um boleto em aberto do cliente consultado, com vencimento em 3 dias. O desconto de primeira negociação é aplicado automaticamente quando cabível.",
		schema: `{
			"type": "object",
			"properties": {"boleto_id": {"type": "string", "minLength": 1, "description": "id da pendência retornada por consulta_financeira"}},
			"required": ["boleto_id"],
			"additionalProperties": false
		}`,
	},
	{
		kind:        ports.ActionRecordNegotiation,
		description: "Registra os detalhes de uma negociação feita com o cliente consultado.",
		schema: `{
			"type": "object",
			"properties": {
				"cnpj": {"type": "string", "minLength": 1},
				"detalhes": {"type": "string", "minLength": 1, "maxLength": 4000}
			},
			"required": ["cnpj", "detalhes"],
			"additionalProperties": false
		}`,
	},
	{
		kind:        ports.ActionCheckNegotiations,
		description: "Consulta o histórico de negociações de um CNPJ, da mais recente para a mais antiga.",
		schema: `{
			"type": "object",
			"properties": {"cnpj": {"type": "string", "minLength": 1}},
			"required": ["cnpj"],
			"additionalProperties": false
		}`,
	},
	{
		kind:        ports.ActionValidateDocument,
		description: "Valida o texto extraído de um comprovante de pagamento (valor, data e beneficiário) contra as pendências do cliente consultado.",
		schema: `{
			"type": "object",
			"properties": {
				"ocr_text": {"type": "string", "minLength": 1},
				"boleto_id": {"type": "string"},
				"confianca": {"type": "number", "minimum": 0, "maximum": 1}
			},
			"required": ["ocr_text"],
			"additionalProperties": false
		}`,
	},
	{
		kind:        ports.ActionEscalate,
		description: "Transfere o atendimento para um especialista humano: parcelamentos especiais, problemas técnicos complexos, cliente insatisfeito ou assuntos fora do escopo financeiro.",
		schema: `{
			"type": "object",
			"properties": {"contexto": {"type": "string", "description": "resumo do caso para o especialista"}},
			"required": ["contexto"],
			"additionalProperties": false
		}`,
	},
}

// Toolset especificaciones y esquemas compilados de las herramientas.
type Toolset struct {
	specs   []ports.ToolSpec
	schemas map[ports.ActionKind]*jsonschema.Schema
}

// NewToolset compila los esquemas del catálogo.
func NewToolset() (*Toolset, error) {
	ts := &Toolset{schemas: make(map[ports.ActionKind]*jsonschema.Schema, len(toolCatalog))}
	for _, t := range toolCatalog {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://fernanda.local/tools/%s.schema.json", t.kind)
		if err := c.AddResource(url, strings.NewReader(t.schema)); err != nil {
			return nil, fmt.Errorf("tool %s: cargar schema: %w", t.kind, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("tool %s: compilar schema: %w", t.kind, err)
		}
		ts.schemas[t.kind] = compiled
		ts.specs = append(ts.specs, ports.ToolSpec{
			Name:        t.kind,
			Description: t.description,
			Schema:      compactJSON(t.schema),
		})
	}
	return ts, nil
}

// Specs lista para el tomador de decisión.
func (ts *Toolset) Specs() []ports.ToolSpec {
	return ts.specs
}

// Known indica si la herramienta existe en el catálogo.
func (ts *Toolset) Known(kind ports.ActionKind) bool {
	_, ok := ts.schemas[kind]
	return ok
}

// Decode valida args contra el esquema de la herramienta y los decodifica en out.
// Cualquier falla es ErrValidation.
func (ts *Toolset) Decode(kind ports.ActionKind, args json.RawMessage, out any) error {
	schema, ok := ts.schemas[kind]
	if !ok {
		return fmt.Errorf("%w: ferramenta desconhecida %q", domain.ErrValidation, kind)
	}
	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage(`{}`)
	}
	var doc any
	if err := json.Unmarshal(args, &doc); err != nil {
		return fmt.Errorf("%w: argumentos não são JSON: %v", domain.ErrValidation, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: argumentos inválidos para %s: %v", domain.ErrValidation, kind, err)
	}
	if err := json.Unmarshal(args, out); err != nil {
		return fmt.Errorf("%w: argumentos inválidos para %s: %v", domain.ErrValidation, kind, err)
	}
	return nil
}

func compactJSON(s string) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return json.RawMessage(s)
	}
	return buf.Bytes()
}
