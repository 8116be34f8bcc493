package dto

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// Estados de resultado de una herramienta.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Outcome encabezado común a todos los resultados de herramientas: las fallas
// viajan como valor, nunca como error propagado al modelo.
type Outcome struct {
	Status    string           `json:"status"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
	Mensagem  string           `json:"mensagem,omitempty"`
}

// Success resultado exitoso.
func Success() Outcome { return Outcome{Status: StatusSuccess} }

// FailureFrom clasifica err: ErrNotFound -> not_found, el resto -> error con su clase.
func FailureFrom(err error) Outcome {
	if errors.Is(err, domain.ErrNotFound) {
		return Outcome{Status: StatusNotFound, ErrorKind: domain.KindNotFound, Mensagem: err.Error()}
	}
	return Outcome{Status: StatusError, ErrorKind: domain.KindOf(err), Mensagem: err.Error()}
}

// OK indica si el resultado fue exitoso.
func (o Outcome) OK() bool { return o.Status == StatusSuccess }

// Result lo implementan todas las salidas de herramientas.
type Result interface {
	GetOutcome() Outcome
}

// GetOutcome permite tratar cualquier salida embebida de forma uniforme.
func (o Outcome) GetOutcome() Outcome { return o }

// ── Entradas ──────────────────────────────────────────────────────────────────

// LookupInput consulta_financeira.
type LookupInput struct {
	CNPJ string `json:"cnpj" validate:"required,cpfcnpj"`
}

// ReissueInput atualizar_boleto.
type ReissueInput struct {
	BoletoID string `json:"boleto_id" validate:"required,max=64"`
}

// RecordNegotiationInput registrar_negociacao.
type RecordNegotiationInput struct {
	CNPJ     string `json:"cnpj" validate:"required,cpfcnpj"`
	Detalhes string `json:"detalhes" validate:"required,max=4000"`
}

// CheckNegotiationsInput verificar_negociacao.
type CheckNegotiationsInput struct {
	CNPJ string `json:"cnpj" validate:"required,cpfcnpj"`
}

// ValidateDocumentInput validar_comprovante.
type ValidateDocumentInput struct {
	OCRText   string   `json:"ocr_text" validate:"required"`
	BoletoID  string   `json:"boleto_id,omitempty" validate:"omitempty,max=64"`
	Confianca *float64 `json:"confianca,omitempty" validate:"omitempty,min=0,max=1"`
}

// EscalateInput transferir_humano.
type EscalateInput struct {
	Contexto string `json:"contexto" validate:"max=4000"`
}

// ── Salidas ───────────────────────────────────────────────────────────────────

// CustomerDTO datos del cliente expuestos al modelo y al canal.
type CustomerDTO struct {
	ID          string   `json:"id"`
	Nome        string   `json:"nome"`
	Email       string   `json:"email,omitempty"`
	Empresa     string   `json:"empresa,omitempty"`
	CNPJ        string   `json:"cnpj"`
	Telefone    string   `json:"telefone,omitempty"`
	Celular     string   `json:"celular,omitempty"`
	Endereco    string   `json:"endereco,omitempty"`
	Numero      string   `json:"numero,omitempty"`
	Complemento string   `json:"complemento,omitempty"`
	Bairro      string   `json:"bairro,omitempty"`
	CEP         string   `json:"cep,omitempty"`
	Cidade      string   `json:"cidade,omitempty"`
	Estado      string   `json:"estado,omitempty"`
	Pais        string   `json:"pais,omitempty"`
	TipoPessoa  string   `json:"tipo_pessoa,omitempty"`
	Situacao    string   `json:"situacao"`
	Grupos      []string `json:"grupos,omitempty"`
}

// ChargeDTO pendencia.
type ChargeDTO struct {
	ID                 string          `json:"id"`
	DataCriacao        string          `json:"data_criacao"`
	Status             string          `json:"status"`
	Valor              decimal.Decimal `json:"valor"`
	Multa              decimal.Decimal `json:"multa"`
	Juros              decimal.Decimal `json:"juros"`
	ValorTotal         decimal.Decimal `json:"valor_total"`
	Vencimento         string          `json:"vencimento"`
	VencimentoOriginal string          `json:"vencimento_original,omitempty"`
	FormaPagamento     string          `json:"forma_pagamento,omitempty"`
	NumeroFatura       string          `json:"numero_fatura,omitempty"`
	LinkFatura         string          `json:"link_fatura,omitempty"`
	LinkBoleto         string          `json:"link_boleto,omitempty"`
	Descricao          string          `json:"descricao,omitempty"`
	Pago               bool            `json:"pago"`
}

// LookupOutput resultado de consulta_financeira.
type LookupOutput struct {
	Outcome
	Cliente       *CustomerDTO    `json:"cliente,omitempty"`
	Pendencias    []ChargeDTO     `json:"pendencias,omitempty"`
	TotalEmAberto decimal.Decimal `json:"total_em_aberto"`
}

// DiscountDTO desconto aplicado na segunda via.
type DiscountDTO struct {
	Percentual decimal.Decimal `json:"percentual"`
	Valor      decimal.Decimal `json:"valor"`
	ValorFinal decimal.Decimal `json:"valor_final"`
	ValidoAte  string          `json:"valido_ate"`
}

// ReissueOutput resultado de atualizar_boleto.
type ReissueOutput struct {
	Outcome
	Boleto   *ChargeDTO   `json:"boleto,omitempty"`
	Desconto *DiscountDTO `json:"desconto,omitempty"`
}

// RecordNegotiationOutput resultado de registrar_negociacao.
type RecordNegotiationOutput struct {
	Outcome
	ID int64 `json:"id,omitempty"`
}

// NegotiationDTO registro del historial.
type NegotiationDTO struct {
	ID          int64     `json:"id"`
	CNPJ        string    `json:"cnpj"`
	Detalhes    string    `json:"detalhes"`
	DataCriacao time.Time `json:"data_criacao"`
}

// CheckNegotiationsOutput resultado de verificar_negociacao.
type CheckNegotiationsOutput struct {
	Outcome
	Negociacoes []NegotiationDTO `json:"negociacoes,omitempty"`
}

// DocumentValidationOutput resultado de validar_comprovante.
type DocumentValidationOutput struct {
	Outcome
	Valido       bool     `json:"valido"`
	Confianca    float64  `json:"confianca"`
	BoletoID     string   `json:"boleto_id,omitempty"`
	Divergencias []string `json:"divergencias,omitempty"`
	URLDocumento string   `json:"url_documento,omitempty"`
}

// EscalationOutput resultado de transferir_humano.
type EscalationOutput struct {
	Outcome
	Ticket   string `json:"ticket"`
	Contexto string `json:"contexto"`
}

// ── Conversores ───────────────────────────────────────────────────────────────

// ToCustomerDTO convierte la entidad.
func ToCustomerDTO(c *entity.Customer) *CustomerDTO {
	if c == nil {
		return nil
	}
	return &CustomerDTO{
		ID: c.ID, Nome: c.Name, Email: c.Email, Empresa: c.Company, CNPJ: c.TaxID,
		Telefone: c.Phone, Celular: c.MobilePhone, Endereco: c.Address, Numero: c.AddressNumber,
		Complemento: c.Complement, Bairro: c.Province, CEP: c.PostalCode, Cidade: c.City,
		Estado: c.State, Pais: c.Country, TipoPessoa: c.PersonType, Situacao: c.Status(),
		Grupos: c.Groups,
	}
}

// ToChargeDTO convierte la entidad.
func ToChargeDTO(c *entity.Charge) ChargeDTO {
	return ChargeDTO{
		ID: c.ID, DataCriacao: c.CreatedAt, Status: c.Status,
		Valor: c.Value, Multa: c.Fine, Juros: c.Interest, ValorTotal: c.Total,
		Vencimento: c.DueDate, VencimentoOriginal: c.OriginalDueDate, FormaPagamento: c.BillingType,
		NumeroFatura: c.InvoiceNumber, LinkFatura: c.InvoiceURL, LinkBoleto: c.BankSlipURL,
		Descricao: c.Description, Pago: c.Paid,
	}
}

// ToNegotiationDTO convierte la entidad.
func ToNegotiationDTO(n *entity.Negotiation) NegotiationDTO {
	return NegotiationDTO{ID: n.ID, CNPJ: n.TaxID, Detalhes: n.Details, DataCriacao: n.CreatedAt}
}
