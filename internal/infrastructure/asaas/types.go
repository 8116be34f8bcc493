package asaas

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fernanda-api/internal/domain/entity"
)

// ── Respuestas de la API v3 del Asaas ────────────────────────────────────────

type listCustomersResponse struct {
	TotalCount int             `json:"totalCount"`
	Data       []customerEntry `json:"data"`
}

type customerEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Company       string `json:"company"`
	CpfCnpj       string `json:"cpfCnpj"`
	Phone         string `json:"phone"`
	MobilePhone   string `json:"mobilePhone"`
	Address       string `json:"address"`
	AddressNumber string `json:"addressNumber"`
	Complement    string `json:"complement"`
	Province      string `json:"province"`
	PostalCode    string `json:"postalCode"`
	CityName      string `json:"cityName"`
	State         string `json:"state"`
	Country       string `json:"country"`
	PersonType    string `json:"personType"`
	Deleted       bool   `json:"deleted"`
	Groups        []struct {
		Name string `json:"name"`
	} `json:"groups"`
}

type listPaymentsResponse struct {
	TotalCount int            `json:"totalCount"`
	Data       []paymentEntry `json:"data"`
}

// paymentEntry usa RawMessage en los campos de dinero: un valor ausente o
// malformado cuenta como cero en lugar de invalidar toda la respuesta.
type paymentEntry struct {
	ID              string          `json:"id"`
	DateCreated     string          `json:"dateCreated"`
	Status          string          `json:"status"`
	Value           json.RawMessage `json:"value"`
	Fine            json.RawMessage `json:"fine"`
	Interest        json.RawMessage `json:"interest"`
	DueDate         string          `json:"dueDate"`
	OriginalDueDate string          `json:"originalDueDate"`
	BillingType     string          `json:"billingType"`
	InvoiceNumber   string          `json:"invoiceNumber"`
	InvoiceURL      string          `json:"invoiceUrl"`
	BankSlipURL     string          `json:"bankSlipUrl"`
	Description     string          `json:"description"`
}

// updatePaymentRequest cuerpo del PUT /payments/{id}.
type updatePaymentRequest struct {
	Value       json.Number `json:"value"`
	DueDate     string      `json:"dueDate"`
	BillingType string      `json:"billingType"`
}

type errorResponse struct {
	Errors []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"errors"`
}

// ── Conversión a entidades ────────────────────────────────────────────────────

func (e customerEntry) toEntity() *entity.Customer {
	groups := make([]string, 0, len(e.Groups))
	for _, g := range e.Groups {
		if g.Name != "" {
			groups = append(groups, g.Name)
		}
	}
	return &entity.Customer{
		ID:            e.ID,
		Name:          e.Name,
		Email:         e.Email,
		Company:       e.Company,
		TaxID:         e.CpfCnpj,
		Phone:         e.Phone,
		MobilePhone:   e.MobilePhone,
		Address:       e.Address,
		AddressNumber: e.AddressNumber,
		Complement:    e.Complement,
		Province:      e.Province,
		PostalCode:    e.PostalCode,
		City:          e.CityName,
		State:         e.State,
		Country:       e.Country,
		PersonType:    e.PersonType,
		Deleted:       e.Deleted,
		Groups:        groups,
	}
}

func (p paymentEntry) toEntity() *entity.Charge {
	value := parseAmount(p.Value)
	fine := nestedValue(p.Fine)
	interest := nestedValue(p.Interest)
	return &entity.Charge{
		ID:              p.ID,
		CreatedAt:       p.DateCreated,
		Status:          p.Status,
		Value:           value,
		Fine:            fine,
		Interest:        interest,
		Total:           entity.ChargeTotal(value, fine, interest),
		DueDate:         p.DueDate,
		OriginalDueDate: p.OriginalDueDate,
		BillingType:     p.BillingType,
		InvoiceNumber:   p.InvoiceNumber,
		InvoiceURL:      p.InvoiceURL,
		BankSlipURL:     p.BankSlipURL,
		Description:     p.Description,
		Paid:            entity.IsPaidStatus(p.Status),
	}
}

// parseAmount acepta número o string numérico; cualquier otra cosa es cero.
func parseAmount(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// nestedValue lee {"value": n} de fine/interest.
func nestedValue(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}
	var obj struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return decimal.Zero
	}
	return parseAmount(obj.Value)
}
