package entity

import "strings"

// Estados de cuenta del cliente en el proveedor de cobros.
const (
	CustomerStatusActive  = "active"
	CustomerStatusBlocked = "blocked"
	CustomerStatusDeleted = "deleted"
)

// Customer representa un cliente del proveedor de cobros (Asaas), identificado
// por CNPJ/CPF. Es una foto de solo lectura: nunca se persiste localmente.
type Customer struct {
	ID            string
	Name          string
	Email         string
	Company       string
	TaxID         string // CNPJ o CPF tal como lo devuelve el proveedor
	Phone         string
	MobilePhone   string
	Address       string
	AddressNumber string
	Complement    string
	Province      string // bairro
	PostalCode    string
	City          string
	State         string
	Country       string
	PersonType    string // FISICA | JURIDICA
	Deleted       bool
	Groups        []string
}

// Status deriva el estado de la cuenta: eliminado tiene prioridad, luego
// cualquier grupo de bloqueo ("Bloqueados", "bloqueio financeiro", ...).
func (c *Customer) Status() string {
	if c.Deleted {
		return CustomerStatusDeleted
	}
	for _, g := range c.Groups {
		if strings.Contains(strings.ToLower(g), "bloque") {
			return CustomerStatusBlocked
		}
	}
	return CustomerStatusActive
}
