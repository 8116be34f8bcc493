// Package taxid normaliza y valida identificadores fiscales brasileños
// (CNPJ para personas jurídicas, CPF para personas físicas) según las reglas
// de dígitos verificadores módulo 11 de la Receita Federal.
package taxid

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// CNPJLength cantidad de dígitos de un CNPJ.
	CNPJLength = 14
	// CPFLength cantidad de dígitos de un CPF.
	CPFLength = 11
)

// Kind tipo de identificador.
type Kind string

const (
	KindCNPJ    Kind = "CNPJ"
	KindCPF     Kind = "CPF"
	KindUnknown Kind = ""
)

// pesos RFB para los dígitos verificadores del CNPJ.
var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Normalize devuelve solo los dígitos del identificador.
// "22.333.444/0001-55" -> "22333444000155".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsBlank indica si el identificador está vacío o solo tiene espacios.
func IsBlank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// Detect clasifica el identificador por cantidad de dígitos (no valida DV).
func Detect(raw string) Kind {
	switch len(Normalize(raw)) {
	case CNPJLength:
		return KindCNPJ
	case CPFLength:
		return KindCPF
	default:
		return KindUnknown
	}
}

// CheckLength solo verifica que haya 11 (CPF) o 14 (CNPJ) dígitos.
// El proveedor de cobros es la autoridad sobre la existencia del identificador;
// los dígitos verificadores se informan pero no bloquean la consulta.
func CheckLength(raw string) error {
	switch n := len(Normalize(raw)); n {
	case CNPJLength, CPFLength:
		return nil
	default:
		return fmt.Errorf("taxid: se esperaban %d (CNPJ) o %d (CPF) dígitos, se recibieron %d", CNPJLength, CPFLength, n)
	}
}

// Validate comprueba longitud y dígitos verificadores del CNPJ o CPF.
func Validate(raw string) error {
	digits := Normalize(raw)
	switch len(digits) {
	case CNPJLength:
		return validateCNPJ(digits)
	case CPFLength:
		return validateCPF(digits)
	default:
		return fmt.Errorf("taxid: se esperaban %d (CNPJ) o %d (CPF) dígitos, se recibieron %d", CNPJLength, CPFLength, len(digits))
	}
}

// IsValid atajo booleano de Validate.
func IsValid(raw string) bool {
	return Validate(raw) == nil
}

// Format aplica la máscara oficial (00.000.000/0000-00 o 000.000.000-00).
// Si el identificador no tiene una longitud conocida se devuelve sin cambios.
func Format(raw string) string {
	d := Normalize(raw)
	switch len(d) {
	case CNPJLength:
		return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
	case CPFLength:
		return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
	default:
		return raw
	}
}

func validateCNPJ(d string) error {
	if allSameDigit(d) {
		return fmt.Errorf("taxid: CNPJ con todos los dígitos iguales")
	}
	dv1 := checkDigit(d[:12], cnpjWeights1)
	dv2 := checkDigit(d[:13], cnpjWeights2)
	if int(d[12]-'0') != dv1 || int(d[13]-'0') != dv2 {
		return fmt.Errorf("taxid: dígitos verificadores del CNPJ inválidos: esperado %d%d, recibido %s", dv1, dv2, d[12:])
	}
	return nil
}

func validateCPF(d string) error {
	if allSameDigit(d) {
		return fmt.Errorf("taxid: CPF con todos los dígitos iguales")
	}
	dv1 := checkDigit(d[:9], descendingWeights(10, 9))
	dv2 := checkDigit(d[:10], descendingWeights(11, 10))
	if int(d[9]-'0') != dv1 || int(d[10]-'0') != dv2 {
		return fmt.Errorf("taxid: dígitos verificadores del CPF inválidos: esperado %d%d, recibido %s", dv1, dv2, d[9:])
	}
	return nil
}

// checkDigit módulo 11: resto < 2 -> 0, si no 11 - resto.
func checkDigit(base string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(base[i]-'0') * w
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

func descendingWeights(from, n int) []int {
	w := make([]int, n)
	for i := range w {
		w[i] = from - i
	}
	return w
}

func allSameDigit(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}
