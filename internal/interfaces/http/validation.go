package http

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/fernanda-api/internal/domain"
	"github.com/jhoicas/fernanda-api/pkg/taxid"
)

// NewValidator validador de DTOs con la regla cpfcnpj y nombres de campo JSON en los mensajes.
// Entra en pánico si la regla no se puede registrar.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("cpfcnpj", CPFCNPJ); err != nil {
		panic(fmt.Sprintf("registrar validación cpfcnpj: %v", err))
	}
	return v
}

// CPFCNPJ acepta 11 o 14 dígitos tras normalizar; los dígitos verificadores
// los confirma el proveedor.
func CPFCNPJ(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return taxid.CheckLength(val) == nil
}

// validate ejecuta v.Struct y envuelve las fallas en domain.ErrValidation.
func validate(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " es requerido"
	case "cpfcnpj":
		return fe.Field() + " debe ser un CNPJ (14 dígitos) o CPF (11 dígitos)"
	case "email":
		return fe.Field() + " debe ser un email válido"
	case "min", "max":
		return fmt.Sprintf("%s fuera de rango (%s=%s)", fe.Field(), fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s debe ser uno de: %s", fe.Field(), fe.Param())
	default:
		return fe.Field() + " inválido (" + fe.Tag() + ")"
	}
}
