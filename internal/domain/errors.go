package domain

import (
	"context"
	"errors"
)

// Errores de dominio (sin dependencias externas).
//
// Las cinco primeras clases forman la taxonomía de fallas de las herramientas
// de atención: cada error devuelto por un adaptador o caso de uso se envuelve
// con fmt.Errorf("%w: ...", domain.ErrX) y se clasifica con KindOf.
var (
	ErrConfiguration = errors.New("configuración ausente")
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrRemote        = errors.New("error del servicio remoto")
	ErrConnectivity  = errors.New("error de conectividad")
	ErrValidation    = errors.New("entrada inválida")

	// ErrOutcomeUnknown acompaña a ErrRemote o ErrConnectivity cuando la
	// escritura pudo haberse aplicado en el remoto (timeout, respuesta cortada).
	ErrOutcomeUnknown = errors.New("resultado de la operación desconocido")

	ErrUserNotFound       = errors.New("operador no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
)

// ErrorKind clasificación estable expuesta en los resultados de herramientas.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindRemote        ErrorKind = "remote"
	KindConnectivity  ErrorKind = "connectivity"
	KindValidation    ErrorKind = "validation"
)

// KindOf clasifica un error según la taxonomía. Errores no reconocidos se
// tratan como remotos (falla fuera de nuestro control).
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConnectivity):
		return KindConnectivity
	default:
		return KindRemote
	}
}

// OutcomeUnknown indica que una escritura remota falló sin saber si se aplicó.
func OutcomeUnknown(err error) bool {
	return errors.Is(err, ErrOutcomeUnknown) || errors.Is(err, context.DeadlineExceeded)
}
