package errors

import "fmt"

// FlowError define la estructura estándar para fallos del handshake.
// Cada etapa detecta su propia clase de fallo y la retorna; el orquestador
// corta en el primer error y lo loguea con su causa.
type FlowError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Stage   string `json:"stage,omitempty"` // login | bootstrap | challenge | poll | assert
	Err     error  `json:"-"`               // Error original (causa), útil para logs
}

// Error implementa la interfaz error
func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is hace que errors.Is(err, ErrExtraction) compare por código,
// no por identidad de puntero.
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Code == e.Code
}

// FromError intenta convertir un error genérico en un FlowError.
// Si no lo es, lo trata como fallo de transporte conservando la causa.
func FromError(err error) *FlowError {
	if fe, ok := err.(*FlowError); ok {
		return fe
	}
	return ErrTransport.WithCause(err)
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA del error para no mutar las variables globales base
func (e *FlowError) WithDetail(detail string) *FlowError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa)
// Devuelve una COPIA del error
func (e *FlowError) WithCause(err error) *FlowError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// WithStage marca en qué etapa del flujo ocurrió el fallo.
// Devuelve una COPIA del error
func (e *FlowError) WithStage(stage string) *FlowError {
	newErr := *e
	newErr.Stage = stage
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	// ErrExtraction: un campo de formulario requerido o el objeto embebido
	// del widget no se encontró / no se pudo parsear.
	ErrExtraction = &FlowError{
		Code:    "EXTRACTION_ERROR",
		Message: "No se encontró el estado esperado en el HTML.",
	}

	// ErrTransport: fallo de red/HTTP surgido del transporte.
	ErrTransport = &FlowError{
		Code:    "TRANSPORT_ERROR",
		Message: "La llamada HTTP falló.",
	}

	// ErrProtocolRejected: el broker rechazó la emisión del challenge
	// (stat != OK). No se reintenta.
	ErrProtocolRejected = &FlowError{
		Code:    "PROTOCOL_REJECTED",
		Message: "El broker rechazó el challenge.",
	}

	// ErrAuthTimeout: se agotó el presupuesto de polls sin "allow".
	ErrAuthTimeout = &FlowError{
		Code:    "AUTH_TIMEOUT",
		Message: "Se agotaron los reintentos sin aprobación del segundo factor.",
	}

	// ErrMalformedResponse: el broker respondió JSON inválido o incompleto.
	ErrMalformedResponse = &FlowError{
		Code:    "MALFORMED_RESPONSE",
		Message: "Respuesta del broker malformada.",
	}

	// ErrCancelled: el contexto fue cancelado durante el poll.
	ErrCancelled = &FlowError{
		Code:    "CANCELLED",
		Message: "El handshake fue cancelado.",
	}
)
