package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// URL crea un campo para la URL objetivo de una llamada.
func URL(v string) zap.Field {
	return zap.String("url", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración de una llamada.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - FLUJO DE LOGIN
// =================================================================================

// FlowID crea un campo para el ID del handshake en curso.
func FlowID(v string) zap.Field {
	return zap.String("flow_id", v)
}

// Username crea un campo para el usuario que se autentica.
func Username(v string) zap.Field {
	return zap.String("username", v)
}

// Stage crea un campo para la etapa del flujo (login, bootstrap, poll, assert).
func Stage(v string) zap.Field {
	return zap.String("stage", v)
}

// TxID crea un campo para el transaction id del challenge.
func TxID(v string) zap.Field {
	return zap.String("txid", v)
}

// PollStatus crea un campo para el status_code reportado por el broker.
func PollStatus(v string) zap.Field {
	return zap.String("poll_status", v)
}

// Attempt crea un campo para el número de intento dentro del poll loop.
func Attempt(v int) zap.Field {
	return zap.Int("attempt", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// CAMPOS GENÉRICOS
// =================================================================================

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
