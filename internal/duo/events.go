package duo

import "go.uber.org/zap"

// Events is the callback capability invoked synchronously during polling.
// Implementations can log, emit metrics or drive test doubles. A slow
// callback delays the next poll by exactly its own duration.
type Events interface {
	// OnPushed se invoca una vez por iteración mientras el status es "pushed".
	OnPushed(PollResult)
	// OnAllowed se invoca una única vez cuando el status pasa a "allow".
	OnAllowed(PollResult)
}

// NopEvents es el default cuando el caller no configura callbacks.
type NopEvents struct{}

func (NopEvents) OnPushed(PollResult)  {}
func (NopEvents) OnAllowed(PollResult) {}

// LogEvents registra cada transición del challenge en el logger dado.
type LogEvents struct {
	Log *zap.Logger
}

func (e LogEvents) OnPushed(r PollResult) {
	e.Log.Info("push enviado, esperando aprobación del operador",
		zap.String("poll_status", r.StatusCode))
}

func (e LogEvents) OnAllowed(PollResult) {
	e.Log.Info("segundo factor aprobado")
}
