// Package flow orchestrates the whole handshake: identity-provider login,
// broker bootstrap, push challenge + poll, and the final assertion
// submission. The stages run strictly in sequence; the first failure
// short-circuits the rest.
package flow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/casper/internal/cas"
	"github.com/dropDatabas3/casper/internal/duo"
	"github.com/dropDatabas3/casper/internal/observability/logger"
	"github.com/dropDatabas3/casper/internal/session"
)

// Config es el input inmutable de un handshake.
type Config struct {
	// IdPURL es el target del login y de la assertion final.
	IdPURL   string
	Username string
	Password string

	// MaxRetries limita el poll del segundo factor. Default 10.
	MaxRetries int
	// PollInterval es la pausa fija entre polls. Default 3s.
	PollInterval time.Duration
	// TerminalStatuses corta el poll ante estos status del broker
	// (ej: "deny", "timeout"). Vacío = sólo "allow" termina.
	TerminalStatuses []string
	// Events recibe las transiciones del challenge. Opcional.
	Events duo.Events

	// SessionTimeout acota cada llamada HTTP individual.
	SessionTimeout time.Duration
	// InsecureSkipVerify deshabilita verificación TLS. Sólo dev.
	InsecureSkipVerify bool
}

// Authenticator ejecuta handshakes con una configuración fija.
type Authenticator struct {
	cfg Config
}

// New crea el autenticador. La configuración no se muta después.
func New(cfg Config) *Authenticator {
	return &Authenticator{cfg: cfg}
}

// Login performs the full handshake and returns the authenticated session.
// A nil error means the cookie store now represents an authenticated
// session; any error means "not authenticated" and the caller must not
// attempt resource access with the returned session.
func (a *Authenticator) Login(ctx context.Context) (*session.Session, error) {
	flowID := uuid.NewString()
	log := logger.Named("flow").With(
		logger.FlowID(flowID),
		logger.Username(a.cfg.Username),
	)
	ctx = logger.ToContext(ctx, log)

	sess, err := session.New(session.Options{
		Timeout:            a.cfg.SessionTimeout,
		InsecureSkipVerify: a.cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}

	idp := cas.New(sess, a.cfg.IdPURL)

	// 1) IdP: formulario + credenciales
	fc, err := idp.FetchLoginForm(ctx)
	if err != nil {
		log.Error("etapa login falló", logger.Stage("login"), logger.Err(err))
		return nil, err
	}
	out, err := idp.Login(ctx, fc, a.cfg.Username, a.cfg.Password)
	if err != nil {
		log.Error("etapa login falló", logger.Stage("login"), logger.Err(err))
		return nil, err
	}

	// 2) Broker: bootstrap del widget
	broker := duo.New(sess, "https://"+out.Widget.Host)
	cc, err := broker.Bootstrap(ctx, out.Widget.DuoSignature, a.cfg.IdPURL)
	if err != nil {
		log.Error("etapa bootstrap falló", logger.Stage("bootstrap"), logger.Err(err))
		return nil, err
	}

	// 3) Challenge + poll
	txid, err := broker.Prompt(ctx, cc)
	if err != nil {
		log.Error("etapa challenge falló", logger.Stage("challenge"), logger.Err(err))
		return nil, err
	}
	res, err := broker.Poll(ctx, cc.SID, txid, duo.PollOptions{
		MaxRetries:       a.cfg.MaxRetries,
		Interval:         a.cfg.PollInterval,
		TerminalStatuses: a.cfg.TerminalStatuses,
		Events:           a.cfg.Events,
	})
	if err != nil {
		log.Error("etapa poll falló", logger.Stage("poll"), logger.Err(err))
		return nil, err
	}

	// 4) Assertion final al IdP
	signed := cas.SignedAssertion(res.Cookie, out.Widget.AppSignature)
	if err := idp.SubmitAssertion(ctx, out.Tokens, signed); err != nil {
		log.Error("etapa assertion falló", logger.Stage("assert"), logger.Err(err))
		return nil, err
	}

	log.Info("handshake completo")
	return sess, nil
}
