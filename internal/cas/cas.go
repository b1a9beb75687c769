// Package cas drives the identity-provider side of the handshake: the
// primary login form, the credential submission that embeds the
// second-factor widget, and the final signed-assertion submission that
// closes single-sign-on.
package cas

import (
	"context"
	"net/url"

	"github.com/dropDatabas3/casper/internal/duo"
	flowerrors "github.com/dropDatabas3/casper/internal/flow/errors"
	"github.com/dropDatabas3/casper/internal/observability/logger"
	"github.com/dropDatabas3/casper/internal/scrape"
	"github.com/dropDatabas3/casper/internal/session"
)

const (
	// Selector del formulario principal de login del IdP.
	loginFormSelector = "#fm1"
	// Selector del formulario del segundo factor en la respuesta.
	duoFormSelector = "#duo_form"
)

// FormContext son los tokens anti-forgery de un formulario del IdP.
// Deben volver VERBATIM en el siguiente POST al mismo endpoint.
type FormContext struct {
	LT        string
	Execution string
	EventID   string
}

// LoginOutcome es el contexto mergeado que deja la etapa de login:
// parámetros del widget + tokens para la re-submission final.
type LoginOutcome struct {
	Widget duo.BootstrapParams
	Tokens FormContext
}

// Client habla con el IdP sobre una sesión compartida.
type Client struct {
	sess *session.Session
	url  string
}

// New crea el cliente del IdP. url es la URL de login (y de assertion).
func New(sess *session.Session, url string) *Client {
	return &Client{sess: sess, url: url}
}

// FetchLoginForm obtiene la página de login y extrae sus tokens.
// Si falta lt o execution NO se intenta enviar credenciales.
func (c *Client) FetchLoginForm(ctx context.Context) (FormContext, error) {
	_, body, err := c.sess.Get(ctx, c.url)
	if err != nil {
		return FormContext{}, flowerrors.ErrTransport.WithStage("login").WithCause(err)
	}

	values, err := scrape.FormValues(string(body), loginFormSelector)
	if err != nil {
		return FormContext{}, flowerrors.ErrExtraction.WithStage("login").WithCause(err)
	}
	if err := scrape.Require(values, "lt", "execution"); err != nil {
		return FormContext{}, flowerrors.ErrExtraction.WithStage("login").WithCause(err)
	}

	return FormContext{
		LT:        values["lt"],
		Execution: values["execution"],
		EventID:   values["_eventId_submit"],
	}, nil
}

// Login submits the credentials together with the scraped tokens and
// extracts, from the returned page, both the widget bootstrap parameters
// and the second-factor form tokens needed for the final resubmission.
func (c *Client) Login(ctx context.Context, fc FormContext, username, password string) (LoginOutcome, error) {
	form := url.Values{
		"username":        {username},
		"password":        {password},
		"lt":              {fc.LT},
		"execution":       {fc.Execution},
		"_eventId_submit": {fc.EventID},
	}
	_, body, err := c.sess.PostForm(ctx, c.url, form)
	if err != nil {
		return LoginOutcome{}, flowerrors.ErrTransport.WithStage("login").WithCause(err)
	}
	page := string(body)

	widget, err := duo.ParseBootstrap(page)
	if err != nil {
		return LoginOutcome{}, err
	}

	values, err := scrape.FormValues(page, duoFormSelector)
	if err != nil {
		return LoginOutcome{}, flowerrors.ErrExtraction.WithStage("login").WithCause(err)
	}
	if err := scrape.Require(values, "lt", "execution", "_eventId"); err != nil {
		return LoginOutcome{}, flowerrors.ErrExtraction.WithStage("login").WithCause(err)
	}

	logger.From(ctx).Debug("credenciales aceptadas, widget extraído",
		logger.String("broker_host", widget.Host))

	return LoginOutcome{
		Widget: widget,
		Tokens: FormContext{
			LT:        values["lt"],
			Execution: values["execution"],
			EventID:   values["_eventId"],
		},
	}, nil
}

// SignedAssertion reconstruye la prueba firmada que espera el IdP.
func SignedAssertion(cookie, appSignature string) string {
	return cookie + ":" + appSignature
}

// SubmitAssertion posts the signed assertion back to the identity
// provider. Success is the call completing without transport error; the
// protocol requires no inspection of the final response body.
func (c *Client) SubmitAssertion(ctx context.Context, tokens FormContext, signed string) error {
	form := url.Values{
		"signedDuoResponse": {signed},
		"lt":                {tokens.LT},
		"execution":         {tokens.Execution},
		"_eventId":          {tokens.EventID},
	}
	if _, _, err := c.sess.PostForm(ctx, c.url, form); err != nil {
		return flowerrors.ErrTransport.WithStage("assert").WithCause(err)
	}
	logger.From(ctx).Info("assertion enviada, sesión autenticada")
	return nil
}
