package duo

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	flowerrors "github.com/dropDatabas3/casper/internal/flow/errors"
	"github.com/dropDatabas3/casper/internal/observability/logger"
	"github.com/dropDatabas3/casper/internal/scrape"
	"github.com/dropDatabas3/casper/internal/session"
)

const (
	authFramePath = "/frame/web/v1/auth"
	promptPath    = "/frame/prompt"
	statusPath    = "/frame/status"

	// Selector del formulario del frame del broker.
	frameFormSelector = "#login-form"

	statusPushed = "pushed"
	statusAllow  = "allow"
)

// ChallengeContext is the broker-side session handle plus the user's
// preferred verification method, as reported by the auth frame.
type ChallengeContext struct {
	SID    string
	Factor string
	Device string
}

// PollResult es una lectura del endpoint de status.
// Cookie sólo viene (y es obligatoria) cuando StatusCode == "allow".
type PollResult struct {
	StatusCode string
	Cookie     string
}

// Client habla con el host propio del broker usando la misma sesión
// (mismo cookie jar) que el resto del handshake.
type Client struct {
	sess *session.Session
	base string // ej: https://api-xxxx.duosecurity.com
}

// New crea el cliente del broker. base incluye el esquema.
func New(sess *session.Session, base string) *Client {
	return &Client{sess: sess, base: base}
}

// Bootstrap submits the widget signature to the broker's auth frame and
// scrapes the session id and preferred factor/device from the returned
// form.
func (c *Client) Bootstrap(ctx context.Context, duoSignature, parent string) (ChallengeContext, error) {
	form := url.Values{
		"tx":     {duoSignature},
		"parent": {parent},
		"v":      {protocolVersion},
	}
	_, body, err := c.sess.PostForm(ctx, c.base+authFramePath, form)
	if err != nil {
		return ChallengeContext{}, flowerrors.ErrTransport.WithStage("bootstrap").WithCause(err)
	}

	values, err := scrape.FormValues(string(body), frameFormSelector)
	if err != nil {
		return ChallengeContext{}, flowerrors.ErrExtraction.WithStage("bootstrap").WithCause(err)
	}
	if err := scrape.Require(values, "sid", "preferred_factor", "preferred_device"); err != nil {
		return ChallengeContext{}, flowerrors.ErrExtraction.WithStage("bootstrap").WithCause(err)
	}

	cc := ChallengeContext{
		SID:    values["sid"],
		Factor: values["preferred_factor"],
		Device: values["preferred_device"],
	}
	logger.From(ctx).Debug("broker bootstrap ok",
		logger.String("factor", cc.Factor),
		logger.String("device", cc.Device),
	)
	return cc, nil
}

// promptResponse es la respuesta del endpoint de prompt.
type promptResponse struct {
	Stat     string `json:"stat"`
	Response struct {
		TxID string `json:"txid"`
	} `json:"response"`
}

// Prompt issues the asynchronous push challenge. Only stat == "OK" allows
// polling to begin; any other stat is a protocol rejection, logged and
// never retried.
func (c *Client) Prompt(ctx context.Context, cc ChallengeContext) (string, error) {
	form := url.Values{
		"sid":              {cc.SID},
		"factor":           {cc.Factor},
		"device":           {cc.Device},
		"out_of_date":      {""},
		"days_out_of_date": {""},
		"days_to_block":    {"None"},
	}
	_, body, err := c.sess.PostForm(ctx, c.base+promptPath, form)
	if err != nil {
		return "", flowerrors.ErrTransport.WithStage("challenge").WithCause(err)
	}

	var pr promptResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", flowerrors.ErrMalformedResponse.WithStage("challenge").WithCause(err)
	}
	if pr.Stat != "OK" {
		return "", flowerrors.ErrProtocolRejected.WithStage("challenge").
			WithDetail("stat=" + pr.Stat)
	}
	if pr.Response.TxID == "" {
		return "", flowerrors.ErrMalformedResponse.WithStage("challenge").
			WithDetail("prompt OK sin txid")
	}

	logger.From(ctx).Info("challenge emitido", logger.TxID(pr.Response.TxID))
	return pr.Response.TxID, nil
}

// statusResponse es la respuesta del endpoint de status.
type statusResponse struct {
	Response struct {
		StatusCode string `json:"status_code"`
		Cookie     string `json:"cookie"`
	} `json:"response"`
}

// PollOptions acota el loop de polling.
type PollOptions struct {
	// MaxRetries limita los intentos. Default 10.
	MaxRetries int
	// Interval es la pausa fija entre intentos. Default 3s.
	Interval time.Duration
	// TerminalStatuses corta el poll de inmediato si el broker reporta
	// alguno de estos status (ej: "deny", "timeout"). Por default ningún
	// status intermedio corta: se sigue reintentando hasta agotar el
	// presupuesto.
	TerminalStatuses []string
	// Events recibe las transiciones. Default NopEvents.
	Events Events
}

// Poll drives the challenge to a terminal state: it reads the status
// endpoint up to MaxRetries times with a fixed pause in between, invoking
// the callbacks on intermediate states. It returns the "allow" result, or
// an error when the broker denies, the budget runs out, or the context is
// cancelled during the pause.
func (c *Client) Poll(ctx context.Context, sid, txid string, opts PollOptions) (PollResult, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	var ev Events = opts.Events
	if ev == nil {
		ev = NopEvents{}
	}

	log := logger.From(ctx)
	form := url.Values{"sid": {sid}, "txid": {txid}}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		_, body, err := c.sess.PostForm(ctx, c.base+statusPath, form)
		if err != nil {
			return PollResult{}, flowerrors.ErrTransport.WithStage("poll").WithCause(err)
		}
		var sr statusResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return PollResult{}, flowerrors.ErrMalformedResponse.WithStage("poll").WithCause(err)
		}

		res := PollResult{StatusCode: sr.Response.StatusCode, Cookie: sr.Response.Cookie}
		log.Debug("poll", logger.Attempt(attempt), logger.PollStatus(res.StatusCode))

		switch {
		case res.StatusCode == statusAllow:
			if res.Cookie == "" {
				return PollResult{}, flowerrors.ErrMalformedResponse.WithStage("poll").
					WithDetail(`status "allow" sin cookie`)
			}
			ev.OnAllowed(res)
			return res, nil
		case res.StatusCode == statusPushed:
			ev.OnPushed(res)
		case isTerminal(opts.TerminalStatuses, res.StatusCode):
			return PollResult{}, flowerrors.ErrProtocolRejected.WithStage("poll").
				WithDetail("status_code=" + res.StatusCode)
		}
		// cualquier otro status se trata como transitorio y se reintenta

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return PollResult{}, flowerrors.ErrCancelled.WithStage("poll").WithCause(ctx.Err())
			case <-time.After(interval):
			}
		}
	}

	return PollResult{}, flowerrors.ErrAuthTimeout.WithStage("poll").
		WithDetail("max_retries agotado")
}

func isTerminal(terminal []string, status string) bool {
	for _, t := range terminal {
		if t == status {
			return true
		}
	}
	return false
}
