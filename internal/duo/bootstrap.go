// Package duo talks to the second-factor broker: it bootstraps the web
// widget out-of-band, issues the asynchronous push challenge and polls its
// resolution until a terminal state or the retry budget runs out.
package duo

import (
	"encoding/json"
	"fmt"
	"strings"

	flowerrors "github.com/dropDatabas3/casper/internal/flow/errors"
	"github.com/dropDatabas3/casper/internal/scrape"
)

const (
	// Nombre de la llamada inline que incrusta los parámetros del widget.
	widgetInitializer = "Duo.init"

	// Versión fija del protocolo del frame.
	protocolVersion = "2.6"
)

// BootstrapParams carry everything needed to address the broker, scraped
// from the identity-provider page after credential submission.
type BootstrapParams struct {
	Host         string
	DuoSignature string
	AppSignature string
	PostArgument string
}

// widgetInit es el objeto que Duo.init recibe en el HTML.
type widgetInit struct {
	Host         string `json:"host"`
	SigRequest   string `json:"sig_request"`
	PostArgument string `json:"post_argument"`
}

// ParseBootstrap extracts the widget parameters from the inline
// initializer call embedded in page HTML.
func ParseBootstrap(html string) (BootstrapParams, error) {
	arg, err := scrape.InitializerArg(html, widgetInitializer)
	if err != nil {
		return BootstrapParams{}, flowerrors.ErrExtraction.WithStage("login").WithCause(err)
	}

	var w widgetInit
	if err := json.Unmarshal([]byte(arg), &w); err != nil {
		return BootstrapParams{}, flowerrors.ErrExtraction.WithStage("login").
			WithDetail("objeto del widget no es JSON válido").WithCause(err)
	}
	if w.Host == "" {
		return BootstrapParams{}, flowerrors.ErrExtraction.WithStage("login").
			WithDetail("widget sin host")
	}

	duoSig, appSig, err := SplitSignedRequest(w.SigRequest)
	if err != nil {
		return BootstrapParams{}, flowerrors.ErrExtraction.WithStage("login").WithCause(err)
	}

	return BootstrapParams{
		Host:         w.Host,
		DuoSignature: duoSig,
		AppSignature: appSig,
		PostArgument: w.PostArgument,
	}, nil
}

// SplitSignedRequest splits the combined "<duoSig>:<appSig>" signature on
// the FIRST colon. Both halves must be non-empty; anything else is a fatal
// extraction error rather than a guess.
func SplitSignedRequest(sig string) (duoSig, appSig string, err error) {
	i := strings.IndexByte(sig, ':')
	if i <= 0 || i == len(sig)-1 {
		return "", "", fmt.Errorf("sig_request sin separador ':' válido: %q", sig)
	}
	return sig[:i], sig[i+1:], nil
}
