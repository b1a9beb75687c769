// Package session owns the HTTP transport for one logical user: a client
// with a cookie jar that accumulates identity-provider and broker cookies
// across the handshake, and keeps representing the authenticated session
// afterwards.
package session

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/dropDatabas3/casper/internal/observability/logger"
)

// Options configura el transporte de la sesión.
type Options struct {
	Timeout time.Duration
	// InsecureSkipVerify deshabilita la verificación TLS. Sólo dev.
	InsecureSkipVerify bool
}

// Session executes requests and persists cookies between them. One Session
// per logical user; it is not safe for concurrent use and the handshake
// never needs it to be.
type Session struct {
	client *http.Client
}

// New crea una sesión con cookie jar vacío.
func New(opts Options) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Session{
		client: &http.Client{
			Transport: tr,
			Jar:       jar,
			Timeout:   timeout,
		},
	}, nil
}

// Get ejecuta un GET y retorna status + body.
func (s *Session) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	return s.do(ctx, req)
}

// PostForm ejecuta un POST application/x-www-form-urlencoded.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(ctx, req)
}

func (s *Session) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	logger.From(ctx).Debug("http call",
		logger.Method(req.Method),
		logger.URL(req.URL.String()),
		logger.Status(resp.StatusCode),
		logger.Bytes(len(b)),
		logger.Duration(time.Since(start)),
	)
	return resp.StatusCode, b, nil
}
