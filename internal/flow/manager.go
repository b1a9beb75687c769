package flow

import (
	"context"
	"fmt"
	"time"

	flowerrors "github.com/dropDatabas3/casper/internal/flow/errors"
	"github.com/dropDatabas3/casper/internal/session"
)

// Manager reutiliza handshakes dentro del proceso: cachea la sesión
// autenticada por username con TTL y la descarta si un fetch posterior
// deja de estar autorizado. No persiste nada entre procesos.
type Manager struct {
	auth  *Authenticator
	cache *session.Cache
}

// NewManager crea el manager con el TTL dado para sesiones cacheadas.
func NewManager(cfg Config, ttl time.Duration) *Manager {
	return &Manager{
		auth:  New(cfg),
		cache: session.NewCache(ttl),
	}
}

// Session retorna la sesión cacheada del usuario o ejecuta el handshake.
func (m *Manager) Session(ctx context.Context) (*session.Session, error) {
	user := m.auth.cfg.Username
	if s, ok := m.cache.Get(user); ok {
		return s, nil
	}
	s, err := m.auth.Login(ctx)
	if err != nil {
		return nil, err
	}
	m.cache.Put(user, s)
	return s, nil
}

// Fetch hace un GET autenticado sobre rawURL, autenticando primero si
// hace falta. Un status >= 400 invalida la sesión cacheada.
func (m *Manager) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	s, err := m.Session(ctx)
	if err != nil {
		return nil, err
	}
	status, body, err := s.Get(ctx, rawURL)
	if err != nil {
		m.cache.Forget(m.auth.cfg.Username)
		return nil, flowerrors.ErrTransport.WithCause(err)
	}
	if status >= 400 {
		m.cache.Forget(m.auth.cfg.Username)
		return nil, flowerrors.ErrTransport.WithDetail(fmt.Sprintf("status=%d", status))
	}
	return body, nil
}
