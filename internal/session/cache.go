package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is an in-process registry of authenticated sessions keyed by
// username. An automation agent fetching many resources reuses one
// handshake while the entry is fresh. Nothing survives the process:
// persistence across restarts stays out of scope.
type Cache struct {
	c *gocache.Cache
}

// NewCache crea el registro con el TTL dado por entrada.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{c: gocache.New(ttl, 2*ttl)}
}

// Get retorna la sesión cacheada para username, si sigue viva.
func (c *Cache) Get(username string) (*Session, bool) {
	v, ok := c.c.Get(username)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}

// Put registra una sesión autenticada.
func (c *Cache) Put(username string, s *Session) {
	c.c.SetDefault(username, s)
}

// Forget descarta la entrada (ej: tras un fetch con 401).
func (c *Cache) Forget(username string) {
	c.c.Delete(username)
}
