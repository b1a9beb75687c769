package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`

	IdP struct {
		URL      string `yaml:"url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"idp"`

	Duo struct {
		MaxRetries   int    `yaml:"max_retries"`
		PollInterval string `yaml:"poll_interval"`
		// Status codes del broker que cortan el poll de inmediato
		// (ademas de "allow"). Ej: ["deny", "timeout"].
		TerminalStatuses []string `yaml:"terminal_statuses"`
	} `yaml:"duo"`

	Session struct {
		Timeout            string `yaml:"timeout"`
		CacheTTL           string `yaml:"cache_ttl"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"session"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// Default retorna una configuración sin archivo YAML, solo defaults.
// Los valores restantes se completan con flags/env en el CLI.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	// sane defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Duo.MaxRetries == 0 {
		c.Duo.MaxRetries = 10
	}
	if c.Duo.PollInterval == "" {
		c.Duo.PollInterval = "3s"
	}
	if c.Session.Timeout == "" {
		c.Session.Timeout = "30s"
	}
	if c.Session.CacheTTL == "" {
		c.Session.CacheTTL = "10m"
	}
}

// PollInterval parsea el intervalo de poll ya con default aplicado.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Duo.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("duo.poll_interval inválido: %w", err)
	}
	return d, nil
}

// SessionTimeout parsea el timeout del transporte.
func (c *Config) SessionTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.Timeout)
	if err != nil {
		return 0, fmt.Errorf("session.timeout inválido: %w", err)
	}
	return d, nil
}

// CacheTTL parsea el TTL del registro de sesiones en memoria.
func (c *Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Session.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("session.cache_ttl inválido: %w", err)
	}
	return d, nil
}
