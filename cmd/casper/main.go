package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/casper/internal/config"
	"github.com/dropDatabas3/casper/internal/duo"
	"github.com/dropDatabas3/casper/internal/flow"
	"github.com/dropDatabas3/casper/internal/observability/logger"
)

func main() {
	// .env opcional (dev). Los flags pisan al env, el env al YAML.
	_ = godotenv.Load()

	var (
		cfgPath  = envOr("CASPER_CONFIG", "")
		idpURL   = envOr("CASPER_IDP_URL", "")
		username = envOr("CASPER_USERNAME", "")
		password = envOr("CASPER_PASSWORD", "")
		appEnv   = envOr("APP_ENV", "dev")
		logLevel = envOr("LOG_LEVEL", "")
	)
	var (
		maxRetries int
		interval   time.Duration
		deadline   time.Duration
		insecure   bool
		terminal   []string
	)

	var cfg *config.Config

	root := &cobra.Command{
		Use:   "casper",
		Short: "Login automatizado contra CAS + segundo factor push",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfgPath != "" {
				cfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("cargar config %s: %w", cfgPath, err)
				}
			} else {
				cfg = config.Default()
			}

			// env/flags pisan el YAML
			if idpURL != "" {
				cfg.IdP.URL = idpURL
			}
			if username != "" {
				cfg.IdP.Username = username
			}
			if password != "" {
				cfg.IdP.Password = password
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("max-retries") || os.Getenv("CASPER_MAX_RETRIES") != "" {
				cfg.Duo.MaxRetries = maxRetries
			}
			if cmd.Flags().Changed("poll-interval") {
				cfg.Duo.PollInterval = interval.String()
			}
			if cmd.Flags().Changed("terminal-status") {
				cfg.Duo.TerminalStatuses = terminal
			}
			if insecure {
				cfg.Session.InsecureSkipVerify = true
			}

			if cfg.IdP.URL == "" {
				return fmt.Errorf("falta la URL del IdP (flag --idp-url o env CASPER_IDP_URL)")
			}
			if cfg.IdP.Username == "" || cfg.IdP.Password == "" {
				return fmt.Errorf("faltan credenciales (flags --username/--password o env CASPER_USERNAME/CASPER_PASSWORD)")
			}

			logger.Init(logger.Config{
				Env:         appEnv,
				Level:       cfg.Log.Level,
				ServiceName: "casper",
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "Archivo YAML de configuración (env CASPER_CONFIG)")
	root.PersistentFlags().StringVar(&idpURL, "idp-url", idpURL, "URL de login del IdP (env CASPER_IDP_URL)")
	root.PersistentFlags().StringVar(&username, "username", username, "Usuario (env CASPER_USERNAME)")
	root.PersistentFlags().StringVar(&password, "password", password, "Contraseña (env CASPER_PASSWORD)")
	root.PersistentFlags().IntVar(&maxRetries, "max-retries", envOrInt("CASPER_MAX_RETRIES", 10), "Intentos máximos de poll del segundo factor")
	root.PersistentFlags().DurationVar(&interval, "poll-interval", 3*time.Second, "Pausa fija entre polls")
	root.PersistentFlags().DurationVar(&deadline, "deadline", 0, "Deadline total del handshake (0 = sin límite)")
	root.PersistentFlags().StringSliceVar(&terminal, "terminal-status", nil, "Status del broker que cortan el poll (ej: deny,timeout)")
	root.PersistentFlags().BoolVar(&insecure, "insecure-skip-verify", false, "No verificar TLS (sólo dev)")

	flowConfig := func() (flow.Config, error) {
		pollEvery, err := cfg.PollInterval()
		if err != nil {
			return flow.Config{}, err
		}
		timeout, err := cfg.SessionTimeout()
		if err != nil {
			return flow.Config{}, err
		}
		return flow.Config{
			IdPURL:             cfg.IdP.URL,
			Username:           cfg.IdP.Username,
			Password:           cfg.IdP.Password,
			MaxRetries:         cfg.Duo.MaxRetries,
			PollInterval:       pollEvery,
			TerminalStatuses:   cfg.Duo.TerminalStatuses,
			Events:             duo.LogEvents{Log: logger.Named("duo")},
			SessionTimeout:     timeout,
			InsecureSkipVerify: cfg.Session.InsecureSkipVerify,
		}, nil
	}

	withDeadline := func() (context.Context, context.CancelFunc) {
		if deadline > 0 {
			return context.WithTimeout(context.Background(), deadline)
		}
		return context.WithCancel(context.Background())
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Ejecuta el handshake completo y reporta ok/fail",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := flowConfig()
			if err != nil {
				return err
			}
			ctx, cancel := withDeadline()
			defer cancel()

			if _, err := flow.New(fc).Login(ctx); err != nil {
				return fmt.Errorf("login falló: %w", err)
			}
			fmt.Println("ok")
			return nil
		},
	}

	fetchCmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Login (si hace falta) + GET autenticado del recurso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := flowConfig()
			if err != nil {
				return err
			}
			ttl, err := cfg.CacheTTL()
			if err != nil {
				return err
			}
			ctx, cancel := withDeadline()
			defer cancel()

			body, err := flow.NewManager(fc, ttl).Fetch(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetch falló: %w", err)
			}
			_, _ = os.Stdout.Write(body)
			return nil
		},
	}

	root.AddCommand(loginCmd)
	root.AddCommand(fetchCmd)

	defer func() { _ = logger.Sync() }()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envOrInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
