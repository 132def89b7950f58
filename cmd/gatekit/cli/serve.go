package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gatekit/gatekit/internal/server"
	"github.com/gatekit/gatekit/internal/service"
)

const banner = `
  ___   _ _____ ___ _  _____ _____
 / __| /_\_   _| __| |/ /_ _|_   _|
| (_ |/ _ \| | | _|| ' < | |  | |
 \___/_/ \_\_| |___|_|\_\___| |_|
`

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		noUI bool
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Gatekit API server",
		Long:  "Start the HTTP server that exposes the user-management API and the embedded frontend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, noUI, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 4000, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the embedded frontend")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, noUI, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	// Set up logger
	logLevel := slog.LevelInfo
	if dev || viper.GetString("logging.level") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Open the user store
	storeCfg := storeConfig()
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("init user store: %w", err)
	}
	defer st.Close()
	logger.Info("user store initialized", "driver", storeCfg.Driver)

	// 2. Initialize the auth service
	jwtSecret := viper.GetString("auth.jwt_secret")
	if jwtSecret == "" {
		jwtSecret = "gatekit-dev-secret-change-me"
		logger.Warn("auth.jwt_secret not set, using development secret")
	}
	tokenTTL := 24 * time.Hour
	if raw := viper.GetString("auth.token_ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid auth.token_ttl %q: %w", raw, err)
		}
		tokenTTL = parsed
	}
	authSvc := service.NewAuthService(jwtSecret, tokenTTL)

	// 3. First-run check: roles never change through the public API, so the
	// first admin has to come from the CLI.
	hasAdmin, err := st.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin account", "error", err)
	}
	if !hasAdmin {
		logger.Warn("no admin account found - run: gatekit admin create")
	}

	// 4. Build and start the HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	srvCfg.EnableUI = !noUI
	if origins := viper.GetStringSlice("server.cors.origins"); len(origins) > 0 {
		srvCfg.CORSOrigins = origins
	}
	if rate := viper.GetInt("server.auth_rate_per_minute"); rate > 0 {
		srvCfg.AuthRatePerMin = rate
	}
	if raw := viper.GetString("server.shutdown_timeout"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			srvCfg.ShutdownTimeout = parsed
		}
	}

	srv := server.New(srvCfg, st, authSvc, logger)

	fmt.Printf("→ Gatekit %s\n", versionString())
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	if !noUI {
		fmt.Printf("→ Frontend:   http://%s:%d/\n", host, port)
	}
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
