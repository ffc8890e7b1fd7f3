// Grow Core - Controller Adapter & Resilience Layer
//
// This binary is a one-shot diagnostic probe against a real controller:
// it connects with credentials taken from the environment, prints the
// metadata, readings, and status as JSON, and disconnects. The adapter
// packages under internal/ are the actual product; automation engines
// embed those directly.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/verdantio/grow-core/internal/bridges/acinfinity"
	"github.com/verdantio/grow-core/internal/bridges/ecowitt"
	"github.com/verdantio/grow-core/internal/bridges/trolmaster"
	"github.com/verdantio/grow-core/internal/controller"
	"github.com/verdantio/grow-core/internal/controller/session"
	"github.com/verdantio/grow-core/internal/infrastructure/config"
	"github.com/verdantio/grow-core/internal/infrastructure/logging"
	"github.com/verdantio/grow-core/internal/infrastructure/metrics"
	"github.com/verdantio/grow-core/internal/resilience"

	"github.com/prometheus/client_golang/prometheus"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual probe logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean completion, or error describing failure
func run(ctx context.Context) error {
	brandFlag := flag.String("brand", string(controller.BrandACInfinity),
		"controller brand to probe (acinfinity, ecowitt, trolmaster)")
	flag.Parse()

	log := logging.Default()
	log.Info("starting Grow Core probe",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading config: %w", err)
		}
		// A missing file is fine for a diagnostic probe; defaults plus
		// environment overrides cover everything it needs.
		cfg = config.Default()
		log.Info("no config file, using defaults", "path", configPath)
	} else {
		log.Info("configuration loaded", "path", configPath)
	}

	log = logging.New(cfg.Logging, version)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	resil := resilience.New(
		cfg.Resilience.BreakerThreshold,
		cfg.Resilience.BreakerCooldown(),
		resilience.WithMetrics(m),
		resilience.WithLogger(log),
	)
	retry := resilience.RetryDefaults(cfg.Resilience)
	sessions := session.NewCache()

	registry := controller.NewRegistry()
	registry.SetLogger(log)

	adapters := []controller.Adapter{
		acinfinity.New(acinfinity.Config{
			BaseURL:    cfg.Vendors.ACInfinity.BaseURL,
			SessionTTL: cfg.Vendors.ACInfinity.SessionTTL(),
		}, sessions, resil, retry, log),
		ecowitt.New(ecowitt.Config{
			TCPPort:         cfg.Vendors.Ecowitt.TCPPort,
			CloudBaseURL:    cfg.Vendors.Ecowitt.CloudBaseURL,
			PushStaleWindow: cfg.Vendors.Ecowitt.PushStaleWindow(),
		}, sessions, resil, retry, log),
		trolmaster.New(),
	}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			return fmt.Errorf("registering adapters: %w", err)
		}
	}
	printJSON("brands", registry.List())

	brand := controller.Brand(*brandFlag)
	adapter, err := registry.Get(brand)
	if err != nil {
		return fmt.Errorf("%w (registered: %v)", err, registry.Brands())
	}

	creds, err := credentialsFromEnv(brand)
	if err != nil {
		return err
	}

	meta, err := adapter.Connect(ctx, creds)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer adapter.Disconnect(context.WithoutCancel(ctx), meta.ControllerID)

	printJSON("metadata", meta)

	readings, err := adapter.ReadSensors(ctx, meta.ControllerID)
	if err != nil {
		return fmt.Errorf("reading sensors: %w", err)
	}
	printJSON("readings", readings)

	printJSON("status", adapter.GetStatus(ctx, meta.ControllerID))

	if snap, ok := resil.Snapshot(string(brand)); ok {
		printJSON("breaker", snap)
	}

	log.Info("probe complete", "controller_id", meta.ControllerID)
	return nil
}

// printJSON writes one labelled result block to stdout.
func printJSON(label string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshaling %s: %v\n", label, err)
		return
	}
	fmt.Printf("%s:\n%s\n", label, data)
}

// credentialsFromEnv assembles the credential variant for a brand from
// GROWCORE_* environment variables, keeping secrets off the command line.
func credentialsFromEnv(brand controller.Brand) (controller.Credentials, error) {
	switch brand {
	case controller.BrandACInfinity:
		return controller.ACInfinityCredentials{
			Email:    os.Getenv("GROWCORE_ACINFINITY_EMAIL"),
			Password: os.Getenv("GROWCORE_ACINFINITY_PASSWORD"),
		}, nil
	case controller.BrandEcowitt:
		method := os.Getenv("GROWCORE_ECOWITT_METHOD")
		if method == "" {
			method = string(controller.MethodHTTP)
		}
		return controller.EcowittCredentials{
			Method:         controller.ConnectionMethod(method),
			GatewayIP:      os.Getenv("GROWCORE_ECOWITT_GATEWAY_IP"),
			GatewayMAC:     os.Getenv("GROWCORE_ECOWITT_GATEWAY_MAC"),
			APIKey:         os.Getenv("GROWCORE_ECOWITT_API_KEY"),
			ApplicationKey: os.Getenv("GROWCORE_ECOWITT_APPLICATION_KEY"),
		}, nil
	case controller.BrandTrolmaster:
		return controller.TrolmasterCredentials{
			Host: os.Getenv("GROWCORE_TROLMASTER_HOST"),
		}, nil
	}
	return nil, fmt.Errorf("no credential mapping for brand %q", brand)
}

// getConfigPath returns the configuration file path.
// Checks GROWCORE_CONFIG environment variable, falls back to default.
func getConfigPath() string {
	if path := os.Getenv("GROWCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
