// Command keri-controllerd runs a standalone KERI controller: it loads a
// configuration file, wires up the event database, escrow set, notification
// bus, validator, processor, transport, and OOBI store it names, and serves
// Prometheus metrics over HTTP while a background scheduler sweeps expired
// escrow entries -- the same lifecycle the teacher's validator binary runs,
// rebuilt around an Identifier/Controller instead of a consensus node.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	dbm "github.com/cometbft/cometbft-db"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/keri-id/controller/internal/config"
	"github.com/keri-id/controller/internal/escrow"
	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/eventdb/inmem"
	"github.com/keri-id/controller/internal/eventdb/kvlog"
	"github.com/keri-id/controller/internal/eventdb/postgres"
	"github.com/keri-id/controller/internal/identifier"
	"github.com/keri-id/controller/internal/metrics"
	"github.com/keri-id/controller/internal/notify"
	"github.com/keri-id/controller/internal/oobi"
	oobifirestore "github.com/keri-id/controller/internal/oobi/firestore"
	oobiinmem "github.com/keri-id/controller/internal/oobi/inmem"
	"github.com/keri-id/controller/internal/primitive"
	"github.com/keri-id/controller/internal/processor"
	transportinmem "github.com/keri-id/controller/internal/transport/inmem"
	"github.com/keri-id/controller/internal/validator"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "keri-controllerd",
		Short: "keri-controllerd runs a KERI controller as a standalone daemon",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "load the configuration file and run the daemon until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serve.Flags().StringVar(&configPath, "config", "keri-controllerd.yaml", "path to the daemon's YAML configuration file")
	root.AddCommand(serve)

	return root
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("keri-controllerd: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("keri-controllerd: %w", err)
	}

	logger := log.New(os.Stdout, "[keri-controllerd] ", log.LstdFlags)

	store, err := newStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("keri-controllerd: storage: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oobiStore, err := newOOBIStore(ctx, cfg.OOBI)
	if err != nil {
		return fmt.Errorf("keri-controllerd: oobi: %w", err)
	}

	transport := transportinmem.New()

	bus := notify.NewBus(logger)
	escrows := escrow.NewEscrows(cfg.Escrow.TTL.Duration())
	val := validator.New(logger, store)
	proc := processor.New(logger, val, store, escrows, bus, primitive.Blake3_256, event.JSON)
	ctrl := identifier.New(proc, store, transport, oobiStore, bus, primitive.Blake3_256, event.JSON)

	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)
	m.Subscribe(bus)

	sched := cron.New()
	if _, err := sched.AddFunc(fmt.Sprintf("@every %s", cfg.Escrow.SweepInterval.Duration()), func() {
		n := escrows.Sweep()
		if n > 0 {
			logger.Printf("escrow sweep expired %d entries", n)
		}
	}); err != nil {
		return fmt.Errorf("keri-controllerd: schedule escrow sweep: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	httpServer := &http.Server{Addr: cfg.Monitoring.MetricsAddr, Handler: mux}

	go func() {
		logger.Printf("metrics listening on %s", cfg.Monitoring.MetricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("metrics server: %v", err)
		}
	}()

	_ = ctrl // the Controller is bound to an identifier via ctrl.Bind once its own inception event exists

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newStore(cfg config.StorageSettings) (eventdb.Store, error) {
	switch cfg.Backend {
	case "inmem":
		return inmem.New(), nil
	case "kvlog":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		db, err := dbm.NewGoLevelDB("keri-controller", cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open goleveldb at %s: %w", filepath.Clean(cfg.DataDir), err)
		}
		return kvlog.New(db), nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(context.Background()); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return postgres.New(db), nil
	default:
		return nil, fmt.Errorf("unrecognized storage backend %q", cfg.Backend)
	}
}

func newOOBIStore(ctx context.Context, cfg config.OOBISettings) (oobi.Store, error) {
	switch cfg.Backend {
	case "inmem":
		return oobiinmem.New(), nil
	case "firestore":
		return oobifirestore.New(ctx, &oobifirestore.Config{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
			Enabled:         true,
		})
	default:
		return nil, fmt.Errorf("unrecognized oobi backend %q", cfg.Backend)
	}
}
