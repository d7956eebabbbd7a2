package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/urmzd/vanhub/pkg/api"
	"github.com/urmzd/vanhub/pkg/config"
	"github.com/urmzd/vanhub/pkg/control"
	"github.com/urmzd/vanhub/pkg/db"
	"github.com/urmzd/vanhub/pkg/device"
	"github.com/urmzd/vanhub/pkg/device/netexec"
	"github.com/urmzd/vanhub/pkg/dispatch"
	"github.com/urmzd/vanhub/pkg/logging"
	"github.com/urmzd/vanhub/pkg/mailbox"
	hubmcp "github.com/urmzd/vanhub/pkg/mcp"
	"github.com/urmzd/vanhub/pkg/mqtt"
	"github.com/urmzd/vanhub/pkg/wireless"
	"golang.org/x/sync/errgroup"

	_ "github.com/urmzd/vanhub/docs"
)

// @title           Van Hub API
// @version         1.0
// @description     Control the van's network dimmers over HTTP

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http

var version = "dev"

const shutdownGrace = 5 * time.Second

const usage = `Usage: hub <command> [flags]

Commands:
  run        start the hub (default)
  shutdown   stop a running hub over its control channel
  version    print the version
`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})

	if err := execute(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("hub failed")
		os.Exit(1)
	}
}

func execute(args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return runCommand(args)
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:])
	case "shutdown":
		return shutdownCommand(args[1:])
	case "version":
		fmt.Println(version)
		return nil
	case "help":
		fmt.Print(usage)
		return nil
	}

	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", args[0])
}

type runOptions struct {
	dryRun bool
	mcp    bool
	noBLE  bool
}

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "Path to config file (default: $HUB_CONFIG or "+config.DefaultPath+")")
	var opts runOptions
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Log commands instead of contacting devices")
	fs.BoolVar(&opts.mcp, "mcp", false, "Serve MCP tools on stdio; logs go to stderr")
	fs.BoolVar(&opts.noBLE, "no-ble", false, "Disable the Bluetooth front-end")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := config.ResolvePath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	logging.Setup(cfg.Logging, opts.mcp)
	log.Info().Str("config", path).Str("version", version).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, opts)
}

func run(ctx context.Context, cfg *config.Config, opts runOptions) error {
	devices, err := cfg.DeviceList()
	if err != nil {
		return err
	}
	registry, err := device.NewRegistry(devices)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := dispatch.NewMetrics(promReg)

	var observers []dispatch.LevelObserver

	if cfg.Database.Path != "" {
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close database")
			}
		}()

		log.Info().Str("path", database.Path()).Msg("Database opened")

		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
		if err := database.Bootstrap(ctx, registry); err != nil {
			return fmt.Errorf("failed to restore device levels: %w", err)
		}
		observers = append(observers, database.Devices())
	} else {
		log.Info().Msg("Persistence disabled")
	}

	if cfg.MQTT.Enabled {
		pub := mqtt.Connect(cfg.MQTT)
		defer pub.Close()
		observers = append(observers, pub)
	}

	var exec device.Executor = netexec.New(cfg.DeviceTimeout())
	if opts.dryRun {
		log.Warn().Msg("Dry run, devices will not be contacted")
		exec = device.NewNullExecutor()
	}

	box := mailbox.New()
	dispatcher := dispatch.New(box, registry, exec, dispatch.Options{
		Tick:          cfg.Tick(),
		Dedup:         cfg.Dispatch.Dedup,
		DeviceTimeout: cfg.DeviceTimeout(),
		Metrics:       metrics,
		Observers:     observers,
	})
	intake := dispatch.NewIntake(box, registry, cfg.InquiryTimeout(), metrics)

	// the control channel cancels everything below
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctl, err := control.Listen(cfg.Control.Address, cancel)
	if err != nil {
		return err
	}

	router := api.NewRouter(intake, api.Options{
		LegacyErrors: cfg.API.LegacyErrors,
		CORSOrigins:  cfg.API.CORSOrigins,
		Gatherer:     promReg,
	})
	srv := &http.Server{
		Addr:              cfg.APIAddress(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return ctl.Serve(gctx) })

	g.Go(func() error {
		log.Info().Str("address", srv.Addr).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.BLE.Enabled && !opts.noBLE {
		adapter := wireless.NewAdapter(intake)
		g.Go(func() error {
			err := wireless.Serve(gctx, adapter, wireless.Options{
				LocalName:      cfg.BLE.LocalName,
				NotifyInterval: cfg.NotifyInterval(),
			})
			if err != nil && gctx.Err() == nil {
				log.Warn().Err(err).Msg("Wireless front-end unavailable")
			}
			return nil
		})
	}

	if opts.mcp {
		mcpServer := hubmcp.NewServer(intake, version)
		g.Go(func() error {
			log.Info().Msg("Starting MCP server on stdio")
			err := mcpServer.Serve(gctx, os.Stdin, os.Stdout)
			if gctx.Err() != nil {
				return nil
			}
			log.Info().Err(err).Msg("MCP client disconnected, shutting down")
			cancel()
			return nil
		})
	}

	err = g.Wait()
	log.Info().Msg("Hub stopped")
	return err
}

func shutdownCommand(args []string) error {
	fs := pflag.NewFlagSet("shutdown", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "Config file to read control.address from")
	addr := fs.String("control", "", "Control address of the running hub (default: from config, else "+control.DefaultAddress+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *addr == "" {
		*addr = control.DefaultAddress
		if cfg, err := config.Load(config.ResolvePath(*configPath)); err == nil {
			*addr = cfg.Control.Address
		} else {
			log.Debug().Err(err).Msg("No usable config, using default control address")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := control.SendShutdown(ctx, *addr); err != nil {
		return err
	}
	log.Info().Str("address", *addr).Msg("Hub is shutting down")
	return nil
}
