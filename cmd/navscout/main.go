package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skyfieldworks/navscout/core"
	"github.com/skyfieldworks/navscout/fc"
	"github.com/skyfieldworks/navscout/gnss"
	"github.com/skyfieldworks/navscout/internal/config"
	"github.com/skyfieldworks/navscout/internal/logging"
	"github.com/skyfieldworks/navscout/internal/observability"
	"github.com/skyfieldworks/navscout/internal/telemetry"
	"github.com/skyfieldworks/navscout/timectrl"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "navscout",
		Short:         "Mission safety supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), doctorCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var (
		cfgPath     string
		metricsAddr string
		duration    time.Duration
		autoArm     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the safety supervisor loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, metricsAddr, duration, autoArm)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "navscout.yaml", "path to the configuration file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&autoArm, "arm", true, "arm the mission at startup")
	return cmd
}

func doctorCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the configuration and geofence, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if _, err := cfg.Geofence(); err != nil {
				return fmt.Errorf("geofence: %w", err)
			}
			fmt.Println("configuration ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "navscout.yaml", "path to the configuration file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("navscout", version)
		},
	}
}

func run(ctx context.Context, cfg *config.Config, metricsAddr string, duration time.Duration, autoArm bool) error {
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	runID := uuid.NewString()
	ctx, log = logging.WithMissionLogger(ctx, log, runID)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSupervisorCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	loopMetrics, err := observability.NewLoopCollector(nil)
	if err != nil {
		return fmt.Errorf("init loop metrics: %w", err)
	}
	metricsSrv := serveMetrics(metricsAddr, collector, log)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	geofence, err := cfg.Geofence()
	if err != nil {
		return fmt.Errorf("geofence: %w", err)
	}

	clock := timectrl.SystemClock{}
	transitionSinks := []core.TransitionSink{collector}
	var opts []core.EngineOption
	opts = append(opts, core.WithMetricsRecorder(collector))

	var store *telemetry.Store
	if cfg.Telemetry.Enable {
		store, err = telemetry.Open(cfg.Telemetry.DBPath, cfg.Telemetry.KeyHex, log)
		if err != nil {
			return fmt.Errorf("open telemetry: %w", err)
		}
		defer store.Close()
		transitionSinks = append(transitionSinks, store)
		opts = append(opts,
			core.WithDirectiveSink(store),
			core.WithTelemetryControls(store),
		)
	}

	var source *gnss.FileSource
	if cfg.Gnss.Source == "nmea-file" {
		source, err = gnss.NewFileSource(cfg.Gnss.NmeaFile, clock, log)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithPositionSource(source))
	}

	var adapter *fc.Adapter
	if cfg.Fc.Enable {
		adapter = fc.NewAdapter(fc.NewLogCommander(log), fc.Config{
			MinCommandInterval: time.Duration(cfg.Fc.MinCommandIntervalS) * time.Second,
			AllowRtl:           cfg.Fc.AllowRtl,
			AllowHold:          cfg.Fc.AllowHold,
			SendHeartbeat:      cfg.Fc.SendHeartbeat,
		}, clock, log)
		opts = append(opts, core.WithDirectiveSink(adapter))
	}

	engine := core.NewSafetyEngine(cfg.EngineConfig(), geofence, clock, log, transitionSinks, opts...)

	if autoArm {
		engine.Arm()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if source != nil {
		go func() {
			if err := source.Run(runCtx, cfg.TickInterval()); err != nil && !errors.Is(err, context.Canceled) {
				log.Error(runCtx, "gnss replay stopped", logging.String("error", err.Error()))
			}
		}()
	}

	tc := timectrl.NewTickController(clock, cfg.TickInterval())
	var tickCount int
	tc.AddListener(func(now time.Time) {
		_, span := observability.Tracer().Start(runCtx, "supervisor.tick")
		started := time.Now()
		d := engine.Tick(now)
		loopMetrics.ObserveTickDuration(time.Since(started))
		span.SetAttributes(
			attribute.String("directive", d.Kind.String()),
			attribute.String("mission_state", d.State.String()),
		)
		span.End()

		if pos, ok := engine.LastKnownGood(); ok {
			loopMetrics.SetFixAge(now.Sub(pos.Time))
		}
		if adapter != nil {
			adapter.Pulse(runCtx)
			loopMetrics.SetFcSendFailures(adapter.Status().SendFailures)
		}
		tickCount++
		if store != nil && tickCount%10 == 0 {
			pos, havePos := engine.LastKnownGood()
			store.RecordStatus(now, engine.Mission().State(), engine.Mission().Severity(), pos, havePos)
		}
	})

	log.Info(ctx, "supervisor started",
		logging.String("version", version),
		logging.String("tick", cfg.TickInterval().String()),
		logging.String("metrics_addr", metricsAddr))

	done := tc.Start(duration)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigs:
		log.Info(ctx, "signal received; stopping", logging.String("signal", sig.String()))
		tc.Stop()
		<-done
	case <-done:
	}

	log.Info(ctx, "supervisor stopped",
		logging.String("final_state", engine.Mission().State().String()),
		logging.String("severity", engine.Mission().Severity().String()))
	return nil
}

func serveMetrics(addr string, collector *observability.SupervisorCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server failed", logging.String("error", err.Error()))
		}
	}()
	return srv
}
