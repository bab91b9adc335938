package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openestate/watchtower/internal/alerting"
	"github.com/openestate/watchtower/internal/api"
	"github.com/openestate/watchtower/internal/escalation"
	"github.com/openestate/watchtower/internal/metrics"
	"github.com/openestate/watchtower/internal/monitor"
	"github.com/openestate/watchtower/internal/notifier"
	"github.com/openestate/watchtower/internal/overview"
	"github.com/openestate/watchtower/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "watchtower-server",
	Short: "Watchtower - operational alerting engine",
	Long: `Watchtower watches operational metrics, evaluates alert rules,
and drives time-delayed multi-channel escalation and notification.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.VersionString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	// Core stores and registries
	rules := alerting.NewRuleStore()
	registry := alerting.NewRegistry()
	channels := notifier.NewChannelRegistry()
	policies := escalation.NewPolicyRegistry()
	history := notifier.NewHistory(cfg.Notification.HistoryCapacity)
	recorder := monitor.NewRecorder(cfg.Alerting.SnapshotHistory)

	// Seed channels and policies from configuration
	for _, channel := range cfg.Channels {
		if _, err := channels.Create(channel); err != nil {
			return fmt.Errorf("register channel %q: %w", channel.Name, err)
		}
	}
	for _, policy := range cfg.Policies {
		if _, err := policies.Create(policy); err != nil {
			return fmt.Errorf("register policy %q: %w", policy.Name, err)
		}
	}

	// Load alert rules
	if cfg.Alerting.RulesFile != "" {
		loaded, err := alerting.LoadRulesFromFile(cfg.Alerting.RulesFile)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		if err := rules.Replace(loaded); err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		log.Printf("loaded %d alert rules from %s", len(loaded), cfg.Alerting.RulesFile)
	}

	// Notification pipeline
	renderer, err := notifier.NewRenderer(cfg.Notification.Environment, cfg.Notification.DashboardURL)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	dispatcher := notifier.NewDispatcher(channels, history, renderer)
	scheduler := escalation.NewScheduler(policies, registry, dispatcher)
	registry.SetCanceler(scheduler)

	// Metric source: the platform's collectors register here; until
	// they do, an empty snapshot keeps the evaluator idle.
	source := monitor.StaticSource{}
	health := monitor.NewBroadcaster()

	evaluator := alerting.NewEvaluator(rules, registry, source, recorder, scheduler, &alerting.EvaluatorOptions{
		Interval: cfg.Alerting.EvaluationInterval,
	})
	health.Subscribe(evaluator.HandleHealthTransition)

	agg := overview.NewAggregator(source, health, registry, time.Now())

	// Management API
	apiServer := api.NewServer(rules, registry, policies, channels, dispatcher, history, recorder, agg, api.Options{
		Verbose:        cfg.Verbose,
		RateLimitPerIP: cfg.Server.RateLimitPerIP,
	})
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTPAddress,
		Handler:      apiServer.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsServer := metrics.NewServer(cfg.Server.MetricsAddress)

	// Signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("management API listening on %s", cfg.Server.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(metricsServer.Start)
	g.Go(func() error {
		err := evaluator.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.Alerting.RulesFile != "" {
		g.Go(func() error {
			err := alerting.WatchRulesFile(ctx, cfg.Alerting.RulesFile, rules)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("server stopped")
	return nil
}
