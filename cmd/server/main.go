package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/tagwatch/internal/alerting"
	"github.com/good-yellow-bee/tagwatch/internal/api"
	"github.com/good-yellow-bee/tagwatch/internal/checker"
	"github.com/good-yellow-bee/tagwatch/internal/ingest"
	"github.com/good-yellow-bee/tagwatch/internal/metrics"
	"github.com/good-yellow-bee/tagwatch/internal/models"
	"github.com/good-yellow-bee/tagwatch/internal/notifier"
	"github.com/good-yellow-bee/tagwatch/internal/storage"
	"github.com/good-yellow-bee/tagwatch/internal/units"
	"github.com/good-yellow-bee/tagwatch/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "tagwatch-server",
	Short: "TagWatch Server - Sensor alarm evaluation and notification service",
	Long: `TagWatch Server ingests environmental sensor readings, evaluates them
against alarm rules, and delivers throttled notifications over the
configured channels.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tagwatch-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
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

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Secrets come from the environment, never the config file.
	apiKey := os.Getenv("TAGWATCH_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("TAGWATCH_API_KEY environment variable is required")
	}
	jwtSecret := os.Getenv("TAGWATCH_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("TAGWATCH_JWT_SECRET environment variable is required")
	}

	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	engine := alerting.NewEngine(&alerting.EngineOptions{
		Cooldown: cfg.Alerting.Cooldown,
		Units: units.Converter{
			Temperature: units.TemperatureUnit(cfg.Alerting.TemperatureUnit),
			Pressure:    units.PressureUnit(cfg.Alerting.PressureUnit),
		},
	})

	dispatcher := notifier.NewDispatcherWithRateLimit(notifier.RateLimitConfig{
		MaxPerWindow: cfg.Notifiers.MaxPerMinute,
		Window:       time.Minute,
		Enabled:      true,
	})
	defer dispatcher.Close()

	if cfg.Notifiers.Console {
		dispatcher.Register(notifier.NewConsoleNotifier())
	}
	if cfg.Notifiers.WebhookURL != "" {
		wh, err := notifier.NewWebhookNotifier(notifier.WebhookConfig{
			URL:     cfg.Notifiers.WebhookURL,
			Headers: cfg.Notifiers.WebhookHeaders,
		})
		if err != nil {
			return fmt.Errorf("create webhook notifier: %w", err)
		}
		dispatcher.Register(wh)
	}

	chk := checker.New(store, engine, dispatcher, checker.Config{
		Interval:      cfg.Checker.Interval,
		Retention:     cfg.Checker.Retention,
		PruneInterval: cfg.Checker.PruneInterval,
		Concurrency:   cfg.Checker.Concurrency,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sub *ingest.Subscriber
	if cfg.MQTT.Enabled {
		var err error
		sub, err = ingest.NewSubscriber(ingest.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, store, chk.OnReading)
		if err != nil {
			return fmt.Errorf("create MQTT subscriber: %w", err)
		}
		if err := sub.Start(); err != nil {
			return fmt.Errorf("start MQTT subscriber: %w", err)
		}
		defer sub.Stop()

		if cfg.Notifiers.MQTTTopicPrefix != "" {
			mn, err := notifier.NewMQTTNotifier(sub.Client(), notifier.MQTTConfig{
				TopicPrefix: cfg.Notifiers.MQTTTopicPrefix,
				QoS:         cfg.MQTT.QoS,
			})
			if err != nil {
				return fmt.Errorf("create MQTT notifier: %w", err)
			}
			dispatcher.Register(mn)
		}
	}

	if cfg.Alerting.RulesFile != "" {
		rules, err := alerting.LoadRulesFromFile(cfg.Alerting.RulesFile)
		if err != nil {
			return fmt.Errorf("load rule seeds: %w", err)
		}
		if err := syncSeedRules(ctx, store, rules); err != nil {
			return fmt.Errorf("sync rule seeds: %w", err)
		}
		log.Printf("seeded %d alarm rules from %s", len(rules), cfg.Alerting.RulesFile)

		stopWatch, err := alerting.WatchRules(cfg.Alerting.RulesFile, func(rules []*models.AlarmRule) {
			if err := syncSeedRules(context.Background(), store, rules); err != nil {
				log.Printf("rule seed sync failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("watch rule seeds: %w", err)
		}
		defer stopWatch()
	}

	srv, err := api.New(&api.Config{
		Address:            cfg.Server.Address,
		JWTSecret:          []byte(jwtSecret),
		APIKey:             apiKey,
		RateLimitPerIP:     cfg.Server.RateLimitPerIP,
		RateLimitPerClient: cfg.Server.RateLimitPerClient,
		Verbose:            cfg.Verbose,
	}, store, chk)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	log.Printf("starting tagwatch-server %s", config.Version)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return chk.Run(ctx) })
	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error { return ms.Start() })
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// syncSeedRules applies rule seeds to storage. Seeds are matched by sensor
// and alarm type: an existing rule of the same type gets its bounds updated,
// otherwise a new rule is created. Unknown sensors are registered so seeds
// can arrive before the first reading does.
func syncSeedRules(ctx context.Context, store storage.Storage, rules []*models.AlarmRule) error {
	for _, seed := range rules {
		if _, err := store.Sensors().GetByID(ctx, seed.SensorID); err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("look up sensor %s: %w", seed.SensorID, err)
			}
			sensor := &models.Sensor{ID: seed.SensorID, Name: seed.SensorID}
			if err := store.Sensors().Create(ctx, sensor); err != nil {
				return fmt.Errorf("register sensor %s: %w", seed.SensorID, err)
			}
		}

		existing, err := store.Rules().ListBySensor(ctx, seed.SensorID)
		if err != nil {
			return fmt.Errorf("list rules for %s: %w", seed.SensorID, err)
		}

		var match *models.AlarmRule
		for _, r := range existing {
			if r.Type == seed.Type {
				match = r
				break
			}
		}

		if match == nil {
			if err := store.Rules().Create(ctx, seed); err != nil {
				return fmt.Errorf("create rule for %s: %w", seed.SensorID, err)
			}
			continue
		}

		match.Low = seed.Low
		match.High = seed.High
		match.Enabled = seed.Enabled
		match.Description = seed.Description
		if err := store.Rules().Update(ctx, match); err != nil {
			return fmt.Errorf("update rule %d: %w", match.ID, err)
		}
	}
	return nil
}
