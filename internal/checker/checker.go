// Package checker drives periodic and event-driven alarm evaluation for
// every registered sensor.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/tagwatch/internal/alerting"
	"github.com/good-yellow-bee/tagwatch/internal/metrics"
	"github.com/good-yellow-bee/tagwatch/internal/models"
	"github.com/good-yellow-bee/tagwatch/internal/notifier"
	"github.com/good-yellow-bee/tagwatch/internal/storage"
)

// movementHistoryDepth is how many recent readings a check fetches. Movement
// rules compare the latest reading against its predecessor.
const movementHistoryDepth = 2

// Config holds checker configuration.
type Config struct {
	Interval      time.Duration // periodic sweep period (default: 1 minute)
	Retention     time.Duration // reading history retention (default: 10 days)
	PruneInterval time.Duration // how often retention pruning runs (default: 1 hour)
	Concurrency   int           // max sensors checked in parallel (default: 8)
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 10 * 24 * time.Hour
	}
	if c.PruneInterval <= 0 {
		c.PruneInterval = time.Hour
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
}

// Checker evaluates alarm rules against the latest stored readings and
// dispatches the resulting notifications.
type Checker struct {
	store      storage.Storage
	engine     *alerting.Engine
	dispatcher *notifier.Dispatcher
	cfg        Config
}

// New creates a checker.
func New(store storage.Storage, engine *alerting.Engine, dispatcher *notifier.Dispatcher, cfg Config) *Checker {
	cfg.setDefaults()
	return &Checker{
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// Run sweeps all sensors on the configured interval and prunes old history
// periodically. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) error {
	sweep := time.NewTicker(c.cfg.Interval)
	defer sweep.Stop()
	prune := time.NewTicker(c.cfg.PruneInterval)
	defer prune.Stop()

	log.Printf("checker running: sweep every %s, retention %s", c.cfg.Interval, c.cfg.Retention)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sweep.C:
			if err := c.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("sweep failed: %v", err)
			}
		case <-prune.C:
			c.pruneHistory(ctx)
		}
	}
}

// Sweep checks every registered sensor, a bounded number in parallel.
func (c *Checker) Sweep(ctx context.Context) error {
	sensors, err := c.store.Sensors().List(ctx)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_sensors").Inc()
		return fmt.Errorf("failed to list sensors: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, sensor := range sensors {
		id := sensor.ID
		g.Go(func() error {
			if _, err := c.CheckSensor(ctx, id); err != nil {
				// One broken sensor must not abort the sweep.
				log.Printf("check failed for sensor %s: %v", id, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// OnReading runs an immediate check for one sensor. The ingest pipeline
// calls it after storing a new reading so threshold crossings notify without
// waiting for the next sweep.
func (c *Checker) OnReading(ctx context.Context, sensorID string) {
	if _, err := c.CheckSensor(ctx, sensorID); err != nil {
		log.Printf("reading-triggered check failed for sensor %s: %v", sensorID, err)
	}
}

// CheckSensor evaluates all enabled rules for one sensor against its latest
// reading, dispatches notifications, and records fired events. It returns
// the events that fired.
func (c *Checker) CheckSensor(ctx context.Context, sensorID string) ([]alerting.NotificationEvent, error) {
	start := time.Now()
	defer func() {
		metrics.CheckDuration.Observe(time.Since(start).Seconds())
	}()

	snapshot, history, err := c.loadState(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		// No readings yet; nothing to evaluate.
		return nil, nil
	}

	rules, err := c.store.Rules().ListEnabledBySensor(ctx, sensorID)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_rules").Inc()
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	metrics.RulesEvaluatedTotal.Add(float64(len(rules)))

	events := c.engine.CheckAlarms(*snapshot, history, rules)
	for i := range events {
		c.deliver(ctx, &events[i])
	}
	return events, nil
}

// Status answers a status query for one sensor without consuming any
// notification budget.
func (c *Checker) Status(ctx context.Context, sensorID string) (alerting.AlarmSensorStatus, error) {
	snapshot, history, err := c.loadState(ctx, sensorID)
	if err != nil {
		return alerting.AlarmSensorStatus{}, err
	}

	rules, err := c.store.Rules().ListBySensor(ctx, sensorID)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_rules").Inc()
		return alerting.AlarmSensorStatus{}, fmt.Errorf("failed to load rules: %w", err)
	}

	if snapshot == nil {
		// No readings: rules cannot be violated, but their presence still
		// decides between "no alarms" and "not triggered".
		for _, rule := range rules {
			if rule.Enabled {
				return alerting.AlarmSensorStatus{Status: alerting.StatusNotTriggered}, nil
			}
		}
		return alerting.AlarmSensorStatus{Status: alerting.StatusNoAlarms}, nil
	}

	return c.engine.Status(*snapshot, history, rules), nil
}

// CancelNotification retracts a delivered notification and clears the
// rule's cooldown so a later violation fires immediately.
func (c *Checker) CancelNotification(ctx context.Context, ruleID int64) error {
	c.engine.Throttle().Clear(ruleID)
	return c.dispatcher.Cancel(ctx, ruleID)
}

// loadState fetches the sensor row and its recent readings and builds the
// engine inputs. A nil snapshot means the sensor has no readings.
func (c *Checker) loadState(ctx context.Context, sensorID string) (*models.SensorSnapshot, []models.Reading, error) {
	sensor, err := c.store.Sensors().GetByID(ctx, sensorID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sensor: %w", err)
	}

	recent, err := c.store.Readings().LatestForSensor(ctx, sensorID, movementHistoryDepth)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("latest_readings").Inc()
		return nil, nil, fmt.Errorf("failed to load readings: %w", err)
	}
	if len(recent) == 0 {
		return nil, nil, nil
	}

	snapshot := models.SnapshotFromReading(sensor, recent[0])

	// The store returns newest first; the engine wants oldest first.
	history := make([]models.Reading, len(recent))
	for i, r := range recent {
		history[len(recent)-1-i] = *r
	}

	return &snapshot, history, nil
}

// deliver dispatches one event and appends it to the audit trail.
func (c *Checker) deliver(ctx context.Context, event *alerting.NotificationEvent) {
	metrics.EventsFiredTotal.WithLabelValues(event.Type.String()).Inc()

	switch err := c.dispatcher.Dispatch(ctx, event); {
	case err == nil:
		metrics.NotificationsSentTotal.Inc()
	case errors.Is(err, notifier.ErrRateLimited):
		metrics.NotificationsRateLimited.Inc()
		log.Printf("notification rate limited: rule %d sensor %s", event.RuleID, event.SensorID)
	default:
		metrics.NotificationErrors.Inc()
		log.Printf("notification delivery failed: rule %d sensor %s: %v", event.RuleID, event.SensorID, err)
	}

	record := &models.AlarmEvent{
		ID:          uuid.NewString(),
		RuleID:      event.RuleID,
		SensorID:    event.SensorID,
		Type:        event.Type,
		Message:     event.Message,
		TriggeredAt: event.Timestamp,
	}
	if err := c.store.Events().Create(ctx, record); err != nil {
		metrics.StorageErrors.WithLabelValues("create_event").Inc()
		log.Printf("failed to record alarm event for rule %d: %v", event.RuleID, err)
	}
}

// pruneHistory removes readings and audit events older than the retention window.
func (c *Checker) pruneHistory(ctx context.Context) {
	cutoff := time.Now().Add(-c.cfg.Retention)

	removed, err := c.store.Readings().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("prune_readings").Inc()
		log.Printf("reading pruning failed: %v", err)
	} else if removed > 0 {
		metrics.ReadingsPrunedTotal.Add(float64(removed))
		log.Printf("pruned %d readings older than %s", removed, cutoff.Format(time.RFC3339))
	}

	if _, err := c.store.Events().DeleteBefore(ctx, cutoff); err != nil {
		metrics.StorageErrors.WithLabelValues("prune_events").Inc()
		log.Printf("event pruning failed: %v", err)
	}
}
