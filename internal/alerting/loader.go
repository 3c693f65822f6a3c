package alerting

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/tagwatch/internal/models"
)

// SeedRule is the YAML shape of a rule seed. Seeds let a deployment ship
// alarm definitions in a file instead of creating them through the API.
type SeedRule struct {
	Sensor      string  `yaml:"sensor"`
	Type        string  `yaml:"type"`
	Low         float64 `yaml:"low"`
	High        float64 `yaml:"high"`
	Enabled     *bool   `yaml:"enabled,omitempty"`
	Description string  `yaml:"description,omitempty"`
}

// seedConfig is the top-level YAML document.
type seedConfig struct {
	Rules []SeedRule `yaml:"rules"`
}

// LoadRulesFromFile loads alarm rule seeds from a YAML file.
func LoadRulesFromFile(path string) ([]*models.AlarmRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()

	return LoadRules(f)
}

// LoadRules loads alarm rule seeds from a reader. Every rule is validated;
// a single bad seed fails the whole load so misconfigurations surface at
// startup instead of silently never alerting.
func LoadRules(r io.Reader) ([]*models.AlarmRule, error) {
	var cfg seedConfig
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse rules YAML: %w", err)
	}

	now := time.Now()
	rules := make([]*models.AlarmRule, 0, len(cfg.Rules))
	for i, seed := range cfg.Rules {
		rule, err := seed.toRule(now)
		if err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s SeedRule) toRule(now time.Time) (*models.AlarmRule, error) {
	if s.Sensor == "" {
		return nil, fmt.Errorf("sensor is required")
	}
	alarmType, ok := models.AlarmTypeByNetworkCode(s.Type)
	if !ok {
		return nil, fmt.Errorf("unknown alarm type %q", s.Type)
	}
	enabled := true
	if s.Enabled != nil {
		enabled = *s.Enabled
	}
	rule := &models.AlarmRule{
		SensorID:    s.Sensor,
		Type:        alarmType,
		Low:         s.Low,
		High:        s.High,
		Enabled:     enabled,
		Description: s.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// WatchRules watches a rule seed file and invokes onReload with the newly
// parsed rules whenever the file changes. A reload that fails to parse is
// logged and the previous rules stay in effect. Returns a stop function.
func WatchRules(path string, onReload func([]*models.AlarmRule)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors replace files on save, which drops a
	// watch placed on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				abs, _ := filepath.Abs(event.Name)
				if abs != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				rules, err := LoadRulesFromFile(path)
				if err != nil {
					log.Printf("rules reload failed, keeping previous rules: %v", err)
					continue
				}
				log.Printf("reloaded %d alarm rule seeds from %s", len(rules), path)
				onReload(rules)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("rules watcher error: %v", err)
			}
		}
	}()

	return watcher.Close, nil
}
