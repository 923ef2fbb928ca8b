package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is the top-level structure of a chartbuzz.yaml file. Everything in
// it is a tunable; secrets and infrastructure endpoints come from the
// environment instead (see env.go).
type Document struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Collector CollectorConfig `yaml:"collector,omitempty"`
	Filters   []FilterRule    `yaml:"filters,omitempty"`
}

type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// CollectorConfig tunes the pagination loop and the duplicate filter.
type CollectorConfig struct {
	TargetCount         int      `yaml:"target_count,omitempty"`
	PageSize            int      `yaml:"page_size,omitempty"`
	MaxAttempts         int      `yaml:"max_attempts,omitempty"`
	PageDelay           Duration `yaml:"page_delay,omitempty"`
	PageTimeout         Duration `yaml:"page_timeout,omitempty"`
	SimilarityThreshold float64  `yaml:"similarity_threshold,omitempty"`
}

// FilterRule drops posts matching an expr-lang expression before
// deduplication, e.g. `rule: "likes + retweets == 0"` with `result: drop`.
type FilterRule struct {
	Name   string `yaml:"name"`
	Rule   string `yaml:"rule"`
	Result string `yaml:"result"`
}

// Duration is a time.Duration that unmarshals from Go duration syntax
// ("300ms", "2s") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoadDocument reads and validates a chartbuzz.yaml file, filling defaults
// for anything omitted. A missing file yields the defaults.
func LoadDocument(path string) (*Document, error) {
	doc := &Document{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			doc.applyDefaults()
			return doc, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse chartbuzz document: %w", err)
	}
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) applyDefaults() {
	if d.Server.Host == "" {
		d.Server.Host = "0.0.0.0"
	}
	if d.Server.Port == 0 {
		d.Server.Port = 3001
	}
	if d.Collector.TargetCount == 0 {
		d.Collector.TargetCount = 5000
	}
	if d.Collector.PageSize == 0 {
		d.Collector.PageSize = 100
	}
	if d.Collector.MaxAttempts == 0 {
		d.Collector.MaxAttempts = 50
	}
	if d.Collector.PageDelay == 0 {
		d.Collector.PageDelay = Duration(300 * time.Millisecond)
	}
	if d.Collector.SimilarityThreshold == 0 {
		d.Collector.SimilarityThreshold = 0.9
	}
}

func (d *Document) Validate() error {
	c := d.Collector
	if c.TargetCount < 0 || c.PageSize < 0 || c.MaxAttempts < 0 {
		return fmt.Errorf("collector counts must not be negative")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("collector.similarity_threshold must be within [0, 1], got %v", c.SimilarityThreshold)
	}
	for i, rule := range d.Filters {
		if rule.Name == "" || rule.Rule == "" {
			return fmt.Errorf("filters[%d]: name and rule are required", i)
		}
		if rule.Result != "drop" && rule.Result != "keep" {
			return fmt.Errorf("filters[%d]: result must be %q or %q, got %q", i, "drop", "keep", rule.Result)
		}
	}
	return nil
}
