// Package config loads the process configuration of a conserver: the connections it needs and the link,
// storage and chain definitions that are written into the chain store on start.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/vcon-dev/conserver"
)

const (
	EnvConfigPath   = "CONSERVER_CONFIG"
	EnvRedisURL     = "CONSERVER_REDIS_URL"
	EnvKafkaBrokers = "CONSERVER_KAFKA_BROKERS"
	EnvAPIAddr      = "CONSERVER_API_ADDR"

	DefaultPath     = "conserver.yml"
	DefaultRedisURL = "redis://localhost:6379/0"
	DefaultAPIAddr  = ":8000"
)

var (
	ErrUnknownFormat    = errors.New("unknown config format", j.C("ERR_a9d3f01c5e28b746"))
	ErrUnknownReference = errors.New("chain references an undefined stage", j.C("ERR_17c4e6b9f3a05d82"))
	ErrInvalidDuration  = errors.New("invalid duration", j.C("ERR_6b2e8d4f1a97c035"))
)

type Config struct {
	Redis    RedisConfig      `yaml:"redis" toml:"redis"`
	Kafka    KafkaConfig      `yaml:"kafka" toml:"kafka"`
	API      APIConfig        `yaml:"api" toml:"api"`
	Engine   EngineConfig     `yaml:"engine" toml:"engine"`
	Links    map[string]Stage `yaml:"links" toml:"links"`
	Storages map[string]Stage `yaml:"storages" toml:"storages"`
	Chains   map[string]Chain `yaml:"chains" toml:"chains"`
}

type RedisConfig struct {
	URL string `yaml:"url" toml:"url"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" toml:"brokers"`
	GroupID string   `yaml:"group_id" toml:"group_id"`
}

type APIConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// EngineConfig mirrors the engine options. Durations are Go duration strings such as "500ms".
type EngineConfig struct {
	ConsumerName  string `yaml:"consumer_name" toml:"consumer_name"`
	ParallelCount int    `yaml:"parallel_count" toml:"parallel_count"`
	PopTimeout    string `yaml:"pop_timeout" toml:"pop_timeout"`
	MaxDeliveries int    `yaml:"max_deliveries" toml:"max_deliveries"`
	TickInterval  string `yaml:"tick_interval" toml:"tick_interval"`
	RecordTTL     string `yaml:"record_ttl" toml:"record_ttl"`
	Debug         bool   `yaml:"debug" toml:"debug"`

	// PubSub selects the transport of ingress topics: "redis", "kafka" or empty to disable topics.
	PubSub string `yaml:"pubsub" toml:"pubsub"`
}

type Stage struct {
	Module  string         `yaml:"module" toml:"module"`
	Options map[string]any `yaml:"options" toml:"options"`
}

type Chain struct {
	Links         []string `yaml:"links" toml:"links"`
	IngressLists  []string `yaml:"ingress_lists" toml:"ingress_lists"`
	IngressTopics []string `yaml:"ingress_topics" toml:"ingress_topics"`
	EgressLists   []string `yaml:"egress_lists" toml:"egress_lists"`
	EgressChains  []string `yaml:"egress_chains" toml:"egress_chains"`
	Storages      []string `yaml:"storages" toml:"storages"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled" toml:"enabled"`
}

// Path returns the config file to load: the explicit path when set, otherwise $CONSERVER_CONFIG and
// finally DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}

	return DefaultPath
}

// LoadEnv loads .env files into the environment. Missing files are ignored and variables that are already
// set are left untouched.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}

	if len(existing) == 0 {
		return nil
	}

	return godotenv.Load(existing...)
}

// Load reads a YAML or TOML config file, chosen by extension, and applies environment overrides and
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config", j.MKV{"path": path})
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrap(err, "parse config", j.MKV{"path": path})
	}

	return cfg, nil
}

// Parse decodes a config document. ext is the file extension naming the format.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrap(ErrUnknownFormat, "", j.MKV{"ext": ext})
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Redis.URL = v
	}

	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	if v := os.Getenv(EnvAPIAddr); v != "" {
		c.API.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}

	if c.API.Addr == "" {
		c.API.Addr = DefaultAPIAddr
	}
}

// Validate checks that every link and storage named by a chain is defined.
func (c *Config) Validate() error {
	for _, name := range sortedKeys(c.Chains) {
		chain := c.Chains[name]
		for _, l := range chain.Links {
			if _, ok := c.Links[l]; !ok {
				return errors.Wrap(ErrUnknownReference, "", j.MKV{"chain": name, "link": l})
			}
		}

		for _, s := range chain.Storages {
			if _, ok := c.Storages[s]; !ok {
				return errors.Wrap(ErrUnknownReference, "", j.MKV{"chain": name, "storage": s})
			}
		}

		for _, target := range chain.EgressChains {
			if _, ok := c.Chains[target]; !ok {
				return errors.Wrap(ErrUnknownReference, "", j.MKV{"chain": name, "egress_chain": target})
			}
		}
	}

	return nil
}

// ChainDefinitions returns the chains in the form held by the chain store, sorted by name.
func (c *Config) ChainDefinitions() []conserver.Chain {
	var out []conserver.Chain
	for _, name := range sortedKeys(c.Chains) {
		out = append(out, c.Chains[name].definition(name))
	}

	return out
}

func (ch Chain) definition(name string) conserver.Chain {
	enabled := true
	if ch.Enabled != nil {
		enabled = *ch.Enabled
	}

	return conserver.Chain{
		Name:          name,
		Links:         ch.Links,
		IngressLists:  ch.IngressLists,
		IngressTopics: ch.IngressTopics,
		EgressLists:   ch.EgressLists,
		EgressChains:  ch.EgressChains,
		Storages:      ch.Storages,
		Enabled:       conserver.Flag(enabled),
	}
}

func (s Stage) definition() conserver.StageDefinition {
	return conserver.StageDefinition{
		Module:  s.Module,
		Options: conserver.StageOptions(s.Options).Clone(),
	}
}

// EngineOptions translates the engine section into engine options.
func (c *Config) EngineOptions() ([]conserver.Option, error) {
	e := c.Engine

	var opts []conserver.Option
	if e.ConsumerName != "" {
		opts = append(opts, conserver.WithConsumerName(e.ConsumerName))
	}

	if e.ParallelCount > 0 {
		opts = append(opts, conserver.WithParallelCount(e.ParallelCount))
	}

	if e.MaxDeliveries > 0 {
		opts = append(opts, conserver.WithMaxDeliveries(e.MaxDeliveries))
	}

	if e.Debug {
		opts = append(opts, conserver.WithDebugMode())
	}

	durations := []struct {
		key   string
		value string
		apply func(d time.Duration) conserver.Option
	}{
		{key: "pop_timeout", value: e.PopTimeout, apply: conserver.WithPopTimeout},
		{key: "tick_interval", value: e.TickInterval, apply: conserver.WithTickDriver},
		{key: "record_ttl", value: e.RecordTTL, apply: conserver.WithRecordTTL},
	}

	for _, d := range durations {
		if d.value == "" {
			continue
		}

		parsed, err := time.ParseDuration(d.value)
		if err != nil || parsed <= 0 {
			return nil, errors.Wrap(ErrInvalidDuration, "", j.MKV{"key": d.key, "value": d.value})
		}

		opts = append(opts, d.apply(parsed))
	}

	return opts, nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}
