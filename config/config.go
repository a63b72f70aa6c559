// Package config loads a RunConfig from environment variables, an optional
// YAML/JSON file, and programmatic overrides, per SPEC_FULL.md §4.H.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat is a bit in the output-format mask (spec.md §6).
type OutputFormat int

const (
	FormatStandard OutputFormat = 1 << iota
	FormatTAP
	FormatSubunit
	FormatXML
)

// RunConfig is the fully-resolved configuration for one run, after
// layering defaults, an optional file, environment variables, and
// programmatic overrides (in increasing precedence).
type RunConfig struct {
	OutputFormats  OutputFormat
	XMLFile        string
	AbortOnFailure bool

	FilterExpr string
	Include    []string
	Skip       []string

	MaxConcurrentGroups int

	RedisAddr      string
	CassandraHosts []string
	S3Bucket       string

	DashboardJWTIssuer string
	LogLevel           string
}

// Default returns the zero-configuration defaults: standard output, no
// abort-on-failure, one group at a time.
func Default() RunConfig {
	return RunConfig{
		OutputFormats:       FormatStandard,
		MaxConcurrentGroups: 1,
		LogLevel:            "INFO",
	}
}

// fileConfig is the subset of RunConfig a YAML/JSON config file may set;
// YAML is a superset of JSON, so one decoder (gopkg.in/yaml.v3) handles
// both.
type fileConfig struct {
	OutputFormats       []string `yaml:"output_formats"`
	XMLFile             string   `yaml:"xml_file"`
	AbortOnFailure      bool     `yaml:"abort_on_failure"`
	FilterExpr          string   `yaml:"filter_expr"`
	Include             []string `yaml:"include"`
	Skip                []string `yaml:"skip"`
	MaxConcurrentGroups int      `yaml:"max_concurrent_groups"`
	RedisAddr           string   `yaml:"redis_addr"`
	CassandraHosts      []string `yaml:"cassandra_hosts"`
	S3Bucket            string   `yaml:"s3_bucket"`
	DashboardJWTIssuer  string   `yaml:"dashboard_jwt_issuer"`
	LogLevel            string   `yaml:"log_level"`
}

func parseFormats(names []string) OutputFormat {
	var mask OutputFormat
	for _, n := range names {
		switch strings.ToUpper(strings.TrimSpace(n)) {
		case "STANDARD":
			mask |= FormatStandard
		case "TAP":
			mask |= FormatTAP
		case "SUBUNIT":
			mask |= FormatSubunit
		case "XML":
			mask |= FormatXML
		}
	}
	return mask
}

func mergeFile(cfg *RunConfig, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return err
	}
	if len(fc.OutputFormats) > 0 {
		cfg.OutputFormats = parseFormats(fc.OutputFormats)
	}
	if fc.XMLFile != "" {
		cfg.XMLFile = fc.XMLFile
	}
	if fc.AbortOnFailure {
		cfg.AbortOnFailure = true
	}
	if fc.FilterExpr != "" {
		cfg.FilterExpr = fc.FilterExpr
	}
	if len(fc.Include) > 0 {
		cfg.Include = fc.Include
	}
	if len(fc.Skip) > 0 {
		cfg.Skip = fc.Skip
	}
	if fc.MaxConcurrentGroups > 0 {
		cfg.MaxConcurrentGroups = fc.MaxConcurrentGroups
	}
	if fc.RedisAddr != "" {
		cfg.RedisAddr = fc.RedisAddr
	}
	if len(fc.CassandraHosts) > 0 {
		cfg.CassandraHosts = fc.CassandraHosts
	}
	if fc.S3Bucket != "" {
		cfg.S3Bucket = fc.S3Bucket
	}
	if fc.DashboardJWTIssuer != "" {
		cfg.DashboardJWTIssuer = fc.DashboardJWTIssuer
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	return nil
}

func mergeEnv(cfg *RunConfig) {
	if v := os.Getenv("CMOCKA_MESSAGE_OUTPUT"); v != "" {
		cfg.OutputFormats = parseFormats(strings.Split(v, ","))
	}
	if v := os.Getenv("CMOCKA_XML_FILE"); v != "" {
		cfg.XMLFile = v
	}
	if v := os.Getenv("CMOCKA_TEST_ABORT"); v != "" {
		cfg.AbortOnFailure = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("CMOCKA_FILTER_EXPR"); v != "" {
		cfg.FilterExpr = v
	}
	if v := os.Getenv("CMOCKA_MAX_GROUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentGroups = n
		}
	}
	if v := os.Getenv("CMOCKA_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("CMOCKA_CASSANDRA_HOSTS"); v != "" {
		cfg.CassandraHosts = strings.Split(v, ",")
	}
	if v := os.Getenv("CMOCKA_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("CMOCKA_DASHBOARD_JWT_ISSUER"); v != "" {
		cfg.DashboardJWTIssuer = v
	}
	if v := os.Getenv("CMOCKA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	} else if v := os.Getenv("GOCMOCKA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Option applies a programmatic override, the highest-precedence layer.
type Option func(*RunConfig)

// WithMaxConcurrentGroups overrides MaxConcurrentGroups programmatically.
func WithMaxConcurrentGroups(n int) Option {
	return func(c *RunConfig) { c.MaxConcurrentGroups = n }
}

// WithFilterExpr overrides FilterExpr programmatically.
func WithFilterExpr(expr string) Option {
	return func(c *RunConfig) { c.FilterExpr = expr }
}

// WithInclude overrides Include programmatically.
func WithInclude(patterns ...string) Option {
	return func(c *RunConfig) { c.Include = patterns }
}

// WithSkip overrides Skip programmatically.
func WithSkip(patterns ...string) Option {
	return func(c *RunConfig) { c.Skip = patterns }
}

// Load resolves a RunConfig by layering defaults, an optional file named by
// CMOCKA_CONFIG_FILE, environment variables, then opts, in increasing
// precedence.
func Load(opts ...Option) (RunConfig, error) {
	cfg := Default()
	if path := os.Getenv("CMOCKA_CONFIG_FILE"); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	mergeEnv(&cfg)
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, nil
}
