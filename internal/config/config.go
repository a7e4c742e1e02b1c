package config

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/kibanahunt/internal/errors"
	"github.com/anstrom/kibanahunt/internal/logging"
	"github.com/anstrom/kibanahunt/internal/targets"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600
)

// Config represents the complete scanner configuration
type Config struct {
	// Scan parameters
	Scan ScanConfig `yaml:"scan" json:"scan" mapstructure:"scan"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Report rendering
	Output OutputConfig `yaml:"output" json:"output" mapstructure:"output"`
}

// ScanConfig holds the parameters of one scan run
type ScanConfig struct {
	// Networks to scan, CIDR blocks or single addresses
	Ranges []string `yaml:"ranges" json:"ranges" mapstructure:"ranges" validate:"required,min=1,dive,required"`

	// Ports to check on every host, e.g. "5601,9200" or "9200-9210"
	Ports string `yaml:"ports" json:"ports" mapstructure:"ports" validate:"required"`

	// Number of concurrent workers
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers" validate:"gt=0,lte=65535"`

	// Capacity of the address queue, 0 means twice the worker count
	QueueSize int `yaml:"queue_size" json:"queue_size" mapstructure:"queue_size" validate:"gte=0"`

	// Body substrings that confirm a service
	Signatures []string `yaml:"signatures" json:"signatures" mapstructure:"signatures" validate:"required,min=1,dive,required"`

	// TCP connect timeout
	TCPTimeout time.Duration `yaml:"tcp_timeout" json:"tcp_timeout" mapstructure:"tcp_timeout"`

	// HTTP request timeout
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout" mapstructure:"http_timeout"`

	// Maximum response body read during validation
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`

	// User-Agent header, empty selects the built-in value
	UserAgent string `yaml:"user_agent" json:"user_agent" mapstructure:"user_agent"`

	// Look up PTR names for confirmed services
	ResolveNames bool `yaml:"resolve_names" json:"resolve_names" mapstructure:"resolve_names"`

	// DNS server for PTR lookups, empty uses /etc/resolv.conf
	DNSServer string `yaml:"dns_server" json:"dns_server" mapstructure:"dns_server"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level" mapstructure:"level" validate:"oneof=debug info warn error"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format" mapstructure:"format" validate:"oneof=text json"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output" mapstructure:"output"`

	// Include source locations
	AddSource bool `yaml:"add_source" json:"add_source" mapstructure:"add_source"`
}

// MetricsConfig holds Prometheus endpoint settings
type MetricsConfig struct {
	// Serve /metrics while scanning
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr" mapstructure:"listen_addr"`
}

// OutputConfig holds report settings
type OutputConfig struct {
	// Summary format (table, json)
	Format string `yaml:"format" json:"format" mapstructure:"format" validate:"oneof=table json"`

	// Colour mode (auto, always, never)
	Color string `yaml:"color" json:"color" mapstructure:"color" validate:"oneof=auto always never"`

	// Show live progress
	Progress bool `yaml:"progress" json:"progress" mapstructure:"progress"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Scan:    DefaultScan(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
		},
		Output: OutputConfig{
			Format:   "table",
			Color:    "auto",
			Progress: true,
		},
	}
}

// DefaultScan returns the default scan parameters. Ranges are left empty and
// must be supplied by the operator.
func DefaultScan() ScanConfig {
	return ScanConfig{
		Ports:        "5601,9200",
		Workers:      150,
		QueueSize:    0,
		Signatures:   []string{"Kibana", "Elastic"},
		TCPTimeout:   2 * time.Second,
		HTTPTimeout:  5 * time.Second,
		MaxBodyBytes: 4 << 20,
	}
}

// LoadFile reads configuration from a file on top of the defaults without
// validating it. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read config file", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapConfigError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config file %s", filepath.Base(path)), err)
	}

	return config, nil
}

// Load loads and validates configuration from a file
func Load(path string) (*Config, error) {
	config, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if err := c.Scan.validateValues(); err != nil {
		return err
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.ListenAddr); err != nil {
			return errors.NewConfigFieldError(errors.CodeValidation,
				"metrics listen address must be host:port", "metrics.listen_addr", c.Metrics.ListenAddr)
		}
	}

	return nil
}

// Validate checks the scan parameters on their own.
func (s *ScanConfig) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	return s.validateValues()
}

func (s *ScanConfig) validateValues() error {
	if s.TCPTimeout <= 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"tcp timeout must be positive", "scan.tcp_timeout", s.TCPTimeout)
	}
	if s.HTTPTimeout <= 0 {
		return errors.NewConfigFieldError(errors.CodeValidation,
			"http timeout must be positive", "scan.http_timeout", s.HTTPTimeout)
	}
	if _, err := ParsePorts(s.Ports); err != nil {
		return err
	}
	if _, err := targets.ParseRanges(s.Ranges); err != nil {
		return err
	}
	return nil
}

// PortList parses the configured ports.
func (s *ScanConfig) PortList() ([]uint16, error) {
	return ParsePorts(s.Ports)
}

// RangeList parses the configured ranges.
func (s *ScanConfig) RangeList() ([]targets.Range, error) {
	return targets.ParseRanges(s.Ranges)
}

// EffectiveQueueSize resolves a zero queue size to twice the worker count.
func (s *ScanConfig) EffectiveQueueSize() int {
	if s.QueueSize > 0 {
		return s.QueueSize
	}
	return 2 * s.Workers
}

// LoggerConfig converts the logging section for the logging package.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     logging.LogLevel(c.Logging.Level),
		Format:    logging.LogFormat(c.Logging.Format),
		Output:    c.Logging.Output,
		AddSource: c.Logging.AddSource,
	}
}

// ParsePorts parses a comma separated list of ports and inclusive a-b ranges.
// Order is preserved and repeated ports are dropped.
func ParsePorts(spec string) ([]uint16, error) {
	var ports []uint16
	seen := make(map[uint16]bool)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, err := parsePortRange(part)
		if err != nil {
			return nil, errors.NewConfigFieldError(errors.CodeValidation,
				fmt.Sprintf("invalid port %q: %v", part, err), "scan.ports", spec)
		}
		for p := lo; ; p++ {
			if !seen[p] {
				seen[p] = true
				ports = append(ports, p)
			}
			if p == hi {
				break
			}
		}
	}

	if len(ports) == 0 {
		return nil, errors.NewConfigFieldError(errors.CodeValidation,
			"at least one port is required", "scan.ports", spec)
	}
	return ports, nil
}

func parsePortRange(s string) (uint16, uint16, error) {
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		start, err := parsePort(lo)
		if err != nil {
			return 0, 0, err
		}
		end, err := parsePort(hi)
		if err != nil {
			return 0, 0, err
		}
		if start > end {
			return 0, 0, fmt.Errorf("range start %d is after end %d", start, end)
		}
		return start, end, nil
	}

	p, err := parsePort(s)
	return p, p, err
}

func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("not a port number")
	}
	if n == 0 {
		return 0, fmt.Errorf("port 0 is not allowed")
	}
	return uint16(n), nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tag rules and reports the first failure
// using the yaml path of the offending field.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.WrapConfigError(errors.CodeConfiguration, "configuration validation failed", err)
	}

	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	if _, isScan := v.(*ScanConfig); isScan {
		field = "scan." + field
	}

	code := errors.CodeValidation
	if fe.Tag() == "required" {
		code = errors.CodeConfiguration
	}
	return &errors.ConfigError{
		Code:    code,
		Message: fmt.Sprintf("failed %q rule", ruleDescription(fe)),
		Field:   field,
		Value:   fe.Value(),
		Cause:   err,
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleDescription(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
