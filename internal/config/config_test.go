package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/anstrom/kibanahunt/internal/errors"
	"github.com/anstrom/kibanahunt/internal/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func validConfig() *Config {
	cfg := Default()
	cfg.Scan.Ranges = []string{"10.0.0.0/24"}
	return cfg
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) string
		wantErr  bool
		wantCode errors.ErrorCode
		check    func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid yaml config",
			setup: func(t *testing.T) string {
				return writeFile(t, "kibanahunt.yaml", `
scan:
  ranges: ["192.168.1.0/24", "10.0.0.0/30"]
  ports: "5601,9200,9243"
  workers: 32
  tcp_timeout: 500ms
  http_timeout: 3s
logging:
  level: debug
output:
  format: json
`)
			},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Scan.Ranges) != 2 {
					t.Errorf("expected 2 ranges, got %d", len(cfg.Scan.Ranges))
				}
				if cfg.Scan.Workers != 32 {
					t.Errorf("expected 32 workers, got %d", cfg.Scan.Workers)
				}
				if cfg.Scan.TCPTimeout != 500*time.Millisecond {
					t.Errorf("expected tcp timeout 500ms, got %v", cfg.Scan.TCPTimeout)
				}
				if cfg.Scan.HTTPTimeout != 3*time.Second {
					t.Errorf("expected http timeout 3s, got %v", cfg.Scan.HTTPTimeout)
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected debug level, got %s", cfg.Logging.Level)
				}
				if cfg.Output.Format != "json" {
					t.Errorf("expected json output, got %s", cfg.Output.Format)
				}
				// Untouched keys keep their defaults.
				if !reflect.DeepEqual(cfg.Scan.Signatures, []string{"Kibana", "Elastic"}) {
					t.Errorf("expected default signatures, got %v", cfg.Scan.Signatures)
				}
			},
		},
		{
			name: "valid json config",
			setup: func(t *testing.T) string {
				return writeFile(t, "kibanahunt.json", `{
					"scan": {
						"ranges": ["172.16.0.0/28"],
						"signatures": ["Kibana"]
					}
				}`)
			},
			check: func(t *testing.T, cfg *Config) {
				if !reflect.DeepEqual(cfg.Scan.Signatures, []string{"Kibana"}) {
					t.Errorf("expected signatures [Kibana], got %v", cfg.Scan.Signatures)
				}
			},
		},
		{
			name: "invalid yaml syntax",
			setup: func(t *testing.T) string {
				return writeFile(t, "bad.yaml", "scan:\n  ranges: [\n")
			},
			wantErr:  true,
			wantCode: errors.CodeConfiguration,
		},
		{
			name: "missing ranges",
			setup: func(t *testing.T) string {
				return writeFile(t, "noranges.yaml", "scan:\n  workers: 5\n")
			},
			wantErr:  true,
			wantCode: errors.CodeConfiguration,
		},
		{
			name: "invalid cidr",
			setup: func(t *testing.T) string {
				return writeFile(t, "badcidr.yaml", "scan:\n  ranges: [\"10.0.0.0/40\"]\n")
			},
			wantErr:  true,
			wantCode: errors.CodeValidation,
		},
		{
			name: "missing file returns defaults and fails validation",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.yaml")
			},
			wantErr:  true,
			wantCode: errors.CodeConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.setup(t))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if got := errors.GetCode(err); got != tt.wantCode {
					t.Errorf("expected code %s, got %s (%v)", tt.wantCode, got, err)
				}
				if !errors.IsFatal(err) {
					t.Errorf("expected configuration errors to be fatal")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Scan.Ports != "5601,9200" {
		t.Errorf("expected default ports 5601,9200, got %s", cfg.Scan.Ports)
	}
	if cfg.Scan.Workers != 150 {
		t.Errorf("expected 150 workers, got %d", cfg.Scan.Workers)
	}
	if cfg.Scan.TCPTimeout != 2*time.Second || cfg.Scan.HTTPTimeout != 5*time.Second {
		t.Errorf("unexpected default timeouts %v/%v", cfg.Scan.TCPTimeout, cfg.Scan.HTTPTimeout)
	}
	if cfg.Scan.MaxBodyBytes != 4<<20 {
		t.Errorf("expected 4 MiB body limit, got %d", cfg.Scan.MaxBodyBytes)
	}
	if cfg.Scan.EffectiveQueueSize() != 300 {
		t.Errorf("expected queue size 300, got %d", cfg.Scan.EffectiveQueueSize())
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("expected logs on stderr, got %s", cfg.Logging.Output)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kibanahunt.yaml")

	cfg := validConfig()
	cfg.Scan.TCPTimeout = 750 * time.Millisecond
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", cfg, loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		wantErr   bool
		wantField string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:      "empty ranges",
			modify:    func(c *Config) { c.Scan.Ranges = []string{} },
			wantErr:   true,
			wantField: "scan.ranges",
		},
		{
			name:      "blank range entry",
			modify:    func(c *Config) { c.Scan.Ranges = []string{"10.0.0.0/24", ""} },
			wantErr:   true,
			wantField: "scan.ranges[1]",
		},
		{
			name:      "no ports",
			modify:    func(c *Config) { c.Scan.Ports = "" },
			wantErr:   true,
			wantField: "scan.ports",
		},
		{
			name:      "only separators",
			modify:    func(c *Config) { c.Scan.Ports = " , ," },
			wantErr:   true,
			wantField: "scan.ports",
		},
		{
			name:      "zero workers",
			modify:    func(c *Config) { c.Scan.Workers = 0 },
			wantErr:   true,
			wantField: "scan.workers",
		},
		{
			name:      "negative workers",
			modify:    func(c *Config) { c.Scan.Workers = -4 },
			wantErr:   true,
			wantField: "scan.workers",
		},
		{
			name:      "no signatures",
			modify:    func(c *Config) { c.Scan.Signatures = nil },
			wantErr:   true,
			wantField: "scan.signatures",
		},
		{
			name:      "empty signature",
			modify:    func(c *Config) { c.Scan.Signatures = []string{""} },
			wantErr:   true,
			wantField: "scan.signatures[0]",
		},
		{
			name:      "zero tcp timeout",
			modify:    func(c *Config) { c.Scan.TCPTimeout = 0 },
			wantErr:   true,
			wantField: "scan.tcp_timeout",
		},
		{
			name:      "negative http timeout",
			modify:    func(c *Config) { c.Scan.HTTPTimeout = -time.Second },
			wantErr:   true,
			wantField: "scan.http_timeout",
		},
		{
			name:      "zero body limit",
			modify:    func(c *Config) { c.Scan.MaxBodyBytes = 0 },
			wantErr:   true,
			wantField: "scan.max_body_bytes",
		},
		{
			name:      "invalid log level",
			modify:    func(c *Config) { c.Logging.Level = "verbose" },
			wantErr:   true,
			wantField: "logging.level",
		},
		{
			name:      "invalid output format",
			modify:    func(c *Config) { c.Output.Format = "xml" },
			wantErr:   true,
			wantField: "output.format",
		},
		{
			name:      "invalid colour mode",
			modify:    func(c *Config) { c.Output.Color = "sometimes" },
			wantErr:   true,
			wantField: "output.color",
		},
		{
			name: "metrics enabled with bad address",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.ListenAddr = "localhost"
			},
			wantErr:   true,
			wantField: "metrics.listen_addr",
		},
		{
			name: "metrics disabled ignores address",
			modify: func(c *Config) {
				c.Metrics.ListenAddr = ""
			},
		},
		{
			name:      "invalid range",
			modify:    func(c *Config) { c.Scan.Ranges = []string{"300.1.1.0/24"} },
			wantErr:   true,
			wantField: "scan.ranges",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var cfgErr *errors.ConfigError
			if !asConfigError(err, &cfgErr) {
				t.Fatalf("expected *errors.ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, cfgErr.Field)
			}
			if !errors.IsFatal(err) {
				t.Errorf("expected fatal error")
			}
		})
	}
}

func asConfigError(err error, target **errors.ConfigError) bool {
	ce, ok := err.(*errors.ConfigError)
	if ok {
		*target = ce
	}
	return ok
}

func TestScanConfigValidate(t *testing.T) {
	scan := DefaultScan()
	scan.Ranges = []string{"127.0.0.0/30"}
	if err := scan.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scan.Ports = ""
	err := scan.Validate()
	if err == nil {
		t.Fatal("expected error for empty ports")
	}
	ce, ok := err.(*errors.ConfigError)
	if !ok || ce.Field != "scan.ports" {
		t.Errorf("expected scan.ports config error, got %v", err)
	}
}

func TestParsePorts(t *testing.T) {
	tests := []struct {
		spec    string
		want    []uint16
		wantErr bool
	}{
		{spec: "5601,9200", want: []uint16{5601, 9200}},
		{spec: "9200, 5601", want: []uint16{9200, 5601}},
		{spec: "9200,5601,9200", want: []uint16{9200, 5601}},
		{spec: "9200-9203", want: []uint16{9200, 9201, 9202, 9203}},
		{spec: "5601,9200-9201,5601", want: []uint16{5601, 9200, 9201}},
		{spec: "65535", want: []uint16{65535}},
		{spec: "65534-65535", want: []uint16{65534, 65535}},
		{spec: "80,", want: []uint16{80}},
		{spec: "", wantErr: true},
		{spec: "0", wantErr: true},
		{spec: "65536", wantErr: true},
		{spec: "http", wantErr: true},
		{spec: "9300-9200", wantErr: true},
		{spec: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParsePorts(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tt.spec, got)
				}
				if !errors.IsCode(err, errors.CodeValidation) {
					t.Errorf("expected validation code, got %s", errors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "/tmp/kibanahunt.log"

	got := cfg.LoggerConfig()
	want := logging.Config{
		Level:  logging.LevelWarn,
		Format: logging.FormatJSON,
		Output: "/tmp/kibanahunt.log",
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
