package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/vango-dev/propagate/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "propagate.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "propagate"

	// DefaultMetricsPath is where metrics are served.
	DefaultMetricsPath = "/metrics"
)

// Fault policies.
const (
	FaultPolicyLog    = "log"
	FaultPolicyIgnore = "ignore"
)

// Contention policies.
const (
	ContentionBlock    = "block"
	ContentionFailFast = "failfast"
)

// Config represents the complete propagate.json configuration.
type Config struct {
	// Name is the deployment name, used in logs.
	Name string `json:"name,omitempty"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server,omitempty"`

	// Stream contains websocket streaming configuration.
	Stream StreamConfig `json:"stream,omitempty"`

	// Engine contains notification engine configuration.
	Engine EngineConfig `json:"engine,omitempty"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics,omitempty"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing,omitempty"`

	// Demo contains settings of the demo properties served by "serve".
	Demo DemoConfig `json:"demo,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// HTTPS marks the server as served behind TLS.
	HTTPS bool `json:"https,omitempty"`

	// ShutdownTimeout bounds graceful shutdown (e.g., "5s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// StreamConfig contains websocket bridge settings.
type StreamConfig struct {
	// BufferSize is the number of frames queued per connection.
	BufferSize int `json:"bufferSize,omitempty"`

	// WriteTimeout bounds each websocket write (e.g., "10s").
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// AllowedOrigins lists accepted Origin headers. "*" accepts any.
	AllowedOrigins []string `json:"allowedOrigins,omitempty"`
}

// EngineConfig contains notification engine settings.
type EngineConfig struct {
	// Debug logs every notification pass.
	Debug bool `json:"debug,omitempty"`

	// FaultPolicy is "log" or "ignore".
	FaultPolicy string `json:"faultPolicy,omitempty"`

	// Contention is "block" or "failfast".
	Contention string `json:"contention,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled turns on engine metrics.
	Enabled bool `json:"enabled,omitempty"`

	// Namespace prefixes every metric name.
	Namespace string `json:"namespace,omitempty"`

	// Path is the HTTP path metrics are served on.
	Path string `json:"path,omitempty"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled records listener faults as spans.
	Enabled bool `json:"enabled,omitempty"`

	// TracerName is the instrumentation name.
	TracerName string `json:"tracerName,omitempty"`
}

// DemoConfig contains demo property settings.
type DemoConfig struct {
	// TickInterval is how often the demo counter increments (e.g., "1s").
	TickInterval string `json:"tickInterval,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			Host:            DefaultHost,
			ShutdownTimeout: "5s",
		},
		Stream: StreamConfig{
			BufferSize:   64,
			WriteTimeout: "10s",
		},
		Engine: EngineConfig{
			FaultPolicy: FaultPolicyLog,
			Contention:  ContentionBlock,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: "github.com/vango-dev/propagate",
		},
		Demo: DemoConfig{
			TickInterval: "1s",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for propagate.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E401").
				WithDetail("No propagate.json found in " + filepath.Dir(path)).
				WithSuggestion("Create propagate.json or run without --config to use defaults")
		}
		return nil, errors.New("E402").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E402").
			WithDetail("Failed to parse propagate.json: " + err.Error()).
			WithSuggestion("Check that propagate.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// LoadFromDir loads configuration from startDir or its closest parent
// that contains propagate.json.
func LoadFromDir(startDir string) (*Config, error) {
	root, err := FindProjectRoot(startDir)
	if err != nil {
		return nil, err
	}
	return Load(root)
}

// LoadFromWorkingDir loads configuration from the current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return LoadFromDir(wd)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E402").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E402").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	// Server
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	// Stream
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = d.Stream.BufferSize
	}
	if c.Stream.WriteTimeout == "" {
		c.Stream.WriteTimeout = d.Stream.WriteTimeout
	}

	// Engine
	if c.Engine.FaultPolicy == "" {
		c.Engine.FaultPolicy = d.Engine.FaultPolicy
	}
	if c.Engine.Contention == "" {
		c.Engine.Contention = d.Engine.Contention
	}

	// Metrics and tracing
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = d.Metrics.Namespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = d.Metrics.Path
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = d.Tracing.TracerName
	}

	// Demo
	if c.Demo.TickInterval == "" {
		c.Demo.TickInterval = d.Demo.TickInterval
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E403").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.Stream.BufferSize < 0 {
		return errors.New("E403").
			WithDetail("stream.bufferSize must not be negative")
	}
	if !slices.Contains([]string{FaultPolicyLog, FaultPolicyIgnore}, c.Engine.FaultPolicy) {
		return errors.New("E403").
			WithDetail("engine.faultPolicy must be \"log\" or \"ignore\", got " + strconv.Quote(c.Engine.FaultPolicy))
	}
	if !slices.Contains([]string{ContentionBlock, ContentionFailFast}, c.Engine.Contention) {
		return errors.New("E403").
			WithDetail("engine.contention must be \"block\" or \"failfast\", got " + strconv.Quote(c.Engine.Contention))
	}
	durations := map[string]string{
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"stream.writeTimeout":    c.Stream.WriteTimeout,
		"demo.tickInterval":      c.Demo.TickInterval,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return errors.New("E403").
				WithDetail(name + " must be a positive duration, got " + strconv.Quote(value)).
				WithSuggestion("Use Go duration syntax such as \"500ms\" or \"10s\"")
		}
	}
	return nil
}

// Address returns the address string the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the full base URL of the server.
func (c *Config) URL() string {
	scheme := "http"
	if c.Server.HTTPS {
		scheme = "https"
	}
	return scheme + "://" + c.Address()
}

// WriteTimeout returns the parsed stream write timeout.
func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Stream.WriteTimeout, 10*time.Second)
}

// ShutdownTimeout returns the parsed shutdown timeout.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 5*time.Second)
}

// TickInterval returns the parsed demo tick interval.
func (c *Config) TickInterval() time.Duration {
	return parseDuration(c.Demo.TickInterval, time.Second)
}

// OriginAllowed reports whether origin may open a stream. An empty list
// allows nothing cross-origin.
func (c *Config) OriginAllowed(origin string) bool {
	return slices.Contains(c.Stream.AllowedOrigins, "*") || slices.Contains(c.Stream.AllowedOrigins, origin)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing propagate.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E401").
				WithDetail("No propagate.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}
