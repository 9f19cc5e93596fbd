package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/braid-dev/braid/internal/errors"
)

const (
	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "braid.json"

	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultRoutes is the default route directory.
	DefaultRoutes = "app/routes"

	// PortEnv overrides the configured port when set.
	PortEnv = "BRAID_PORT"

	// HostEnv overrides the configured host when set.
	HostEnv = "BRAID_HOST"
)

// Config is the parsed braid.json. Unknown fields are rejected so typos
// fail loudly instead of silently falling back to defaults.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Routes is the path to the route directory.
	Routes string `json:"routes,omitempty"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty"`

	// Static contains static file serving settings.
	Static StaticConfig `json:"static,omitempty"`

	// Dev contains dev server settings.
	Dev DevConfig `json:"dev,omitempty"`

	// Upload contains upload staging settings.
	Upload UploadConfig `json:"upload,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Metrics exposes Prometheus metrics at /metrics when true.
	Metrics bool `json:"metrics,omitempty"`
}

// StaticConfig contains static file serving settings.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`

	// Prefix is the URL prefix for static files.
	Prefix string `json:"prefix,omitempty"`
}

// DevConfig contains dev server settings.
type DevConfig struct {
	// Watch lists directories to watch for changes.
	Watch []string `json:"watch,omitempty"`

	// Ignore lists glob patterns excluded from watching.
	Ignore []string `json:"ignore,omitempty"`

	// DebounceMS is the quiet period after a change before rebuilding,
	// in milliseconds.
	DebounceMS int `json:"debounceMs,omitempty"`

	// OpenBrowser opens the browser automatically on start.
	OpenBrowser bool `json:"openBrowser,omitempty"`
}

// UploadConfig contains upload staging settings.
type UploadConfig struct {
	// Dir is the staging directory for uploaded files.
	Dir string `json:"dir,omitempty"`

	// MaxFileSize caps a single uploaded file, in bytes.
	MaxFileSize int64 `json:"maxFileSize,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Version: "0.1.0",
		Routes:  DefaultRoutes,
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Static: StaticConfig{
			Dir:    "public",
			Prefix: "/",
		},
		Dev: DevConfig{
			Watch:      []string{"app", "public"},
			Ignore:     []string{"*_test.go", ".*"},
			DebounceMS: 100,
		},
		Upload: UploadConfig{
			Dir:         ".braid/uploads",
			MaxFileSize: 10 << 20,
		},
	}
}

// Load reads braid.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("B3001").
				WithDetail("No %s found in %s", ConfigFileName, filepath.Dir(path)).
				WithSuggestion("Create %s at the project root", ConfigFileName)
		}
		return nil, errors.New("B3001").Wrap(err)
	}

	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.New("B3001").
			WithDetail("Failed to parse %s: %s", ConfigFileName, err.Error()).
			WithSuggestion("Check that %s is valid JSON and uses only known fields", ConfigFileName).
			WithFile(path).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to the file it was loaded from.
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
		return errors.New("B3001").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("B3001").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string { return c.configPath }

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.Routes == "" {
		c.Routes = DefaultRoutes
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "public"
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/"
	}
	if c.Dev.Watch == nil {
		c.Dev.Watch = []string{"app", "public"}
	}
	if c.Dev.DebounceMS == 0 {
		c.Dev.DebounceMS = 100
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = ".braid/uploads"
	}
	if c.Upload.MaxFileSize == 0 {
		c.Upload.MaxFileSize = 10 << 20
	}
}

// applyEnv layers environment overrides over the file values.
func (c *Config) applyEnv() {
	if v := os.Getenv(PortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv(HostEnv); v != "" {
		c.Server.Host = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("B3001").
			WithDetail("Port %d is out of range; it must be between 0 and 65535", c.Server.Port)
	}
	if c.Upload.MaxFileSize < 0 {
		return errors.New("B3001").
			WithDetail("upload.maxFileSize must not be negative")
	}
	return nil
}

// CheckRoutes verifies that the configured route directory exists.
func (c *Config) CheckRoutes() error {
	info, err := os.Stat(c.RoutesPath())
	if err != nil || !info.IsDir() {
		return errors.New("B3002").
			WithDetail("Route directory %q does not exist", c.Routes).
			WithSuggestion("Create the directory or point \"routes\" in %s at the right place", ConfigFileName)
	}
	return nil
}

// Address returns the listen address, e.g. "localhost:3000".
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the server's base URL.
func (c *Config) URL() string {
	return "http://" + c.Address()
}

// RoutesPath returns the absolute path to the route directory.
func (c *Config) RoutesPath() string {
	return c.abs(c.Routes)
}

// StaticPath returns the absolute path to the static file directory.
func (c *Config) StaticPath() string {
	return c.abs(c.Static.Dir)
}

// UploadPath returns the absolute path to the upload staging directory.
func (c *Config) UploadPath() string {
	return c.abs(c.Upload.Dir)
}

func (c *Config) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists reports whether a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up from startDir to the directory containing
// braid.json.
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
			return "", errors.New("B3001").
				WithDetail("No %s found in %s or any parent directory", ConfigFileName, startDir).
				WithSuggestion("Run braid from inside a project, or create %s", ConfigFileName)
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the nearest project root.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	return Load(root)
}
