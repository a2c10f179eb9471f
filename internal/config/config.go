package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/lc/cepr/internal/buildinfo"
	"github.com/lc/cepr/internal/filesys"
	"github.com/lc/cepr/internal/provider/cepla"
	"github.com/lc/cepr/internal/provider/correios"
	"github.com/lc/cepr/internal/provider/viacep"
)

var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoConfig is returned when the configuration file is not found.
	ErrNoConfig = errors.New("configuration file not found")
)

const (
	// DefaultSocketPath is the default path for the Unix socket.
	DefaultSocketPath = "/var/run/ceprd.socket"
	// DefaultConfigPath is the config file location relative to $HOME.
	DefaultConfigPath = ".cepr/config.yaml"
	// DefaultProviderTimeout bounds each provider call.
	DefaultProviderTimeout = 10 * time.Second
	// DefaultHTTPTimeout bounds each HTTP exchange, body included.
	DefaultHTTPTimeout = 15 * time.Second
	// DefaultDNSTimeout is the default timeout for DNS resolution.
	DefaultDNSTimeout = 5 * time.Second
)

// Config holds the application configuration.
type Config struct {
	Socket    SocketConfig    `yaml:"socket"`
	Lookup    LookupConfig    `yaml:"lookup"`
	HTTP      HTTPConfig      `yaml:"http"`
	DNS       DNSConfig       `yaml:"dns"`
	Providers ProvidersConfig `yaml:"providers"`
}

// SocketConfig holds socket-related configuration.
type SocketConfig struct {
	Path string `yaml:"path"`
}

// LookupConfig tunes the provider race. Zero disables the per-provider
// timeout.
type LookupConfig struct {
	ProviderTimeout time.Duration `yaml:"provider_timeout"`
}

// HTTPConfig configures the client shared by all providers.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// DNSConfig selects the resolvers used to reach providers. An empty
// Resolvers list means the system resolver.
type DNSConfig struct {
	Resolvers []string      `yaml:"resolvers"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ProvidersConfig holds the provider endpoints. The provider set itself
// is fixed.
type ProvidersConfig struct {
	ViaCEP   string `yaml:"viacep"`
	Cepla    string `yaml:"cepla"`
	Correios string `yaml:"correios"`
}

// Provider defines the interface for loading configuration.
type Provider interface {
	Load() (*Config, error)
	Save(*Config) error
	Path() string
}

// FSProvider implements Provider using the local filesystem.
type FSProvider struct {
	fs   filesys.FS
	path string
}

var _ Provider = (*FSProvider)(nil)

// New returns a Provider for path, or for ~/.cepr/config.yaml when path
// is empty.
func New(path string) Provider {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not determine home directory: %v\n", err)
		}
		path = filepath.Join(home, DefaultConfigPath)
	}
	return NewWithPath(filesys.OS(), path)
}

// NewWithPath returns a Provider reading path through fs.
func NewWithPath(fs filesys.FS, path string) Provider {
	return &FSProvider{fs: fs, path: path}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Socket: SocketConfig{Path: DefaultSocketPath},
		Lookup: LookupConfig{ProviderTimeout: DefaultProviderTimeout},
		HTTP: HTTPConfig{
			Timeout:   DefaultHTTPTimeout,
			UserAgent: buildinfo.UserAgent(),
		},
		DNS: DNSConfig{Timeout: DefaultDNSTimeout},
		Providers: ProvidersConfig{
			ViaCEP:   viacep.DefaultBaseURL,
			Cepla:    cepla.DefaultBaseURL,
			Correios: correios.DefaultEndpoint,
		},
	}
}

// Path returns the file the provider reads and writes.
func (p *FSProvider) Path() string { return p.path }

// Load reads the configuration file. Keys absent from the file keep
// their default values; a missing file yields Default().
func (p *FSProvider) Load() (*Config, error) {
	cfg, err := p.loadAndParse()
	if err != nil {
		if errors.Is(err, ErrNoConfig) {
			return Default(), nil
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Save validates cfg and writes it atomically to the provider's path.
func (p *FSProvider) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return filesys.AtomicWrite(p.fs, p.path, data, 0o644)
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Socket.Path) == "" {
		errs = multierr.Append(errs, errors.New("socket path cannot be empty"))
	}
	if c.Lookup.ProviderTimeout < 0 {
		errs = multierr.Append(errs, errors.New("provider timeout cannot be negative"))
	}
	if c.HTTP.Timeout < time.Second {
		errs = multierr.Append(errs, errors.New("HTTP timeout must be at least 1 second"))
	}
	if len(c.DNS.Resolvers) > 0 && c.DNS.Timeout < time.Second {
		errs = multierr.Append(errs, errors.New("DNS timeout must be at least 1 second"))
	}
	for _, r := range c.DNS.Resolvers {
		if _, _, err := net.SplitHostPort(ResolverAddr(r)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("dns resolver %q: %w", r, err))
		}
	}
	for name, endpoint := range map[string]string{
		"viacep":   c.Providers.ViaCEP,
		"cepla":    c.Providers.Cepla,
		"correios": c.Providers.Correios,
	} {
		if err := validateEndpoint(endpoint); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("providers.%s: %w", name, err))
		}
	}
	return errs
}

// ResolverAddrs returns the configured resolvers as host:port.
func (c *Config) ResolverAddrs() []string {
	if len(c.DNS.Resolvers) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.DNS.Resolvers))
	for _, r := range c.DNS.Resolvers {
		out = append(out, ResolverAddr(r))
	}
	return out
}

// ResolverAddr appends port 53 to a bare resolver address.
func ResolverAddr(r string) string {
	r = strings.TrimSpace(r)
	if _, _, err := net.SplitHostPort(r); err == nil {
		return r
	}
	return net.JoinHostPort(strings.Trim(r, "[]"), "53")
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func (p *FSProvider) loadAndParse() (*Config, error) {
	data, err := p.fs.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding config file: %w", err)
	}
	return cfg, nil
}
