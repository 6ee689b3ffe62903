package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Backend types understood by the proxy.
const (
	BackendTypeOWS  = "OWS"
	BackendTypeWMTS = "WMTS"
	BackendTypeREST = "REST"
)

type TLS struct {
	Certificate      string `yaml:"certificate"`
	Key              string `yaml:"key"`
	RootCertificates string `yaml:"rootCertificates"`
}

type Backend struct {
	BaseURL string `yaml:"baseUrl"`
	Type    string `yaml:"type"`

	Auth struct {
		Header map[string]string `yaml:"header"`
		Basic  struct {
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"basic"`
		TLS TLS `yaml:"tls"`
	} `yaml:"auth"`
}

// IsOWS reports whether requests to the backend are inspected as OGC web
// service requests.
func (b Backend) IsOWS() bool {
	return b.Type == BackendTypeOWS
}

type Path struct {
	Path    string `yaml:"path"`
	Backend struct {
		Slug string `yaml:"slug"`
		Path string `yaml:"path"`
	} `yaml:"backend"`
	LogBackend      string   `yaml:"logBackend"`
	RequestRewrite  string   `yaml:"requestRewrite"`
	ResponseRewrite string   `yaml:"responseRewrite"`
	AllowedMethods  []string `yaml:"allowedMethods"`
	AllowAlways     bool     `yaml:"allowAlways"`
	// ReadOnly rejects WFS requests that change or lock features.
	ReadOnly bool `yaml:"readOnly"`
}

// Methods returns the allowed request methods, GET when none are configured.
func (p Path) Methods() []string {
	if len(p.AllowedMethods) == 0 {
		return []string{"GET"}
	}
	return p.AllowedMethods
}

type LogBackend struct {
	BaseURL string `yaml:"baseUrl"`
}

type Config struct {
	ListenAddress           string                `yaml:"listenAddress"`
	ListenTLS               TLS                   `yaml:"listenTls"`
	LogLevel                string                `yaml:"logLevel"`
	AuthorizationServiceURL string                `yaml:"authorizationServiceUrl"`
	JwksURL                 string                `yaml:"jwksUrl"`
	Paths                   []Path                `yaml:"paths"`
	Backends                map[string]Backend    `yaml:"backends"`
	LogBackends             map[string]LogBackend `yaml:"logBackends"`
}

// NewConfig returns a new decoded and checked Config struct
func NewConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := &Config{}
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", configPath, err)
	}

	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.ListenAddress == "" {
		config.ListenAddress = ":8050"
	}

	if err := config.Check(); err != nil {
		return nil, err
	}

	return config, nil
}

// Check verifies that every path points at a configured backend and log
// backend, and that every backend has a known type.
func (c *Config) Check() error {
	for slug, backend := range c.Backends {
		switch backend.Type {
		case "", BackendTypeOWS, BackendTypeWMTS, BackendTypeREST:
		default:
			return fmt.Errorf("backend %s: unsupported type %q", slug, backend.Type)
		}
	}

	for _, path := range c.Paths {
		if _, ok := c.Backends[path.Backend.Slug]; !ok {
			return fmt.Errorf("path %s: unknown backend %q", path.Path, path.Backend.Slug)
		}
		if path.LogBackend == "" {
			continue
		}
		if _, ok := c.LogBackends[path.LogBackend]; !ok {
			return fmt.Errorf("path %s: unknown log backend %q", path.Path, path.LogBackend)
		}
	}

	return nil
}
