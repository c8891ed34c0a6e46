package config

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the agentdesk server.
type Config struct {
	// Host is the listen address. It defaults to loopback; binding anything
	// else requires APIKeys.
	Host     string
	Port     int
	Version  string
	LogLevel string
	// APIKeys is a comma separated list of access tokens for /api/v1.
	APIKeys string
	// CORSOrigins is a comma separated list of allowed browser origins.
	// A single "*" wildcard per origin is allowed.
	CORSOrigins string

	Workspace WorkspaceConfig
	Providers ProvidersConfig
	Tools     ToolsConfig
	Agents    AgentsConfig
	Telemetry TelemetryConfig
}

type WorkspaceConfig struct {
	Root string
}

type ProvidersConfig struct {
	// CatalogFile is an optional YAML provider catalogue replacing the
	// built-in table.
	CatalogFile     string
	DefaultProvider string
	DefaultModel    string
	RequestsPerMin  int
	HTTPTimeout     time.Duration
	SuiteDelay      time.Duration
	SeedFromEnv     bool
}

type ToolsConfig struct {
	BatchDelay     time.Duration
	CommandTimeout time.Duration
	TestCommand    string
	SearchEndpoint string
	GuardLevel     string
	// MCPServers is a comma separated list of name=url pairs.
	MCPServers string
}

type AgentsConfig struct {
	PoolSize int
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Host:     envStr("AGENTDESK_HOST", "127.0.0.1"),
		Port:     envInt("AGENTDESK_PORT", 8080),
		Version:  envStr("AGENTDESK_VERSION", "0.1.0"),
		LogLevel: envStr("AGENTDESK_LOG_LEVEL", "info"),
		APIKeys:  envStr("AGENTDESK_API_KEYS", ""),
		CORSOrigins: envStr("AGENTDESK_CORS_ORIGINS", DefaultCORSOrigins),
		Workspace: WorkspaceConfig{
			Root: envStr("AGENTDESK_WORKSPACE", "."),
		},
		Providers: ProvidersConfig{
			CatalogFile:     envStr("AGENTDESK_CATALOG_FILE", ""),
			DefaultProvider: envStr("AGENTDESK_DEFAULT_PROVIDER", "ollama"),
			DefaultModel:    envStr("AGENTDESK_DEFAULT_MODEL", ""),
			RequestsPerMin:  envInt("AGENTDESK_REQUESTS_PER_MINUTE", 0),
			HTTPTimeout:     envDuration("AGENTDESK_PROVIDER_TIMEOUT", 120*time.Second),
			SuiteDelay:      envDuration("AGENTDESK_SUITE_DELAY", time.Second),
			SeedFromEnv:     envBool("AGENTDESK_SEED_CREDENTIALS", true),
		},
		Tools: ToolsConfig{
			BatchDelay:     envDuration("AGENTDESK_TOOL_BATCH_DELAY", 100*time.Millisecond),
			CommandTimeout: envDuration("AGENTDESK_COMMAND_TIMEOUT", 60*time.Second),
			TestCommand:    envStr("AGENTDESK_TEST_COMMAND", "go test ./..."),
			SearchEndpoint: envStr("AGENTDESK_SEARCH_ENDPOINT", "https://duckduckgo.com/html/?q={query}"),
			GuardLevel:     envStr("AGENTDESK_GUARD_LEVEL", "standard"),
			MCPServers:     envStr("AGENTDESK_MCP_SERVERS", ""),
		},
		Agents: AgentsConfig{
			PoolSize: envInt("AGENTDESK_AGENTS", 3),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "agentdesk"),
		},
	}
}

// ErrExposedWithoutKeys is returned by CheckExposure when the server would
// listen beyond loopback with no access keys configured.
var ErrExposedWithoutKeys = errors.New("refusing to listen on a non-loopback address without AGENTDESK_API_KEYS")

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CheckExposure fails when Host is not a loopback address and no API keys
// are set. The workspace tools run commands and edit files, so an open
// listener is a remote shell.
func (c *Config) CheckExposure() error {
	if IsLoopback(c.Host) || strings.TrimSpace(strings.ReplaceAll(c.APIKeys, ",", "")) != "" {
		return nil
	}
	return ErrExposedWithoutKeys
}

// IsLoopback reports whether host only accepts local connections. An empty
// host listens on every interface.
func IsLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

// DefaultCORSOrigins admits browser pages served from this machine only.
const DefaultCORSOrigins = "http://localhost:*,http://127.0.0.1:*,http://[::1]:*"

// Origins splits CORSOrigins, falling back to DefaultCORSOrigins when the
// list is empty. An empty list would make the CORS handler admit everything.
func (c *Config) Origins() []string {
	list := c.CORSOrigins
	if strings.TrimSpace(strings.ReplaceAll(list, ",", "")) == "" {
		list = DefaultCORSOrigins
	}
	var out []string
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// BaseURLOverrides collects AGENTDESK_<PROVIDER>_BASE_URL variables keyed by
// provider id. Dashes in ids map to underscores.
func BaseURLOverrides(providerIDs []string) map[string]string {
	out := make(map[string]string)
	for _, id := range providerIDs {
		key := "AGENTDESK_" + strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_BASE_URL"
		if v := os.Getenv(key); v != "" {
			out[id] = v
		}
	}
	return out
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
