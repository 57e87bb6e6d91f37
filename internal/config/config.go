// Package config carrega a configuração do gateway: arquivo YAML com a
// tabela de regras, blocklist e listas de rotas, mais overrides por variável
// de ambiente para endereços. Toda a superfície é imutável após o boot;
// erro de validação é fatal na inicialização.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"admission-gateway/middleware/admission/domain"
)

// Duration aceita durações no formato do time.ParseDuration ("15m", "30s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"15m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converte para time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Admission AdmissionConfig `yaml:"admission"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	OpsAddr     string `yaml:"ops_addr"`
	UpstreamURL string `yaml:"upstream_url"`

	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ReadTimeout       Duration `yaml:"read_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`

	ConcurrencyMax     int      `yaml:"concurrency_max"`
	ConcurrencyTimeout Duration `yaml:"concurrency_timeout"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type RuleConfig struct {
	PathPrefix    string   `yaml:"path_prefix"`
	Window        Duration `yaml:"window"`
	MaxRequests   int      `yaml:"max_requests"`
	SkipOnSuccess bool     `yaml:"skip_on_success"`
	SkipOnFailure bool     `yaml:"skip_on_failure"`
}

type StatsConfig struct {
	Enabled   bool `yaml:"enabled"`
	TrackKeys bool `yaml:"track_keys"`
}

type AdmissionConfig struct {
	APIPrefix string       `yaml:"api_prefix"`
	Rules     []RuleConfig `yaml:"rules"`
	Blocklist []string     `yaml:"blocklist"`

	PublicRoutes    []string `yaml:"public_routes"`
	ProtectedRoutes []string `yaml:"protected_routes"`
	AdminRoutes     []string `yaml:"admin_routes"`

	StaticPrefixes   []string `yaml:"static_prefixes"`
	StaticExtensions []string `yaml:"static_extensions"`

	SignInPath  string `yaml:"sign_in_path"`
	SignUpPath  string `yaml:"sign_up_path"`
	LandingPath string `yaml:"landing_path"`

	SessionCookie string `yaml:"session_cookie"`

	ConnectingIPHeader string `yaml:"connecting_ip_header"`
	RealIPHeader       string `yaml:"real_ip_header"`

	SweepEvery Duration    `yaml:"sweep_every"`
	Stats      StatsConfig `yaml:"stats"`
}

// Default retorna a configuração padrão; o arquivo YAML sobrescreve campos.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:        ":8080",
			OpsAddr:           ":9090",
			ReadHeaderTimeout: Duration(10 * time.Second),
			ReadTimeout:       Duration(30 * time.Second),
			WriteTimeout:      Duration(30 * time.Second),
			IdleTimeout:       Duration(90 * time.Second),
			ConcurrencyMax:    100,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Admission: AdmissionConfig{
			APIPrefix: "/api/",
			Rules: []RuleConfig{
				{PathPrefix: "/api/", Window: Duration(time.Minute), MaxRequests: 60},
			},
			StaticPrefixes:   []string{"/static/", "/assets/", "/_next/"},
			StaticExtensions: []string{".css", ".js", ".map", ".png", ".jpg", ".svg", ".ico", ".woff", ".woff2"},
			SignInPath:       "/sign-in",
			SignUpPath:       "/sign-up",
			LandingPath:      "/dashboard",
			SessionCookie:    "session",
			SweepEvery:       Duration(time.Minute),
		},
	}
}

// Load monta a configuração: padrões ← arquivo YAML ← variáveis de ambiente.
// Com path vazio, apenas padrões e ambiente.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("OPS_ADDR"); v != "" {
		c.Server.OpsAddr = v
	}
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		c.Server.UpstreamURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checa a superfície de configuração. A totalidade do resolver
// (catch-all presente, prefixos únicos) é validada por application.NewResolver
// no boot; aqui ficam as checagens de formato.
func (c *Config) Validate() error {
	if c.Server.UpstreamURL == "" {
		return errors.New("config: server.upstream_url is required")
	}
	if c.Server.ConcurrencyMax < 0 {
		return errors.New("config: server.concurrency_max must be >= 0")
	}
	if c.Admission.APIPrefix == "" {
		return errors.New("config: admission.api_prefix is required")
	}
	for _, r := range c.Admission.Rules {
		if r.PathPrefix == "" {
			return errors.New("config: admission rule with empty path_prefix")
		}
		if r.Window <= 0 {
			return fmt.Errorf("config: rule %q: window must be > 0", r.PathPrefix)
		}
		if r.MaxRequests <= 0 {
			return fmt.Errorf("config: rule %q: max_requests must be > 0", r.PathPrefix)
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("config: redis.addr is required when redis.enabled")
	}
	return nil
}

// DomainRules converte a tabela configurada para as regras de domínio.
func (a AdmissionConfig) DomainRules() []domain.Rule {
	rules := make([]domain.Rule, 0, len(a.Rules))
	for _, r := range a.Rules {
		rules = append(rules, domain.Rule{
			PathPrefix:    r.PathPrefix,
			Window:        r.Window.Std(),
			MaxRequests:   r.MaxRequests,
			SkipOnSuccess: r.SkipOnSuccess,
			SkipOnFailure: r.SkipOnFailure,
		})
	}
	return rules
}
