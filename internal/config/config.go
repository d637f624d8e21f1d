package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file and the
// environment.
const (
	DefaultListenAddr         = ":8000"
	DefaultCollectionInterval = 60 * time.Second
	DefaultCacheTTL           = 30 * time.Second
	DefaultHTTPTimeout        = 30 * time.Second
)

// Default NHN Cloud public API endpoints (KR1 region).
const (
	DefaultAuthURL          = "https://api-identity-infrastructure.nhncloudservice.com/v2.0"
	DefaultDNSPlusURL       = "https://dnsplus.api.nhncloudservice.com"
	DefaultLoadBalancerURL  = "https://kr1-api-network-infrastructure.nhncloudservice.com"
	DefaultRDSURL           = "https://kr1-rds-mysql.api.nhncloudservice.com"
	DefaultCDNURL           = "https://cdn.api.nhncloudservice.com"
	DefaultObjectStorageURL = "https://kr1-api-object-storage.nhncloudservice.com"
	DefaultComputeURL       = "https://kr1-api-compute.infrastructure.nhncloudservice.com"
)

// Config is the top-level configuration. It is loaded once at startup from an
// optional YAML file overlaid with environment variables, and is immutable
// afterwards. Environment values win over file values so containerized
// deployments can run without a file at all.
type Config struct {
	// Environment is DEV or PRODUCTION, reported on the service-info endpoint.
	Environment string `yaml:"environment"`

	// ListenAddr is the HTTP listen address for /metrics, /health and /.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// CollectionInterval is how often each collector runs. The matching
	// environment variable METRICS_COLLECTION_INTERVAL is plain seconds.
	CollectionInterval time.Duration `yaml:"collection_interval"`

	// CacheTTL is how long a cached snapshot is considered fresh. Entries
	// older than this are served stale, never evicted.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// HTTPTimeout bounds every outbound API call.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// KeepStaleSamples keeps the previous snapshot's samples when a cycle
	// fails outright, so the exposition degrades to stale data instead of
	// disappearing. Disable to clear samples on failure.
	KeepStaleSamples bool `yaml:"keep_stale_samples"`

	Identity   IdentityConfig   `yaml:"identity"`
	Endpoints  EndpointsConfig  `yaml:"endpoints"`
	AppKeys    AppKeysConfig    `yaml:"app_keys"`
	AccessKey  AccessKeyConfig  `yaml:"access_key"`
	Collectors CollectorsConfig `yaml:"collectors"`
	ServiceOps ServiceOpsConfig `yaml:"service_operations"`
}

// IdentityConfig holds the IAM credential material for token issuance.
// Passwords are never stored in the file; the *_env fields name the
// environment variables that hold them.
type IdentityConfig struct {
	// AuthURL is the identity service base URL; tokens are issued at
	// AuthURL + "/tokens".
	AuthURL string `yaml:"auth_url"`

	// TenantID and Username are literal values (safe to store in config).
	TenantID string `yaml:"tenant_id"`
	Username string `yaml:"username"`

	// PasswordEnv names the environment variable holding the IAM password.
	PasswordEnv string `yaml:"password_env"`

	// StoragePasswordEnv names the environment variable holding the object
	// storage API password (console: Set API Password). When the variable is
	// empty the IAM password is used, which may yield 403 on storage calls.
	StoragePasswordEnv string `yaml:"storage_password_env"`
}

// Password returns the IAM password resolved from the environment.
func (c IdentityConfig) Password() string {
	if c.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.PasswordEnv)
}

// StoragePassword returns the object storage API password resolved from the
// environment. Empty when unset.
func (c IdentityConfig) StoragePassword() string {
	if c.StoragePasswordEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.StoragePasswordEnv))
}

// EndpointsConfig holds the per-service API base URLs.
type EndpointsConfig struct {
	DNSPlus       string `yaml:"dnsplus"`
	LoadBalancer  string `yaml:"load_balancer"`
	RDS           string `yaml:"rds"`
	CDN           string `yaml:"cdn"`
	ObjectStorage string `yaml:"object_storage"`
	Compute       string `yaml:"compute"`
}

// AppKeysConfig names the environment variables holding per-service app keys.
// Services without a dedicated key fall back to the shared key variable.
type AppKeysConfig struct {
	DNSPlusEnv  string `yaml:"dnsplus_env"`
	CDNEnv      string `yaml:"cdn_env"`
	RDSEnv      string `yaml:"rds_env"`
	FallbackEnv string `yaml:"fallback_env"`
}

// DNSPlus returns the DNS Plus app key, falling back to the shared key.
func (a AppKeysConfig) DNSPlus() string { return a.resolve(a.DNSPlusEnv) }

// CDN returns the CDN app key, falling back to the shared key.
func (a AppKeysConfig) CDN() string { return a.resolve(a.CDNEnv) }

// RDS returns the RDS app key, falling back to the shared key.
func (a AppKeysConfig) RDS() string { return a.resolve(a.RDSEnv) }

func (a AppKeysConfig) resolve(env string) string {
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if a.FallbackEnv == "" {
		return ""
	}
	return os.Getenv(a.FallbackEnv)
}

// AccessKeyConfig names the environment variables holding the API access key
// pair used by the RDS v3 API.
type AccessKeyConfig struct {
	IDEnv     string `yaml:"id_env"`
	SecretEnv string `yaml:"secret_env"`
}

// ID returns the access key ID resolved from the environment.
func (a AccessKeyConfig) ID() string {
	if a.IDEnv == "" {
		return ""
	}
	return os.Getenv(a.IDEnv)
}

// Secret returns the access key secret resolved from the environment.
func (a AccessKeyConfig) Secret() string {
	if a.SecretEnv == "" {
		return ""
	}
	return os.Getenv(a.SecretEnv)
}

// CollectorConfig enables one collector and optionally restricts it to an
// allow-list of resource identifiers. An empty filter collects everything
// discoverable.
type CollectorConfig struct {
	Enabled bool     `yaml:"enabled"`
	Filter  []string `yaml:"filter"`
}

// CollectorsConfig holds the per-resource-type collector settings.
type CollectorsConfig struct {
	GSLB              CollectorConfig `yaml:"gslb"`
	LoadBalancer      CollectorConfig `yaml:"load_balancer"`
	RDS               CollectorConfig `yaml:"rds"`
	CDN               CollectorConfig `yaml:"cdn"`
	ObjectStorage     CollectorConfig `yaml:"object_storage"`
	Instance          CollectorConfig `yaml:"instance"`
	ServiceOperations CollectorConfig `yaml:"service_operations"`
}

func (c CollectorsConfig) anyEnabled() bool {
	return c.GSLB.Enabled || c.LoadBalancer.Enabled || c.RDS.Enabled ||
		c.CDN.Enabled || c.ObjectStorage.Enabled || c.Instance.Enabled ||
		c.ServiceOperations.Enabled
}

// ServiceOpsConfig identifies the deployment resources that feed the derived
// photo-api operational metrics.
type ServiceOpsConfig struct {
	// OBSContainer is the storage container whose usage tracks user uploads.
	OBSContainer string `yaml:"obs_container"`

	// CDNAppKeyEnv names the environment variable holding the app key of the
	// CDN distribution serving the photo-api, used to pick it out of the
	// service listing.
	CDNAppKeyEnv string `yaml:"cdn_app_key_env"`

	// RDSInstanceID is the database instance whose query statistics are
	// collected.
	RDSInstanceID string `yaml:"rds_instance_id"`

	// LBIDs are the load balancers whose member health ratios are derived.
	LBIDs []string `yaml:"lb_ids"`
}

// CDNAppKey returns the photo-api CDN app key resolved from the environment.
func (s ServiceOpsConfig) CDNAppKey() string {
	if s.CDNAppKeyEnv == "" {
		return ""
	}
	return os.Getenv(s.CDNAppKeyEnv)
}

// Level returns the slog level for the configured log_level string.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load builds the configuration from the optional YAML file at path overlaid
// with environment variables. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values. Enable flags
// default to true so an absent collectors section collects everything.
func defaults() *Config {
	on := CollectorConfig{Enabled: true}
	return &Config{
		Environment:        "DEV",
		ListenAddr:         DefaultListenAddr,
		LogLevel:           "info",
		CollectionInterval: DefaultCollectionInterval,
		CacheTTL:           DefaultCacheTTL,
		HTTPTimeout:        DefaultHTTPTimeout,
		KeepStaleSamples:   true,
		Identity: IdentityConfig{
			AuthURL:            DefaultAuthURL,
			PasswordEnv:        "NHN_IAM_PASSWORD",
			StoragePasswordEnv: "NHN_OBS_API_PASSWORD",
		},
		Endpoints: EndpointsConfig{
			DNSPlus:       DefaultDNSPlusURL,
			LoadBalancer:  DefaultLoadBalancerURL,
			RDS:           DefaultRDSURL,
			CDN:           DefaultCDNURL,
			ObjectStorage: DefaultObjectStorageURL,
			Compute:       DefaultComputeURL,
		},
		AppKeys: AppKeysConfig{
			DNSPlusEnv:  "NHN_DNSPLUS_APPKEY",
			CDNEnv:      "NHN_CDN_APPKEY",
			RDSEnv:      "NHN_RDS_APPKEY",
			FallbackEnv: "NHN_APPKEY",
		},
		AccessKey: AccessKeyConfig{
			IDEnv:     "NHN_ACCESS_KEY_ID",
			SecretEnv: "NHN_ACCESS_KEY_SECRET",
		},
		Collectors: CollectorsConfig{
			GSLB:              on,
			LoadBalancer:      on,
			RDS:               on,
			CDN:               on,
			ObjectStorage:     on,
			Instance:          on,
			ServiceOperations: on,
		},
		ServiceOps: ServiceOpsConfig{
			OBSContainer: "photo-container",
			CDNAppKeyEnv: "PHOTO_API_CDN_APP_KEY",
		},
	}
}

// applyEnv overlays environment variables onto cfg. Unset variables leave the
// existing value untouched; malformed numeric or boolean values are errors.
func applyEnv(cfg *Config) error {
	envString("ENVIRONMENT", &cfg.Environment)
	envString("LISTEN_ADDR", &cfg.ListenAddr)
	envString("LOG_LEVEL", &cfg.LogLevel)

	if err := envSeconds("METRICS_COLLECTION_INTERVAL", &cfg.CollectionInterval); err != nil {
		return err
	}
	if err := envSeconds("METRICS_CACHE_TTL", &cfg.CacheTTL); err != nil {
		return err
	}
	if err := envSeconds("HTTP_TIMEOUT", &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := envBool("METRICS_KEEP_STALE", &cfg.KeepStaleSamples); err != nil {
		return err
	}

	envString("NHN_AUTH_URL", &cfg.Identity.AuthURL)
	envString("NHN_TENANT_ID", &cfg.Identity.TenantID)
	envString("NHN_IAM_USER", &cfg.Identity.Username)

	envString("NHN_DNSPLUS_API_URL", &cfg.Endpoints.DNSPlus)
	envString("NHN_LB_API_URL", &cfg.Endpoints.LoadBalancer)
	envString("NHN_RDS_API_URL", &cfg.Endpoints.RDS)
	envString("NHN_CDN_API_URL", &cfg.Endpoints.CDN)
	envString("NHN_OBS_API_URL", &cfg.Endpoints.ObjectStorage)
	envString("NHN_COMPUTE_API_URL", &cfg.Endpoints.Compute)

	enables := []struct {
		key string
		dst *bool
	}{
		{"GSLB_ENABLED", &cfg.Collectors.GSLB.Enabled},
		{"LB_ENABLED", &cfg.Collectors.LoadBalancer.Enabled},
		{"RDS_ENABLED", &cfg.Collectors.RDS.Enabled},
		{"CDN_ENABLED", &cfg.Collectors.CDN.Enabled},
		{"OBS_ENABLED", &cfg.Collectors.ObjectStorage.Enabled},
		{"INSTANCE_ENABLED", &cfg.Collectors.Instance.Enabled},
		{"SERVICE_OPERATIONS_ENABLED", &cfg.Collectors.ServiceOperations.Enabled},
	}
	for _, e := range enables {
		if err := envBool(e.key, e.dst); err != nil {
			return err
		}
	}

	envList("LB_IDS", &cfg.Collectors.LoadBalancer.Filter)
	envList("RDS_INSTANCE_IDS", &cfg.Collectors.RDS.Filter)
	envList("CDN_SERVICE_IDS", &cfg.Collectors.CDN.Filter)
	envList("OBS_CONTAINERS", &cfg.Collectors.ObjectStorage.Filter)
	envList("INSTANCE_IDS", &cfg.Collectors.Instance.Filter)

	envString("PHOTO_API_OBS_CONTAINER", &cfg.ServiceOps.OBSContainer)
	envString("PHOTO_API_RDS_INSTANCE_ID", &cfg.ServiceOps.RDSInstanceID)
	envList("PHOTO_API_LB_IDS", &cfg.ServiceOps.LBIDs)

	return nil
}

// validate checks structural constraints. Missing credential material is not
// fatal here: credential resolution failures surface per cycle as failed
// collections, so partially configured deployments keep serving the
// collectors they can.
func validate(cfg *Config) error {
	switch cfg.Environment {
	case "DEV", "PRODUCTION":
	default:
		return fmt.Errorf("environment must be DEV or PRODUCTION, got %q", cfg.Environment)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if cfg.CollectionInterval <= 0 {
		return fmt.Errorf("collection_interval must be positive")
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if cfg.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive")
	}
	if !cfg.Collectors.anyEnabled() {
		return fmt.Errorf("no collectors enabled")
	}
	if cfg.Identity.AuthURL == "" {
		return fmt.Errorf("identity.auth_url is required")
	}
	return nil
}

// envString overwrites dst when the variable is set and non-empty.
func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// envBool parses the variable as a boolean when set.
func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = b
	return nil
}

// envSeconds parses the variable as a number of seconds when set.
func envSeconds(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = time.Duration(secs * float64(time.Second))
	return nil
}

// envList parses the variable as a comma-separated list when set, trimming
// whitespace and dropping empty items.
func envList(key string, dst *[]string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	*dst = splitIDs(v)
}

// splitIDs splits a comma-separated identifier list, trimming whitespace and
// dropping empty items.
func splitIDs(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
