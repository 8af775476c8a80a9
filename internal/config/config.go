package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	NotifierLog   = "log"
	NotifierRedis = "redis"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store    string         // "redis" | "memory"
	SeedFile string         // optional YAML seed dataset, empty = embedded sample
	Location *time.Location // zone used to decide what "today" is

	// Notifications
	NotifyInterval   time.Duration // periodic check (default: 1h)
	Notifier         string        // "log" | "redis"
	NotifyChannel    string        // redis pub/sub channel for the redis notifier
	NotifyAllow      bool          // host policy: whether permission requests are granted
	NotifyDedupTTL   time.Duration // how long a delivered tag blocks re-delivery in the transport
	JanitorInterval  time.Duration // affiliate cache purge interval (default: 24h)
	AffiliateTTL     time.Duration // affiliate cache validity (default: 7 days)
	AffiliateURL     string        // remote lookup endpoint, empty = always fall back
	LookupTimeout    time.Duration // upper bound on a remote lookup (default: 1.5s)
	LookupRatePerMin int           // outbound lookups allowed per minute
	LookupBurst      int           // outbound lookup burst

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // max wait between retries
	RedisPingTimeout      time.Duration // timeout for each ping attempt
	RedisPoolSize         int           // connection pool size
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries, doubles each attempt
	RedisWarnThreshold    int           // warn after this many attempts

	// HTTP access
	APIRatePerMin int      // requests per minute per client IP on /api
	APIBurst      int      // burst per client IP on /api
	AllowedHosts  []string // optional, restrict Host headers on /api
	AllowedCIDRS  []string // optional, restrict ops endpoints to these IPs/CIDRs
	TrustProxy    bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] failed to read .env: %v", err)
	}

	cfg := &Config{
		ListenPort:      getenv("SHELFWATCH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHELFWATCH_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("SHELFWATCH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHELFWATCH_PRETTY_LOG", true),

		Store:    oneOf("SHELFWATCH_STORE", StoreRedis, StoreRedis, StoreMemory),
		SeedFile: getenv("SHELFWATCH_SEED_FILE", ""),
		Location: mustLocation("SHELFWATCH_TIMEZONE"),

		NotifyInterval:   mustDuration("SHELFWATCH_NOTIFY_INTERVAL", time.Hour),
		Notifier:         oneOf("SHELFWATCH_NOTIFIER", NotifierLog, NotifierLog, NotifierRedis),
		NotifyChannel:    getenv("SHELFWATCH_NOTIFY_CHANNEL", "shelfwatch:notifications"),
		NotifyAllow:      mustBool("SHELFWATCH_NOTIFY_ALLOW", true),
		NotifyDedupTTL:   mustDuration("SHELFWATCH_NOTIFY_DEDUP_TTL", 24*time.Hour),
		JanitorInterval:  mustDuration("SHELFWATCH_JANITOR_INTERVAL", 24*time.Hour),
		AffiliateTTL:     mustDuration("SHELFWATCH_AFFILIATE_TTL", 7*24*time.Hour),
		AffiliateURL:     getenv("SHELFWATCH_AFFILIATE_URL", ""),
		LookupTimeout:    mustDuration("SHELFWATCH_LOOKUP_TIMEOUT", 1500*time.Millisecond),
		LookupRatePerMin: getenvInt("SHELFWATCH_LOOKUP_RATE_PER_MIN", 30),
		LookupBurst:      getenvInt("SHELFWATCH_LOOKUP_BURST", 5),

		APIRatePerMin: getenvInt("SHELFWATCH_API_RATE_PER_MIN", 120),
		APIBurst:      getenvInt("SHELFWATCH_API_BURST", 30),
		AllowedHosts:  splitAndTrim(getenv("SHELFWATCH_ALLOWED_HOSTS", "")),
		AllowedCIDRS:  splitAndTrim(getenv("SHELFWATCH_ALLOWED_CIDRS", "")),
		TrustProxy:    mustBool("SHELFWATCH_TRUST_PROXY", false),
	}

	if cfg.Store == StoreRedis || cfg.Notifier == NotifierRedis {
		cfg.loadRedis()
	}

	if cfg.Notifier == NotifierRedis && cfg.Store != StoreRedis {
		panic("❌ FATAL: SHELFWATCH_NOTIFIER=redis requires SHELFWATCH_STORE=redis")
	}

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func (c *Config) loadRedis() {
	c.RedisAddr = requireEnv("SHELFWATCH_REDIS_ADDR")
	c.RedisUser = getenv("SHELFWATCH_REDIS_USERNAME", "default")
	c.RedisPasswordRequired = mustBool("SHELFWATCH_REDIS_PASSWORD_REQUIRED", true)
	c.RedisPassword = getenv("SHELFWATCH_REDIS_PASSWORD", "")
	c.RedisDB = getenvInt("SHELFWATCH_REDIS_DB", 0)
	c.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second)
	c.RedisRT = mustDuration("REDIS_READ_TIMEOUT", 3*time.Second)
	c.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second)
	c.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", 10*time.Second)
	c.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", 5*time.Second)
	c.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", 10)
	c.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second)
	c.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second)
	c.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", 3)

	if c.RedisPasswordRequired && c.RedisPassword == "" {
		panic("❌ FATAL: SHELFWATCH_REDIS_PASSWORD is required when SHELFWATCH_REDIS_PASSWORD_REQUIRED=true")
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// oneOf returns the env value if it is one of allowed, def when unset, and
// panics on anything else so typos fail at startup.
func oneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	panic(fmt.Sprintf("❌ FATAL: %s must be one of %v, got %q", key, allowed, v))
}

func mustLocation(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid time zone for %s: %s", key, name))
	}
	return loc
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
