package deps

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/notify"
	"github.com/MrSnakeDoc/shelfwatch/internal/reorder"
	"github.com/MrSnakeDoc/shelfwatch/internal/store"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time // for testing, defaults to time.Now
	Location      *time.Location   // zone used to decide what "today" is
	AllowedHosts  []string         // Host headers allowed to access /api
	AllowedCIDRS  []string         // IPs allowed to access ops endpoints
	TrustProxy    bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	APIRatePerMin int              // per-IP refill rate on /api
	APIBurst      int              // per-IP burst on /api
	StoreBackend  string           // "redis" | "memory"
	RedisClient   *redis.Client    // nil with the memory store
	Store         store.Store
	Notifier      notify.Notifier
	Resolver      *reorder.Resolver
	LookupEnabled bool                // remote affiliate endpoint configured
	NotifyTrigger chan struct{}       // manual notification check
	NotifyRunning func() bool         // reports an in-flight check, may be nil
	Gatherer      prometheus.Gatherer // metrics registry, nil disables /metrics

	// API holds the shared /api middlewares, built by the server.
	API []func(http.Handler) http.Handler
}

// Now returns the injected clock or time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

// Loc returns the configured zone or time.Local.
func (d Deps) Loc() *time.Location {
	if d.Location != nil {
		return d.Location
	}
	return time.Local
}
