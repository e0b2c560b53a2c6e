package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"tailtown/internal/domain"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	GingrBase   string
	GingrKey    string
	GingrRPS    int
	Workers     int
	PageSize    int
	CacheTTL    time.Duration
	TierOrder   domain.TierOrder
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/tailtown?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),
		GingrBase:   env("GINGR_BASE_URL", "https://app.gingrapp.com/api/v1"),
		GingrKey:    env("GINGR_API_KEY", ""),
		GingrRPS:    atoi("GINGR_RPS", 5),
		Workers:     atoi("SYNC_WORKERS", 8),
		PageSize:    atoi("SYNC_PAGE_SIZE", 100),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,
		// Tier preference is operational policy, not algorithm
		TierOrder: domain.ParseTierOrder(env("SUITE_TIER_ORDER", "vip,standard_plus,standard")),
	}
	if c.GingrKey == "" {
		log.Warn().Msg("GINGR_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
