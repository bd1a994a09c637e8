package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type PlacesCfg struct {
	BaseURL      string
	APIKey       string
	Radius       int
	Timeout      time.Duration
	RPS          float64
	PageDelay    time.Duration
	MaxPages     int
	DetailsCache int
}

type AuthCfg struct {
	Secret   string
	TokenTTL time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type Config struct {
	Addr            string
	LogLevel        string
	LogConsole      bool
	LogSampleN      int
	RedisAddr       string
	RedisPartition  string
	CacheDriver     string
	CacheOpTimeout  time.Duration
	CacheTTLDefault time.Duration
	CacheMaxEntries int
	AdaptiveEnabled bool
	HotThreshold    float64
	HotHalfLife     time.Duration
	AdaptiveTTLCold time.Duration
	AdaptiveTTLWarm time.Duration
	AdaptiveTTLHot  time.Duration
	Places          PlacesCfg
	Auth            AuthCfg
	DBPath          string
	NearRadius      float64
	FavoritesH3Res  int
	Events          EventsCfg
	RateLimitRPM    int
	MetricsEnabled  bool
}

func FromEnv() Config {
	ttlDefault := getduration("CACHE_TTL_DEFAULT", 10*time.Minute)

	h3Res := getint("FAVORITES_H3_RES", 7)
	if h3Res < 0 || h3Res > 15 {
		h3Res = 7
	}

	return Config{
		Addr:            getenv("ADDR", ":3000"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogConsole:      getbool("LOG_CONSOLE", false),
		LogSampleN:      getint("LOG_SAMPLE_N", 0),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6379"),
		RedisPartition:  getenv("REDIS_PARTITION", "api"),
		CacheDriver:     strings.ToLower(getenv("CACHE_DRIVER", "redis")),
		CacheOpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheTTLDefault: ttlDefault,
		CacheMaxEntries: getint("CACHE_MAX_ENTRIES", 50_000),
		AdaptiveEnabled: getbool("ADAPTIVE_ENABLED", false),
		HotThreshold:    getfloat("HOT_THRESHOLD", 10.0),
		HotHalfLife:     getduration("HOT_HALF_LIFE", time.Minute),
		AdaptiveTTLCold: getduration("ADAPTIVE_TTL_COLD", ttlDefault/2),
		AdaptiveTTLWarm: getduration("ADAPTIVE_TTL_WARM", ttlDefault),
		AdaptiveTTLHot:  getduration("ADAPTIVE_TTL_HOT", 2*ttlDefault),
		Places: PlacesCfg{
			BaseURL:      getenv("PLACES_BASE_URL", "https://maps.googleapis.com/maps/api/place"),
			APIKey:       getenv("PLACES_API_KEY", ""),
			Radius:       getint("PLACES_RADIUS", 5000),
			Timeout:      getduration("PLACES_TIMEOUT", 10*time.Second),
			RPS:          getfloat("PLACES_RPS", 10),
			PageDelay:    getduration("PLACES_PAGE_DELAY", 2*time.Second),
			MaxPages:     getint("PLACES_MAX_PAGES", 3),
			DetailsCache: getint("PLACES_DETAILS_CACHE", 1024),
		},
		Auth: AuthCfg{
			Secret:   getenv("AUTH_SECRET", "MyVeryStrongSecret"),
			TokenTTL: getduration("AUTH_TOKEN_TTL", 24*time.Hour),
		},
		DBPath:         getenv("DB_PATH", ""),
		NearRadius:     getfloat("FAVORITES_NEAR_RADIUS", 5000),
		FavoritesH3Res: h3Res,
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "favplaces-events"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		RateLimitRPM:   getint("RATE_LIMIT_RPM", 120),
		MetricsEnabled: getbool("METRICS_ENABLED", true),
	}
}

// BrokerList splits the comma-separated broker list.
func (e EventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
