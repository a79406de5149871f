package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct {
	Env  string
	Port string
}

type DBCfg struct{ DSN string }

type RedisCfg struct{ Addr string }

type AuthCfg struct {
	JWTSecret string
}

type GatewayCfg struct {
	// Mode selects the gateway client: "razorpay" talks to the gateway
	// directly, "proxy" delegates to a remote payment service.
	Mode      string
	KeyID     string
	KeySecret string
	BaseURL   string
	ProxyURL  string
	Timeout   time.Duration
}

type ReconcileCfg struct {
	// StaleAfter is how long a payment may sit in CREATED before it is
	// flagged as a stuck gateway interaction.
	StaleAfter time.Duration
	PollEvery  time.Duration
}

type SecurityCfg struct {
	RateLimitPerMin int
}

type Cfg struct {
	App       AppCfg
	DB        DBCfg
	Redis     RedisCfg
	Auth      AuthCfg
	Gateway   GatewayCfg
	Reconcile ReconcileCfg
	Sec       SecurityCfg
}

func Load() Cfg {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("GATEWAY_MODE", "razorpay")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 15)
	viper.SetDefault("RATE_LIMIT_PER_MIN", 300)
	viper.SetDefault("RECONCILE_STALE_AFTER_MINUTES", 30)
	viper.SetDefault("RECONCILE_POLL_SECONDS", 60)

	cfg := Cfg{
		App: AppCfg{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetString("APP_PORT"),
		},
		DB:    DBCfg{DSN: viper.GetString("DB_DSN")},
		Redis: RedisCfg{Addr: viper.GetString("REDIS_ADDR")},
		Auth: AuthCfg{
			JWTSecret: strings.TrimSpace(viper.GetString("JWT_SECRET")),
		},
		Gateway: GatewayCfg{
			Mode:      viper.GetString("GATEWAY_MODE"),
			KeyID:     viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret: viper.GetString("RAZORPAY_KEY_SECRET"),
			BaseURL:   viper.GetString("RAZORPAY_BASE_URL"),
			ProxyURL:  viper.GetString("GATEWAY_PROXY_URL"),
			Timeout:   time.Duration(viper.GetInt("GATEWAY_TIMEOUT_SECONDS")) * time.Second,
		},
		Reconcile: ReconcileCfg{
			StaleAfter: time.Duration(viper.GetInt("RECONCILE_STALE_AFTER_MINUTES")) * time.Minute,
			PollEvery:  time.Duration(viper.GetInt("RECONCILE_POLL_SECONDS")) * time.Second,
		},
		Sec: SecurityCfg{
			RateLimitPerMin: viper.GetInt("RATE_LIMIT_PER_MIN"),
		},
	}

	if cfg.DB.DSN == "" {
		log.Fatal().Msg("DB_DSN is required")
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}
	switch cfg.Gateway.Mode {
	case "razorpay":
		if cfg.Gateway.KeyID == "" || cfg.Gateway.KeySecret == "" {
			log.Fatal().Msg("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in razorpay mode")
		}
	case "proxy":
		if cfg.Gateway.ProxyURL == "" {
			log.Fatal().Msg("GATEWAY_PROXY_URL is required in proxy mode")
		}
	default:
		log.Fatal().Str("mode", cfg.Gateway.Mode).Msg("unknown GATEWAY_MODE")
	}

	return cfg
}
