package httpx

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"arcpay/internal/config"
	"arcpay/internal/http/handlers"
	middlewarex "arcpay/internal/http/middleware"
	paymentsvc "arcpay/internal/services/payment"
)

type RouterDependencies struct {
	Config  config.Cfg
	Service *paymentsvc.Service
	Redis   *redis.Client
}

func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	timeout := deps.Config.Gateway.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r.Route("/payments", func(r chi.Router) {
		r.Use(middlewarex.Auth(deps.Config.Auth.JWTSecret))
		r.Use(middlewarex.RateLimit(deps.Redis, deps.Config.Sec.RateLimitPerMin))

		r.Post("/create-order", handlers.CreateOrder(deps.Service, timeout))
		r.Post("/verify", handlers.Verify(deps.Service, timeout))
		r.Get("/my", handlers.MyPayments(deps.Service))
		r.Get("/", handlers.ListPayments(deps.Service))
	})

	return r
}
