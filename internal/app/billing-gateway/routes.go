// Package billinggateway предоставляет маршруты для основного приложения.
package billinggateway

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/billing-gateway/internal/backendfn"
	"github.com/magabrotheeeer/billing-gateway/internal/diaglog"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/admin/diagnostics"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/admin/fixsubscription"
	adminlogin "github.com/magabrotheeeer/billing-gateway/internal/http/handlers/admin/login"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/admin/simulatewebhook"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/admin/webhookstatus"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/checkout/cancel"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/checkout/complete"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/checkout/start"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/eligibility/check"
	planlist "github.com/magabrotheeeer/billing-gateway/internal/http/handlers/plan/list"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/plan/selectplan"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/profile"
	sessionlogout "github.com/magabrotheeeer/billing-gateway/internal/http/handlers/session/logout"
	"github.com/magabrotheeeer/billing-gateway/internal/http/handlers/trial/signup"
	"github.com/magabrotheeeer/billing-gateway/internal/http/middlewarectx"
	"github.com/magabrotheeeer/billing-gateway/internal/lib/jwt"
	"github.com/magabrotheeeer/billing-gateway/internal/livemode"
	"github.com/magabrotheeeer/billing-gateway/internal/plans"
	checkoutservice "github.com/magabrotheeeer/billing-gateway/internal/services/checkout"
	eligibilityservice "github.com/magabrotheeeer/billing-gateway/internal/services/eligibility"
	reconcileservice "github.com/magabrotheeeer/billing-gateway/internal/services/reconcile"
)

// Services — зависимости HTTP-слоя, собранные при старте приложения.
type Services struct {
	Checkout    *checkoutservice.Service
	Eligibility *eligibilityservice.Service
	Reconcile   *reconcileservice.Service
	Plans       *plans.Registry
	Diag        *diaglog.Logger
	Backend     *backendfn.Client
	Maker       jwt.Maker
	Mode        livemode.Mode
	AdminHash   string
	Limiter     *rate.Limiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Пользовательские конечные точки: привязка сессии и лимит частоты
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.SessionMiddleware)
			r.Use(middlewarectx.RateLimitMiddleware(s.Limiter, logger))

			r.Get("/plans", planlist.New(logger, s.Plans).ServeHTTP)
			r.Post("/plans/select", selectplan.New(logger, s.Checkout).ServeHTTP)
			r.Post("/trial/eligibility", check.New(logger, s.Eligibility).ServeHTTP)
			r.Post("/trial/signup", signup.New(logger, s.Checkout, s.Maker).ServeHTTP)
			r.Post("/checkout/start", start.New(logger, s.Checkout).ServeHTTP)
			r.Post("/checkout/complete", complete.New(logger, s.Checkout).ServeHTTP)
			r.Post("/checkout/cancel", cancel.New(logger, s.Checkout).ServeHTTP)
			r.Get("/profile", profile.New(logger, s.Checkout).ServeHTTP)
			r.Post("/logout", sessionlogout.New(logger, s.Checkout).ServeHTTP)
		})

		// Вход оператора
		r.Post("/admin/login", adminlogin.New(logger, s.AdminHash, s.Maker).ServeHTTP)

		// Группа оператора: JWT с ролью admin
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Maker, logger))
			r.Use(middlewarectx.AdminOnly(logger))

			diagHandler := diagnostics.New(logger, s.Diag)
			r.Get("/admin/diagnostics", diagHandler.List)
			r.Get("/admin/diagnostics/export", diagHandler.Export)
			r.Delete("/admin/diagnostics", diagHandler.Clear)
			r.Post("/admin/subscriptions/fix", fixsubscription.New(logger, s.Reconcile).ServeHTTP)
			r.Get("/admin/webhooks/status", webhookstatus.New(logger, s.Backend).ServeHTTP)
			r.Post("/admin/webhooks/simulate", simulatewebhook.New(logger, s.Backend, s.Mode).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
