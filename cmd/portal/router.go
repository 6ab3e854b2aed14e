package main

import (
	"net/http"

	"naspac-portal/internal/config"
	"naspac-portal/internal/handler"
	"naspac-portal/internal/middleware"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/security"
	"naspac-portal/internal/service"
	"naspac-portal/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// publicPages render without a session
var publicPages = []string{"/personnel-login", "/staff-login", "/forgot-password", "/reset-password"}

type routes struct {
	cfg           *config.Config
	registry      *service.ClientRegistry
	auth          *service.AuthService
	notifications *service.NotificationService
	hub           *websocket.Hub
	csrf          *security.TokenManager
	authLimiter   *middleware.RateLimiter
	apiLimiter    *middleware.RateLimiter
	readiness     map[string]handler.Checker
}

func (rt *routes) handler() http.Handler {
	authHandler := handler.NewAuthHandler(rt.auth)
	sessionHandler := handler.NewSessionHandler(rt.registry)
	notificationHandler := handler.NewNotificationHandler(rt.notifications, rt.hub)
	origins := middleware.ParseOrigins(rt.cfg.AllowedOrigins)
	wsHandler := handler.NewWebSocketHandler(rt.hub, rt.notifications, rt.cfg.NotificationPollInterval, origins)
	pages := handler.Pages(rt.cfg.StaticDir)
	guard := middleware.RouteGuard(rt.cfg.LoginPath)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestContext)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(rt.readiness))
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/assets/*", pages)
	r.Handle("/favicon.ico", pages)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Client(rt.registry, rt.cfg.IsProduction()))
		r.Use(middleware.CSRF(rt.csrf))

		for _, path := range publicPages {
			r.Handle(path, pages)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(middleware.OpenAPIValidator(middleware.NewOpenAPIValidatorConfig(rt.cfg.OpenAPIValidation, rt.cfg.OpenAPISpecPath)))

			r.Get("/session", sessionHandler.Get)
			r.Post("/session/reload", sessionHandler.Reload)
			r.Post("/auth/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(rt.authLimiter.Middleware())
				r.Post("/auth/personnel-login", authHandler.LoginPersonnel)
				r.Post("/auth/staff-login", authHandler.LoginStaff)
				r.Post("/auth/verify-otp", authHandler.VerifyOTP)
				r.Post("/auth/forgot-password", authHandler.ForgotPassword)
				r.Post("/auth/reset-password", authHandler.ResetPassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(guard)
				r.Use(rt.apiLimiter.Middleware())
				r.Get("/menu", handler.Menu)
				r.Get("/views/{view}", handler.View)
				r.Get("/documents/appointment-letter", handler.AppointmentLetter)
				r.Get("/notifications", notificationHandler.List)
				r.Post("/notifications/viewed", notificationHandler.MarkViewed)
			})
		})

		// every other page belongs to the signed-in application
		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Get("/ws/notifications", wsHandler.HandleConnection)
			r.Handle("/*", pages)
		})
	})

	return r
}

// requestContext exposes the chi request id to the context logger
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
