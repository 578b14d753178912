package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/resonarr/backend/internal/broker"
	"github.com/resonarr/backend/internal/catalog"
	"github.com/resonarr/backend/internal/config"
	"github.com/resonarr/backend/internal/db"
	"github.com/resonarr/backend/internal/discovery"
	"github.com/resonarr/backend/internal/handlers"
	"github.com/resonarr/backend/internal/middleware"
	"github.com/resonarr/backend/internal/services"
)

func New(cfg *config.Config, queries *db.Queries, settings *config.SettingsManager) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewRealIPMiddleware(cfg.TrustedProxies).Handler)
	r.Use(middleware.RequestContextMiddleware)
	r.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration)
	lastfmService := services.NewLastFMService(settings)
	deezerService := services.NewDeezerService()
	lidarrService := services.NewLidarrService(settings)
	openaiService := services.NewOpenAIService(settings)
	previewService := services.NewPreviewService(settings)
	musicbrainzService := services.NewMusicBrainzService(settings,
		fmt.Sprintf("%s/%s ( %s )", cfg.AppName, cfg.AppVersion, cfg.AppURL))

	// Discovery engine
	eventBroker := broker.New()
	engine := discovery.NewEngine(discovery.EngineParams{
		Store:    discovery.NewStore(),
		Catalog:  catalog.New(),
		Emitter:  eventBroker,
		Library:  lidarrService,
		Similar:  lastfmService,
		Enrich:   lastfmService,
		Images:   deezerService,
		Resolver: musicbrainzService,
		Seeder:   openaiService,
		Listen:   lastfmService,
		Settings: settings,
	})

	// Handlers
	authHandler := handlers.NewAuthHandler(queries, authService)
	userHandler := handlers.NewUserHandler(queries)
	requestHandler := handlers.NewRequestHandler(queries, engine)
	settingsHandler := handlers.NewSettingsHandler(settings)
	discoveryHandler := handlers.NewDiscoveryHandler(engine, queries, previewService, lastfmService)
	sseHandler := handlers.NewSSEHandler(eventBroker, engine, queries)

	// Rate limiter for credential guessing
	loginRateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	// Routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)

		r.With(loginRateLimiter.Middleware).Post("/auth/login", authHandler.Login)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(authService))
			r.Use(middleware.UpdateRequestContextMiddleware)

			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/password", authHandler.ChangePassword)
			r.Put("/auth/profile", authHandler.UpdateProfile)

			// Event stream carrying discovery results
			r.Get("/events", sseHandler.Stream)

			r.Route("/discovery", func(r chi.Router) {
				r.Post("/library/fetch", discoveryHandler.FetchLibrary)
				r.Post("/sidebar", discoveryHandler.OpenSidebar)
				r.Post("/start", discoveryHandler.Start)
				r.Post("/more", discoveryHandler.More)
				r.Post("/stop", discoveryHandler.Stop)
				r.Post("/prompt", discoveryHandler.Prompt)
				r.Post("/personal", discoveryHandler.Personal)
				r.Post("/preview", discoveryHandler.Preview)
				r.Post("/bio", discoveryHandler.Bio)

				// Direct adds bypass the review queue
				r.With(middleware.AdminOnlyMiddleware).Post("/add", discoveryHandler.Add)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Post("/", requestHandler.Submit)

				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnlyMiddleware)
					r.Get("/", requestHandler.List)
					r.Put("/{rid}/approve", requestHandler.Approve)
					r.Put("/{rid}/reject", requestHandler.Reject)
				})
			})

			// Admin-only management
			r.Route("/users", func(r chi.Router) {
				r.Use(middleware.AdminOnlyMiddleware)
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Put("/{id}", userHandler.Update)
				r.Delete("/{id}", userHandler.Delete)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Use(middleware.AdminOnlyMiddleware)
				r.Get("/", settingsHandler.Get)
				r.Put("/", settingsHandler.Update)
			})
		})
	})

	return r
}
