package router

import (
	"net/http"

	"github.com/ekhaya-pos/api/internal/analytics"
	"github.com/ekhaya-pos/api/internal/config"
	"github.com/ekhaya-pos/api/internal/database"
	"github.com/ekhaya-pos/api/internal/enum"
	"github.com/ekhaya-pos/api/internal/handler"
	mw "github.com/ekhaya-pos/api/internal/middleware"
	"github.com/ekhaya-pos/api/internal/service"
	"github.com/ekhaya-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Authentication and role-based middleware are applied here so handlers stay
// free of routing policy.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/kitchen/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(pool, queries, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	inventoryService := service.NewInventoryService(pool, queries, func(db database.DBTX) service.InventoryStore {
		return database.New(db)
	})
	predictor := analytics.NewDemandPredictor(queries)

	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	menuHandler := handler.NewMenuHandler(inventoryService)
	sidesHandler := handler.NewSidesHandler()
	reportHandler := handler.NewReportHandler(queries, predictor)

	// Protected routes (require authentication)
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Catalog reads and order reads for every authenticated role
		menuHandler.RegisterRoutes(r)
		sidesHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)

		// Cashiers take orders
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleCashier))
			orderHandler.RegisterCashierRoutes(r)
		})

		// Kitchen marks orders ready
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleKitchen))
			orderHandler.RegisterKitchenRoutes(r)
		})

		// Punchers manage the catalog and stock
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RolePuncher))
			menuHandler.RegisterPuncherRoutes(r)
		})

		// Admin-only reporting and analytics
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.RoleAdmin))
			reportHandler.RegisterRoutes(r)
		})
	})

	return r
}
