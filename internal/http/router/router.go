package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/useneurox-company/ERP--sub000/internal/config"
	"github.com/useneurox-company/ERP--sub000/internal/database"
	"github.com/useneurox-company/ERP--sub000/internal/datawarehouse"
	"github.com/useneurox-company/ERP--sub000/internal/http/handler"
	"github.com/useneurox-company/ERP--sub000/internal/http/middleware"

	_ "github.com/useneurox-company/ERP--sub000/docs" // Import swagger docs
)

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	dwClient            *datawarehouse.Client
	rateLimiter         *middleware.RateLimiter
	projectHandler      *handler.ProjectHandler
	stageHandler        *handler.StageHandler
	stageDataHandler    *handler.StageDataHandler
	comparisonHandler   *handler.ComparisonHandler
	warehouseHandler    *handler.WarehouseHandler
	notificationHandler *handler.NotificationHandler
}

// NewRouter creates the router. dwClient may be nil.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	dwClient *datawarehouse.Client,
	rateLimiter *middleware.RateLimiter,
	projectHandler *handler.ProjectHandler,
	stageHandler *handler.StageHandler,
	stageDataHandler *handler.StageDataHandler,
	comparisonHandler *handler.ComparisonHandler,
	warehouseHandler *handler.WarehouseHandler,
	notificationHandler *handler.NotificationHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		dwClient:            dwClient,
		rateLimiter:         rateLimiter,
		projectHandler:      projectHandler,
		stageHandler:        stageHandler,
		stageDataHandler:    stageDataHandler,
		comparisonHandler:   comparisonHandler,
		warehouseHandler:    warehouseHandler,
		notificationHandler: notificationHandler,
	}
}

func writeHealth(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}
		writeHealth(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Warehouse catalog connection; "disabled" when the local table is the catalog
	r.Get("/health/warehouse", func(w http.ResponseWriter, r *http.Request) {
		status := rt.dwClient.HealthCheck(r.Context())
		code := http.StatusOK
		if status.Status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})

	// Combined readiness check. The warehouse is optional and only degrades.
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{"status": "healthy"}
		}
		checks["warehouse"] = rt.dwClient.HealthCheck(r.Context())

		if allHealthy {
			writeHealth(w, http.StatusOK, map[string]interface{}{"status": "healthy", "checks": checks})
			return
		}
		writeHealth(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unhealthy", "checks": checks})
	})

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor)
		r.Use(rt.rateLimiter.LimitByActor)

		// Projects
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", rt.projectHandler.List)
			r.Post("/", rt.projectHandler.Create)
			r.Get("/{id}", rt.projectHandler.GetByID)
			r.Delete("/{id}", rt.projectHandler.Delete)
			r.Get("/{id}/stages", rt.projectHandler.ListStages)
			r.Post("/{id}/stages", rt.projectHandler.CreateStage)
		})

		// Stages
		r.Route("/stages/{id}", func(r chi.Router) {
			r.Get("/", rt.stageHandler.GetByID)

			// Lifecycle
			r.Post("/start", rt.stageHandler.Start)
			r.Post("/complete", rt.stageHandler.Complete)
			r.Post("/reopen", rt.stageHandler.Reopen)
			r.Get("/history", rt.stageHandler.History)

			// Dependency graph
			r.Post("/dependencies", rt.stageHandler.AddDependency)
			r.Delete("/dependencies/{depId}", rt.stageHandler.RemoveDependency)
			r.Get("/blocked", rt.stageHandler.Blocked)
			r.Get("/dependents", rt.stageHandler.Dependents)

			// Stage data with buffered autosave
			r.Get("/data", rt.stageDataHandler.Get)
			r.Put("/data", rt.stageDataHandler.Put)
			r.Patch("/data", rt.stageDataHandler.Patch)
			r.Post("/data/flush", rt.stageDataHandler.Flush)
			r.Get("/data/state", rt.stageDataHandler.State)

			// Stage-specific operations
			r.Post("/approval/documents/{docId}/decision", rt.stageDataHandler.DecideDocument)
			r.Post("/approval/revisions", rt.stageDataHandler.RequestRevision)
			r.Post("/approval/revisions/resolve", rt.stageDataHandler.ResolveRevisions)
			r.Post("/approval/comments", rt.stageDataHandler.AddClientComment)
			r.Post("/production/cutting/{taskId}/complete", rt.stageDataHandler.CompleteCutting)

			r.Get("/comparisons", rt.comparisonHandler.ListByStage)
		})

		// Warehouse reconciliation
		r.Route("/comparisons", func(r chi.Router) {
			r.With(rt.rateLimiter.LimitUploads).Post("/", rt.comparisonHandler.Upload)
			r.Get("/{id}", rt.comparisonHandler.GetByID)
			r.Post("/{id}/items/{itemId}/confirm", rt.comparisonHandler.ConfirmMatch)
			r.Post("/{id}/items/{itemId}/alternative", rt.comparisonHandler.SelectAlternative)
			r.Put("/{id}/items/{itemId}/quantity", rt.comparisonHandler.SetQuantity)
			r.Put("/{id}/items/{itemId}/order", rt.comparisonHandler.ToggleOrder)
			r.Put("/{id}/items/{itemId}/procurement-status", rt.comparisonHandler.SetProcurementStatus)
			r.Get("/{id}/order", rt.comparisonHandler.Order)
			r.Get("/{id}/order.xlsx", rt.comparisonHandler.ExportOrder)
			r.Get("/{id}/source", rt.comparisonHandler.SourceFile)
		})

		// Warehouse stock
		r.Route("/warehouse", func(r chi.Router) {
			r.Get("/items", rt.warehouseHandler.List)
			r.Post("/items", rt.warehouseHandler.Create)
			r.Put("/items/{id}/quantity", rt.warehouseHandler.UpdateQuantity)
			r.Get("/search", rt.warehouseHandler.Search)
		})

		// Notifications
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", rt.notificationHandler.List)
			r.Get("/count", rt.notificationHandler.GetUnreadCount)
			r.Put("/read-all", rt.notificationHandler.MarkAllAsRead)
			r.Put("/{id}/read", rt.notificationHandler.MarkAsRead)
		})
	})

	return r
}
