package router

import (
	"time"

	"github.com/afigueroah/shucway-app-main-sub002/internal/config"
	"github.com/afigueroah/shucway-app-main-sub002/internal/handler"
	"github.com/afigueroah/shucway-app-main-sub002/internal/infra"
	"github.com/afigueroah/shucway-app-main-sub002/internal/middleware"
	"github.com/afigueroah/shucway-app-main-sub002/internal/repository"
	"github.com/afigueroah/shucway-app-main-sub002/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the infrastructure handles built by the composition root.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	LedgerCB   *infra.CircuitBreaker
	Publicador service.PublicadorEventos
}

// New wires all dependencies and returns a configured Gin engine together
// with the caja service, which the expiry sweep also drives.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) (*gin.Engine, service.CajaService, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	denominaciones, err := cfg.Denominaciones()
	if err != nil {
		return nil, nil, err
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.Origins()...))
	r.Use(middleware.ErrorHandler())

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(deps.DB)
	transferenciaRepo := repository.NewTransferenciaRepository(deps.DB)
	ledger := repository.NewLedgerProtegido(repository.NewVentaLedger(deps.DB), deps.LedgerCB)

	// ── Services ─────────────────────────────────────────────────────────────
	cajaSvc := service.NewCajaService(cajaRepo, transferenciaRepo, ledger, deps.Publicador, service.Opciones{
		MaxEdadSesion:  cfg.CajaMaxSessionAge,
		Denominaciones: denominaciones,
	})
	transferenciaSvc := service.NewTransferenciaService(cajaRepo, transferenciaRepo, ledger, nil)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc)
	transferenciasH := handler.NewTransferenciasHandler(transferenciaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.Redis, deps.LedgerCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes
	todos := middleware.RequireRole(middleware.RolCajero, middleware.RolSupervisor, middleware.RolAdministrador)
	supervision := middleware.RequireRole(middleware.RolSupervisor, middleware.RolAdministrador)

	caja := r.Group("/v1/caja",
		middleware.RateLimiter(deps.Redis, cfg.RateLimitPorMinuto, time.Minute),
		middleware.JWTAuth(cfg.JWTSecret),
	)
	{
		caja.GET("/estado", todos, cajaH.Estado)
		// sale-entry clients check this before taking a sale
		caja.GET("/sesion-activa", todos, middleware.RequireCajaAbierta(cajaSvc), cajaH.SesionActiva)
		caja.POST("/abrir", todos, cajaH.Abrir)
		caja.POST("/cerrar", todos, cajaH.Cerrar)
		caja.POST("/arqueo/total", todos, cajaH.TotalArqueo)
		caja.POST("/reinicio-forzado", middleware.RequireRole(middleware.RolAdministrador), cajaH.ReinicioForzado)

		caja.GET("/historial", supervision, cajaH.Historial)
		caja.GET("/:id", todos, cajaH.ObtenerSesion)
		caja.GET("/:id/resumen-ventas", todos, cajaH.ResumenVentas)
		caja.GET("/:id/transferencias", todos, transferenciasH.Listar)

		caja.POST("/transferencias/:venta_id/estado", todos, transferenciasH.CambiarEstado)
		caja.POST("/transferencias/:venta_id/referencia", todos, transferenciasH.ActualizarReferencia)
	}

	return r, cajaSvc, nil
}
