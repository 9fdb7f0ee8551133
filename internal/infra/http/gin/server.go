package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"resortops/internal/infra/config"
	"resortops/internal/infra/obs"
)

type ReservationHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Calendar(c *gin.Context)
	DepositRedirect(c *gin.Context)
	Cancel(c *gin.Context)
	UpdateRooms(c *gin.Context)
	CheckIn(c *gin.Context)
	CheckOut(c *gin.Context)
}

type BillingHTTP interface {
	Invoice(c *gin.Context)
	ReservationInvoice(c *gin.Context)
	Receipts(c *gin.Context)
	ApplyPayment(c *gin.Context)
}

type SettingsHTTP interface {
	Get(c *gin.Context)
	Update(c *gin.Context)
}

type Handlers struct {
	Reservations   ReservationHTTP
	Billing        BillingHTTP
	Settings       SettingsHTTP
	AuthMiddleware gin.HandlerFunc
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	obsMW.Quiet = append(obsMW.Quiet, "/livez", "/readyz")
	router := gin.New()
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Recover())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			obs.RequestIDHeader,
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Reservations != nil {
		res := api.Group("/reservations")
		res.POST("", h.Reservations.Create)
		res.GET("", h.Reservations.List)
		res.GET("/calendar", h.Reservations.Calendar)
		res.GET("/deposit-redirect", h.Reservations.DepositRedirect)
		res.PATCH("/cancel/:id", h.Reservations.Cancel)
		res.PATCH("/update-rooms/:id", h.Reservations.UpdateRooms)
		res.GET("/:id", h.Reservations.Get)
		res.PATCH("/:id/check-in", h.Reservations.CheckIn)
		res.PATCH("/:id/check-out", h.Reservations.CheckOut)
		if h.Billing != nil {
			res.GET("/:id/invoice", h.Billing.ReservationInvoice)
			res.GET("/:id/receipts", h.Billing.Receipts)
		}
	}
	if h.Billing != nil {
		api.GET("/invoices/:id", h.Billing.Invoice)
		api.POST("/invoices/:id/payments", h.Billing.ApplyPayment)
	}
	if h.Settings != nil {
		api.GET("/settings/reservations", h.Settings.Get)
		api.PUT("/settings/reservations", h.Settings.Update)
	}
	return router
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

var (
	_ ReservationHTTP = ReservationHandler{}
	_ BillingHTTP     = BillingHandler{}
	_ SettingsHTTP    = SettingsHandler{}
)
