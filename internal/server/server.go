package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/staypoint/internal/accounting"
	accountingdomain "github.com/smallbiznis/staypoint/internal/accounting/domain"
	"github.com/smallbiznis/staypoint/internal/apikey"
	apikeydomain "github.com/smallbiznis/staypoint/internal/apikey/domain"
	"github.com/smallbiznis/staypoint/internal/audit"
	auditdomain "github.com/smallbiznis/staypoint/internal/audit/domain"
	"github.com/smallbiznis/staypoint/internal/authorization"
	"github.com/smallbiznis/staypoint/internal/booking"
	bookingdomain "github.com/smallbiznis/staypoint/internal/booking/domain"
	businessdomain "github.com/smallbiznis/staypoint/internal/business/domain"
	"github.com/smallbiznis/staypoint/internal/cloudmetrics"
	"github.com/smallbiznis/staypoint/internal/config"
	"github.com/smallbiznis/staypoint/internal/folio"
	"github.com/smallbiznis/staypoint/internal/observability"
	obsmiddleware "github.com/smallbiznis/staypoint/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/staypoint/internal/observability/metrics"
	obstracing "github.com/smallbiznis/staypoint/internal/observability/tracing"
	"github.com/smallbiznis/staypoint/internal/ratelimit"
	"github.com/smallbiznis/staypoint/internal/revenue"
	revenuedomain "github.com/smallbiznis/staypoint/internal/revenue/domain"
	"github.com/smallbiznis/staypoint/internal/room"
	roomdomain "github.com/smallbiznis/staypoint/internal/room/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	cloudmetrics.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	apikey.Module,
	room.Module,
	booking.Module,
	folio.Module,
	revenue.Module,
	accounting.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterStaffRoutes()
		s.RegisterMachineRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	roomSvc       roomdomain.Service
	bookingSvc    bookingdomain.Service
	revenueSvc    revenuedomain.Service
	accountingSvc accountingdomain.Service
	apiKeySvc     apikeydomain.Service
	auditSvc      auditdomain.Service
	authzSvc      authorization.Service
	obsMetrics    *obsmetrics.Metrics
	ingestLimiter *ratelimit.IngestLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	RoomSvc       roomdomain.Service
	BookingSvc    bookingdomain.Service
	RevenueSvc    revenuedomain.Service
	AccountingSvc accountingdomain.Service
	APIKeySvc     apikeydomain.Service
	AuditSvc      auditdomain.Service
	AuthzSvc      authorization.Service    `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
	IngestLimiter *ratelimit.IngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		roomSvc:       p.RoomSvc,
		bookingSvc:    p.BookingSvc,
		revenueSvc:    p.RevenueSvc,
		accountingSvc: p.AccountingSvc,
		apiKeySvc:     p.APIKeySvc,
		auditSvc:      p.AuditSvc,
		authzSvc:      p.AuthzSvc,
		obsMetrics:    p.ObsMetrics,
		ingestLimiter: p.IngestLimiter,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// RegisterStaffRoutes mounts the front-desk surface. Every route resolves
// the member role through StaffContext; manager-only paths stack RequireRole
// and the capability check on top.
func (s *Server) RegisterStaffRoutes() {
	v1 := s.engine.Group("/v1", s.StaffContext())

	// -------- Rooms --------
	v1.GET("/rooms", s.ListRooms)
	v1.GET("/rooms/:id", s.GetRoomByID)
	v1.POST("/rooms", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.CreateRoom)
	v1.PATCH("/rooms/:id", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.UpdateRoom)
	v1.POST("/rooms/:id/maintenance", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomMaintenance), s.MarkRoomMaintenance)
	v1.DELETE("/rooms/:id/maintenance", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomMaintenance), s.ReleaseRoomMaintenance)

	// -------- Room Categories --------
	v1.GET("/room-categories", s.ListRoomCategories)
	v1.POST("/room-categories", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.CreateRoomCategory)
	v1.PATCH("/room-categories/:id", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.UpdateRoomCategory)

	// -------- Bookings --------
	v1.GET("/bookings", s.ListBookings)
	v1.POST("/bookings", s.CreateBooking)
	v1.GET("/bookings/:id", s.GetBookingByID)
	v1.POST("/bookings/:id/payments", s.AddBookingPayment)
	v1.POST("/bookings/:id/check-in", s.CheckInBooking)
	v1.POST("/bookings/:id/check-out", s.CheckOutBooking)
	v1.POST("/bookings/:id/cancel", s.CancelBooking)
	v1.POST("/bookings/:id/change-room", s.ChangeBookingRoom)
	v1.POST("/bookings/:id/extend", s.ExtendBookingStay)
	v1.POST("/bookings/:id/override-status", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectBooking, authorization.ActionBookingOverride), s.OverrideBookingStatus)

	// -------- Revenue --------
	v1.GET("/bar-sales", s.ListBarSales)
	v1.POST("/bar-sales", s.CreateBarSale)
	v1.GET("/expenses", s.ListExpenses)
	v1.POST("/expenses", s.CreateExpense)
	v1.GET("/other-revenues", s.ListOtherRevenues)
	v1.POST("/other-revenues", s.CreateOtherRevenue)

	// -------- Accounting Bridge --------
	v1.GET("/accounting/status", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.GetAccountingStatus)
	v1.GET("/accounting/sync-logs", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.ListAccountingSyncLogs)
	v1.POST("/accounting/connect", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAccounting, authorization.ActionAccountingConnect), s.ConnectAccounting)
	v1.POST("/accounting/disconnect", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAccounting, authorization.ActionAccountingDisconnect), s.DisconnectAccounting)
	v1.POST("/accounting/resync", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAccounting, authorization.ActionAccountingResync), s.ResyncAccounting)

	// -------- API Keys --------
	v1.GET("/api-keys/scopes", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeyScopes)
	v1.GET("/api-keys", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
	v1.POST("/api-keys", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
	v1.POST("/api-keys/:id/revoke", s.RequireRole(businessdomain.RoleOwner), s.authorizeAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)

	// -------- Audit Logs --------
	v1.GET("/audit-logs", s.RequireRole(businessdomain.RoleOwner, businessdomain.RoleManager), s.authorizeAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

// RegisterMachineRoutes mounts the API-key surface for POS tills and channel
// importers. Shared handlers, different gates: keys are checked against
// their scope list instead of the member role tables.
func (s *Server) RegisterMachineRoutes() {
	api := s.engine.Group("/api")

	api.POST("/bar-sales", s.APIKeyRequired(), s.BarSaleIngestRateLimit(), s.authorizeAction(authorization.ObjectBarSale, authorization.ActionBarSaleIngest), s.IngestBarSale)
	api.GET("/bar-sales", s.APIKeyRequired(), s.authorizeAction(authorization.ObjectBarSale, authorization.ActionBarSaleView), s.ListBarSales)

	api.GET("/rooms", s.APIKeyRequired(), s.authorizeAction(authorization.ObjectRoom, authorization.ActionRoomView), s.ListRooms)

	api.GET("/bookings", s.APIKeyRequired(), s.authorizeAction(authorization.ObjectBooking, authorization.ActionBookingView), s.ListBookings)
	api.GET("/bookings/:id", s.APIKeyRequired(), s.authorizeAction(authorization.ObjectBooking, authorization.ActionBookingView), s.GetBookingByID)

	api.POST("/other-revenues", s.APIKeyRequired(), s.authorizeAction(authorization.ObjectOtherRevenue, authorization.ActionOtherRevenueCreate), s.CreateOtherRevenue)
}
