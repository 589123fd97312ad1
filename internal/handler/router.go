package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/middleware"
	"github.com/noah-isme/sma-scheduler-api/internal/service"
	"github.com/noah-isme/sma-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-scheduler-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Generation      *GenerationHandler
	Schedules       *ScheduleHandler
	Configurations  *SchedulerConfigurationHandler
	RoomAssignments *RoomAssignmentHandler
	BlockDays       *BlockDayHandler
	Metrics         *MetricsHandler
}

// RouterOptions configures the engine built by NewRouter.
type RouterOptions struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	GenerateLimit  *middleware.RateLimiter
}

// NewRouter assembles the gin engine with middleware, operational endpoints and the API group.
func NewRouter(h Handlers, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	probePaths := []string{"/health", "/ready", "/metrics"}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, probePaths...))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, probePaths...))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)

	generation := api.Group("/schedule")
	generation.POST("/generate", middleware.RateLimit(opts.GenerateLimit), h.Generation.Generate)
	generation.GET("/jobs", h.Generation.List)
	generation.GET("/job/:jobId/status", h.Generation.Status)
	generation.GET("/job/:jobId/export", h.Generation.Export)

	schedules := api.Group("/schedules")
	schedules.GET("", h.Schedules.List)
	schedules.GET("/:id", h.Schedules.Get)
	schedules.GET("/:id/slots", h.Schedules.Slots)
	schedules.POST("/:id/publish", h.Schedules.Publish)
	schedules.POST("/:id/archive", h.Schedules.Archive)
	schedules.POST("/:id/conflicts/detect", h.Schedules.DetectConflicts)
	schedules.GET("/:id/analyze", h.Schedules.Analyze)
	schedules.GET("/:id/export/:format", h.Schedules.Export)

	slots := api.Group("/schedule-slots")
	slots.PATCH("/:id", h.Schedules.UpdateSlot)
	slots.POST("/:id/pin", h.Schedules.PinSlot)
	slots.DELETE("/:id/pin", h.Schedules.UnpinSlot)

	configurations := api.Group("/scheduler-configurations")
	configurations.GET("", h.Configurations.List)
	configurations.POST("", h.Configurations.Create)
	configurations.GET("/active", h.Configurations.Active)
	configurations.GET("/:id", h.Configurations.Get)
	configurations.PUT("/:id", h.Configurations.Update)
	configurations.POST("/:id/activate", h.Configurations.Activate)

	api.GET("/courses/:id/rooms", h.RoomAssignments.ListCourseRooms)
	api.PUT("/courses/:id/rooms", h.RoomAssignments.ReplaceCourseRooms)
	api.PUT("/teachers/:id/room-preferences", h.RoomAssignments.UpdateTeacherRoomPreferences)

	students := api.Group("/students/:id/block-days")
	students.GET("", h.BlockDays.Get)
	students.PUT("", h.BlockDays.Save)
	students.POST("/moves", h.BlockDays.Move)

	return r
}
