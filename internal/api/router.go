package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rancheye/analysis_server/config"
	"github.com/rancheye/analysis_server/internal/api/handler"
	"github.com/rancheye/analysis_server/internal/api/middleware"
)

type Router struct {
	taskHandler      *handler.TaskHandler
	resultHandler    *handler.ResultHandler
	alertHandler     *handler.AlertHandler
	costHandler      *handler.CostHandler
	configHandler    *handler.ConfigHandler
	modelsHandler    *handler.ModelsHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	taskHandler *handler.TaskHandler,
	resultHandler *handler.ResultHandler,
	alertHandler *handler.AlertHandler,
	costHandler *handler.CostHandler,
	configHandler *handler.ConfigHandler,
	modelsHandler *handler.ModelsHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		taskHandler:      taskHandler,
		resultHandler:    resultHandler,
		alertHandler:     alertHandler,
		costHandler:      costHandler,
		configHandler:    configHandler,
		modelsHandler:    modelsHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket event stream (token auth via query param).
		api.GET("/ws", r.websocketHandler.Handle)

		// Public: provider/model catalog.
		api.GET("/models", r.modelsHandler.List)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			tasks := authenticated.Group("/tasks")
			{
				tasks.GET("", r.taskHandler.List)
				tasks.GET("/stats", r.taskHandler.Stats)
				tasks.GET("/:id", r.taskHandler.Get)
			}

			results := authenticated.Group("/results")
			{
				results.GET("", r.resultHandler.List)
				results.GET("/session/:session_id", r.resultHandler.Session)
				results.GET("/:id", r.resultHandler.Get)
			}

			alerts := authenticated.Group("/alerts")
			{
				alerts.GET("", r.alertHandler.List)
				alerts.GET("/unacknowledged-count", r.alertHandler.UnacknowledgedCount)
				alerts.POST("/:id/ack", r.alertHandler.Acknowledge)
			}

			costs := authenticated.Group("/costs")
			{
				costs.GET("/daily", r.costHandler.Daily)
				costs.GET("/summary", r.costHandler.Summary)
			}

			configs := authenticated.Group("/configs")
			{
				configs.GET("", r.configHandler.List)
				configs.POST("", r.configHandler.Create)
				configs.GET("/:id", r.configHandler.Get)
				configs.PUT("/:id", r.configHandler.Update)
				configs.DELETE("/:id", r.configHandler.Delete)
			}
		}
	}

	return engine
}
