package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"live-quiz-service/internal/app"
)

// RouterConfig carries the boundary settings of the HTTP API.
type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter wires the admin, play and live endpoints onto a gin engine.
func NewRouter(service *app.QuizService, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), Metrics())
	if gin.IsDebugging() {
		r.Use(gin.Logger())
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	ws := NewWSHandler(service)
	r.GET("/ws/session/:sessionid", ws.ServeWS)

	adminHandler := NewAdminHandler(service)
	admin := r.Group("/admin")
	admin.Use(AdminAuth(cfg.JWTSecret))
	{
		admin.GET("/games", adminHandler.ListGames)
		admin.PUT("/games", adminHandler.ReplaceGames)
		admin.POST("/game/:gameid/mutate", adminHandler.Mutate)
		admin.GET("/game/:gameid/sessions", adminHandler.History)
		admin.GET("/session/:sessionid/status", adminHandler.Status)
		admin.GET("/session/:sessionid/results", adminHandler.Results)
		admin.GET("/session/:sessionid/report", adminHandler.Report)
	}

	playHandler := NewPlayHandler(service)
	play := r.Group("/play")
	{
		play.POST("/join/:sessionid", playHandler.Join)
		play.GET("/:playerid/status", playHandler.Status)
		play.GET("/:playerid/question", playHandler.Question)
		play.GET("/:playerid/answer", playHandler.Reveal)
		play.PUT("/:playerid/answer", playHandler.Submit)
		play.GET("/:playerid/answers/:index", playHandler.Answers)
		play.GET("/:playerid/results", playHandler.Results)
	}
	return r
}
