package routers

import (
	"TicketMarket/controllers"
	"TicketMarket/middlewares"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const maxRequestSize = 1 << 20

func SetupRouter(h *controllers.Handler, redisClient *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.LoggerMiddleware(), middlewares.MetricsMiddleware(), middlewares.CORSConfigMiddleware(), middlewares.MaxBodySizeMiddleware(maxRequestSize))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	Register(api, h, redisClient)
	return r
}
