package agent

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netzbremse/nb-speedtest/pkg/grace"
)

// StartMonitoring serves liveness and metrics endpoints for scrapers when an
// address is configured. Best-effort: the agent measures fine without it.
func StartMonitoring(listenAddress string) {
	if listenAddress == "" {
		return
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	go func() {
		grace.ExitOrLog(router.Run(listenAddress))
	}()
}
