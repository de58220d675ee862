package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// newStatusRouter exposes the health check and the live batch status.
func (a *App) newStatusRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		a.logger.Debug("Health check endpoint hit.", "remote_addr", c.Request.RemoteAddr, "path", c.Request.URL.Path)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/runs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"runs": a.tracker.Snapshot()})
	})
	return router
}

// startHealthcheckServer initializes and runs the status HTTP server.
func (a *App) startHealthcheckServer(port int) {
	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:    addr,
		Handler: a.newStatusRouter(),
	}

	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthcheckServer(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	return nil
}
