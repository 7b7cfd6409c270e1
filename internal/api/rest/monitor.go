package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/types"
)

// GET /api/v1/monitor
func (s *Server) getMonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Session().Status())
}

// POST /api/v1/monitor/start
func (s *Server) startMonitor(c *gin.Context) {
	if err := s.lm.Session().StartMonitoring(c.Request.Context()); err != nil {
		s.logger.Error("Monitor start failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, types.NewErrorResponse("MONITOR_502", "Failed to start monitoring", err.Error()))
		return
	}

	c.JSON(http.StatusOK, s.lm.Session().Status())
}

// POST /api/v1/monitor/stop
func (s *Server) stopMonitor(c *gin.Context) {
	if err := s.lm.Session().StopMonitoring(c.Request.Context()); err != nil {
		s.logger.Error("Monitor stop failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, types.NewErrorResponse("MONITOR_502", "Failed to stop monitoring", err.Error()))
		return
	}

	c.JSON(http.StatusOK, s.lm.Session().Status())
}

// POST /api/v1/monitor/restart
func (s *Server) restartMonitor(c *gin.Context) {
	if err := s.lm.Session().Restart(c.Request.Context()); err != nil {
		s.logger.Error("Monitor restart failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, types.NewErrorResponse("MONITOR_502", "Failed to restart monitoring", err.Error()))
		return
	}

	c.JSON(http.StatusOK, s.lm.Session().Status())
}

// GET /api/v1/state
func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Session().Snapshot())
}
