package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/backend"
	"github.com/gingerskull/joycore-link/internal/types"
)

// GET /api/v1/device
func (s *Server) getDevice(c *gin.Context) {
	info, err := s.lm.Backend().DeviceInfo(c.Request.Context())
	if err != nil {
		if errors.Is(err, backend.ErrNotConnected) {
			c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("BACKEND_503", "Backend not connected", nil))
			return
		}
		s.logger.Error("Device query failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, types.NewErrorResponse("BACKEND_502", "Device query failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, info)
}
