package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/types"
)

// GET /api/v1/transitions?domain=gpio&limit=50
func (s *Server) listTransitions(c *gin.Context) {
	store := s.lm.Storage()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("RECORDER_503", "Transition recorder is disabled", nil))
		return
	}

	domain := c.Query("domain")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("RECORDER_400", "Invalid limit", raw))
			return
		}
		limit = n
	}

	records, err := store.RecentTransitions(c.Request.Context(), domain, limit)
	if err != nil {
		s.logger.Error("Transition query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("RECORDER_500", "Failed to query transitions", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transitions": records,
		"count":       len(records),
	})
}
