package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gingerskull/joycore-link/internal/settings"
	"github.com/gingerskull/joycore-link/internal/types"
)

// GET /api/v1/settings/pull-modes
func (s *Server) getPullModes(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.Settings().PullModes())
}

// PUT /api/v1/settings/pull-modes
func (s *Server) putPullModes(c *gin.Context) {
	var req settings.PullModes
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SETTINGS_400", "Invalid request body", err.Error()))
		return
	}

	if err := s.lm.Settings().SetPullModes(req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SETTINGS_400", "Invalid pull modes", err.Error()))
		return
	}

	c.JSON(http.StatusOK, s.lm.Settings().PullModes())
}
