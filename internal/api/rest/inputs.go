package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gingerskull/joycore-link/internal/inputs"
	"github.com/gingerskull/joycore-link/internal/types"
)

// GET /api/v1/inputs
func (s *Server) listInputs(c *gin.Context) {
	grouped, err := s.lm.Session().EnsureIdentities(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("INPUTS_503", "Input map unavailable", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inputs": grouped,
		"count":  len(grouped.Direct) + len(grouped.ShiftReg) + len(grouped.Matrix),
	})
}

// POST /api/v1/inputs/decode
func (s *Server) decodeInputs(c *gin.Context) {
	var req struct {
		Names []string `json:"names" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("INPUTS_400", "Invalid request body", err.Error()))
		return
	}

	identities := inputs.DecodeAll(req.Names)

	c.JSON(http.StatusOK, gin.H{
		"identities": identities,
		"count":      len(identities),
	})
}
