package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/boards
func (s *Server) listBoards(c *gin.Context) {
	list := s.lm.Boards().List()

	c.JSON(http.StatusOK, gin.H{
		"boards": list,
		"count":  len(list),
	})
}

// GET /api/v1/boards/:vendor
func (s *Server) getVendorBoards(c *gin.Context) {
	vendor := c.Param("vendor")

	list := s.lm.Boards().ByVendor(vendor)
	if len(list) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Vendor not found",
			"vendor": vendor,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vendor": vendor,
		"boards": list,
		"count":  len(list),
	})
}

// GET /api/v1/boards/:vendor/:model
func (s *Server) getBoard(c *gin.Context) {
	vendor := c.Param("vendor")
	model := c.Param("model")

	board, ok := s.lm.Boards().Find(vendor, model)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Board not found",
			"vendor": vendor,
			"model":  model,
		})
		return
	}

	c.JSON(http.StatusOK, board)
}
