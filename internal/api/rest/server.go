package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gingerskull/joycore-link/internal/api/websocket"
	"github.com/gingerskull/joycore-link/internal/auth"
	"github.com/gingerskull/joycore-link/internal/config"
	"github.com/gingerskull/joycore-link/internal/interfaces"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.Service
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.Service) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.lm.Metrics().Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH (PUBLIC) ====================
		// The session exchange is the login door and stays open
		v1.POST("/auth/session", s.createSession)

		// ==================== WEBSOCKET (PUBLIC - auth via first message) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
		}

		// Everything below requires a session token once auth is enabled
		protected := v1.Group("")
		protected.Use(s.authService.Middleware())
		{
			// ==================== SYSTEM ====================
			system := protected.Group("/system")
			{
				system.GET("/status", s.getSystemStatus)
				system.POST("/shutdown", s.shutdown)
			}

			// ==================== DEVICE ====================
			protected.GET("/device", s.getDevice)

			// ==================== INPUTS ====================
			inputsGroup := protected.Group("/inputs")
			{
				inputsGroup.GET("", s.listInputs)
				inputsGroup.POST("/decode", s.decodeInputs)
			}

			// ==================== STATE ====================
			protected.GET("/state", s.getState)

			// ==================== SETTINGS ====================
			settingsGroup := protected.Group("/settings")
			{
				settingsGroup.GET("/pull-modes", s.getPullModes)
				settingsGroup.PUT("/pull-modes", s.putPullModes)
			}

			// ==================== MONITOR ====================
			monitorGroup := protected.Group("/monitor")
			{
				monitorGroup.GET("", s.getMonitorStatus)
				monitorGroup.POST("/start", s.startMonitor)
				monitorGroup.POST("/stop", s.stopMonitor)
				monitorGroup.POST("/restart", s.restartMonitor)
			}

			// ==================== BOARDS ====================
			boardsGroup := protected.Group("/boards")
			{
				boardsGroup.GET("", s.listBoards)
				boardsGroup.GET("/:vendor", s.getVendorBoards)
				boardsGroup.GET("/:vendor/:model", s.getBoard)
			}

			// ==================== TRANSITIONS ====================
			protected.GET("/transitions", s.listTransitions)

			// ==================== DEBUG ====================
			protected.GET("/debug/trace", s.getDebugTrace)

			// ==================== WEBSOCKET STATUS ====================
			protected.GET("/ws/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
