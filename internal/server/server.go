package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deepclaude/deepclaude-go/internal/config"
	"github.com/deepclaude/deepclaude-go/pkg/logger"
)

// Server 配置管理 HTTP 服务器
type Server struct {
	mgr    *config.Manager
	engine *gin.Engine
	server *http.Server
	host   string
	port   int
}

// NewServer 创建 HTTP 服务器
func NewServer(mgr *config.Manager, host string, port int) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		mgr:  mgr,
		host: host,
		port: port,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.loggingMiddleware(), s.corsMiddleware())
	s.engine = engine
	s.setupRoutes()
	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 健康检查（无需认证）
	s.engine.GET("/health", s.handleHealth)

	// 配置管理 API（需要认证）
	v1 := s.engine.Group("/v1", s.authMiddleware())
	v1.GET("/config", s.handleGetConfig)
	v1.POST("/config", s.handleUpdateConfig)
	v1.GET("/config/export", s.handleExportConfig)
	v1.POST("/config/import", s.handleImportConfig)
	v1.GET("/models", s.handleListModels)
}

// Handler 返回底层的 HTTP 处理器（测试用）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 启动服务器（阻塞）
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	logger.Info("启动 DeepClaude 配置服务器，地址: %s", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
