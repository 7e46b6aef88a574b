package app

import (
	"context"

	"github.com/deepclaude/deepclaude-go/internal/config"
	"github.com/deepclaude/deepclaude-go/internal/server"
	"github.com/deepclaude/deepclaude-go/internal/store"
	"github.com/deepclaude/deepclaude-go/pkg/logger"
)

// Application 应用程序上下文
type Application struct {
	Store      *store.FileStore
	Config     *config.Manager
	HTTPServer *server.Server
}

// NewApplication 创建新的应用程序实例：加载配置文档，
// 按配置设置日志级别，并装配 HTTP 服务器。
func NewApplication(configPath, host string, port int) (*Application, error) {
	fileStore := store.NewFileStore(configPath)
	configMgr := config.NewManager(fileStore)

	agg, err := configMgr.Load(context.Background())
	if err != nil {
		return nil, err
	}
	logger.SetLevel(agg.System.LogLevel)

	httpServer := server.NewServer(configMgr, host, port)

	return &Application{
		Store:      fileStore,
		Config:     configMgr,
		HTTPServer: httpServer,
	}, nil
}
