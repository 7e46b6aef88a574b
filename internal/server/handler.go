package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deepclaude/deepclaude-go/pkg/logger"
	"github.com/deepclaude/deepclaude-go/pkg/types"
)

// handleHealth 健康检查
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "deepclaude",
	})
}

// handleGetConfig 返回当前完整配置
func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.mgr.Get())
}

// handleUpdateConfig 校验并保存完整配置，成功时返回已保存的文档
func (s *Server) handleUpdateConfig(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}

	saved, err := s.mgr.Replace(c.Request.Context(), raw)
	if err != nil {
		s.writeConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// handleExportConfig 导出完整配置，附加导出元数据并建议浏览器下载
func (s *Server) handleExportConfig(c *gin.Context) {
	data, err := s.mgr.Export(c.Request.Context())
	if err != nil {
		logger.Error("导出配置失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := fmt.Sprintf("deepclaude_config_%s.json", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// handleImportConfig 导入配置文档并整体覆盖当前配置
func (s *Server) handleImportConfig(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}

	if _, err := s.mgr.Import(c.Request.Context(), raw); err != nil {
		logger.Error("导入配置失败: %v", err)
		s.writeConfigError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "配置导入成功"})
}

// handleListModels 按 OpenAI 模型列表格式返回所有组合模型
func (s *Server) handleListModels(c *gin.Context) {
	composites := s.mgr.ListCompositeModels()
	created := time.Now().Unix()

	data := make([]gin.H, 0, len(composites))
	for _, m := range composites {
		data = append(data, gin.H{
			"id":       m.Name,
			"object":   "model",
			"created":  created,
			"owned_by": "deepclaude",
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   data,
	})
}

// writeConfigError 把配置操作的类型化错误映射为 HTTP 响应
func (s *Server) writeConfigError(c *gin.Context, err error) {
	var validationErr *types.ValidationFailedError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      validationErr.Error(),
			"violations": validationErr.Violations,
		})
		return
	}

	var invalidErr *types.InvalidDocumentError
	if errors.As(err, &invalidErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidErr.Error()})
		return
	}

	var staleErr *types.StaleWriteError
	if errors.As(err, &staleErr) {
		c.JSON(http.StatusConflict, gin.H{"error": staleErr.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
