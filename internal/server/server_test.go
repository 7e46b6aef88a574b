package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepclaude/deepclaude-go/internal/config"
	"github.com/deepclaude/deepclaude-go/internal/store"
	"github.com/deepclaude/deepclaude-go/pkg/types"
)

func newTestServer(t *testing.T) (*Server, *config.Manager) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	mgr := config.NewManager(store.NewFileStore(path))
	_, err := mgr.Load(context.Background())
	require.NoError(t, err)
	return NewServer(mgr, "127.0.0.1", 0), mgr
}

func doRequest(srv *Server, method, path, token string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_HealthNoAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"deepclaude"}`, w.Body.String())
}

func TestServer_AuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/v1/config", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Missing Authorization header")

	w = doRequest(srv, http.MethodGet, "/v1/config", "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestServer_GetConfig(t *testing.T) {
	srv, mgr := newTestServer(t)
	require.NoError(t, mgr.AddReasonerModel(context.Background(), types.ReasonerModel{
		Name: "r1", ModelID: "deepseek-reasoner", IsValid: true,
	}))

	w := doRequest(srv, http.MethodGet, "/v1/config", "123456", "")
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Contains(t, doc, "reasoner_models")
	assert.Contains(t, doc, "system")
	assert.Contains(t, doc, "version")

	var reasoners map[string]types.ReasonerModel
	require.NoError(t, json.Unmarshal(doc["reasoner_models"], &reasoners))
	assert.Contains(t, reasoners, "r1")
}

func TestServer_UpdateConfig(t *testing.T) {
	srv, mgr := newTestServer(t)

	body := `{
		"reasoner_models": {"r1": {"model_id": "deepseek-reasoner", "is_valid": true}},
		"target_models": {"t1": {"model_id": "claude-3-5-sonnet", "is_valid": true}},
		"composite_models": {"c1": {"reasoner_ref": "r1", "target_ref": "t1", "is_valid": true}}
	}`
	w := doRequest(srv, http.MethodPost, "/v1/config", "123456", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 更新应立即可见
	agg := mgr.Get()
	assert.Contains(t, agg.CompositeModels, "c1")
	assert.Equal(t, "openai", agg.TargetModels["t1"].ModelFormat)
}

func TestServer_UpdateConfigValidationFailure(t *testing.T) {
	srv, mgr := newTestServer(t)

	body := `{"composite_models": {"c1": {"reasoner_ref": "ghost", "target_ref": "ghost"}}}`
	w := doRequest(srv, http.MethodPost, "/v1/config", "123456", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error      string            `json:"error"`
		Violations []types.Violation `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	require.Len(t, resp.Violations, 2)
	assert.Equal(t, "c1", resp.Violations[0].CompositeName)

	// 被拒绝的更新不应改变状态
	assert.NotContains(t, mgr.Get().CompositeModels, "c1")
}

func TestServer_ImportConfig(t *testing.T) {
	srv, mgr := newTestServer(t)

	body := `{"reasoner_models": {"r1": {"model_id": "deepseek-reasoner"}}}`
	w := doRequest(srv, http.MethodPost, "/v1/config/import", "123456", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "配置导入成功")
	assert.Contains(t, mgr.Get().ReasonerModels, "r1")
}

func TestServer_ImportInvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/v1/config/import", "123456", `{broken`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "error")
}

func TestServer_ExportConfig(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(srv, http.MethodGet, "/v1/config/export", "123456", "")
	require.Equal(t, http.StatusOK, w.Code)

	disposition := w.Header().Get("Content-Disposition")
	assert.Contains(t, disposition, "attachment")
	assert.Contains(t, disposition, "deepclaude_config_")
	assert.True(t, strings.HasSuffix(disposition, ".json"))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Contains(t, doc, "_export_metadata")

	var meta types.ExportMetadata
	require.NoError(t, json.Unmarshal(doc["_export_metadata"], &meta))
	assert.Equal(t, "deepclaude", meta.Source)
}

func TestServer_ListModels(t *testing.T) {
	srv, mgr := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, mgr.AddReasonerModel(ctx, types.ReasonerModel{Name: "r1", IsValid: true}))
	require.NoError(t, mgr.AddTargetModel(ctx, types.TargetModel{Name: "t1", IsValid: true}))
	require.NoError(t, mgr.AddCompositeModel(ctx, types.CompositeModel{
		Name: "deepclaude-pro", ReasonerRef: "r1", TargetRef: "t1", IsValid: true,
	}))

	w := doRequest(srv, http.MethodGet, "/v1/models", "123456", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Object string `json:"object"`
		Data   []struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "list", resp.Object)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "deepclaude-pro", resp.Data[0].ID)
	assert.Equal(t, "model", resp.Data[0].Object)
	assert.Equal(t, "deepclaude", resp.Data[0].OwnedBy)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/config", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestServer_CORSRestrictedOrigin(t *testing.T) {
	srv, mgr := newTestServer(t)

	origins := []string{"http://allowed.example"}
	_, err := mgr.UpdateSystemSettings(context.Background(), types.SystemSettingsPatch{
		AllowOrigins: &origins,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://allowed.example")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, "http://allowed.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_AuthUsesUpdatedKey(t *testing.T) {
	srv, mgr := newTestServer(t)

	key := "new-secret"
	_, err := mgr.UpdateSystemSettings(context.Background(), types.SystemSettingsPatch{APIKey: &key})
	require.NoError(t, err)

	w := doRequest(srv, http.MethodGet, "/v1/config", "123456", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(srv, http.MethodGet, "/v1/config", "new-secret", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
