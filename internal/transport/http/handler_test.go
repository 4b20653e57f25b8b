package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/domain"
	"gmailscraper/backend/internal/service"
	"gmailscraper/backend/internal/sink/memory"
)

type stubDirectory struct {
	users []domain.DirectoryUser
	err   error
}

func (s *stubDirectory) ListUsers(ctx context.Context) ([]domain.DirectoryUser, error) {
	return s.users, s.err
}

type stubMailbox struct {
	byUser map[string][]*gmail.Message
}

func (s *stubMailbox) FetchMessages(ctx context.Context, userEmail, query string, max int) ([]*gmail.Message, error) {
	msgs := s.byUser[userEmail]
	if max > 0 && len(msgs) > max {
		msgs = msgs[:max]
	}
	return msgs, nil
}

func testConfig() *config.Config {
	return &config.Config{
		BigQuery: config.BigQueryConfig{
			ProjectID: "demo-project",
			DatasetID: "gmail_analytics",
			TableID:   "messages",
			BatchSize: 500,
		},
		Scrape: config.ScrapeConfig{
			MaxPerUser:      100,
			UserPageSize:    500,
			MessagePageSize: 100,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, dir *stubDirectory, mbox *stubMailbox) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	runs := service.NewRunService(dir, mbox, store, nil, cfg.Scrape, nil, zap.NewNop())

	router := NewRouter(RouterDependencies{
		Config:     cfg,
		RunService: runs,
		Logger:     zap.NewNop(),
	})
	return router, store
}

func TestIdentityEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), &stubDirectory{}, &stubMailbox{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "gmail-scraper", body["service"])
	assert.Equal(t, "demo-project", body["project"])
	assert.Equal(t, "gmail_analytics", body["dataset"])
	assert.Equal(t, "messages", body["table"])
}

func TestTriggerScrape(t *testing.T) {
	t.Run("空请求体使用默认参数", func(t *testing.T) {
		dir := &stubDirectory{users: []domain.DirectoryUser{{PrimaryEmail: "alice@example.com"}}}
		mbox := &stubMailbox{byUser: map[string][]*gmail.Message{
			"alice@example.com": {{Id: "m1", Payload: &gmail.MessagePart{}}},
		}}
		router, store := newTestRouter(t, testConfig(), dir, mbox)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var result domain.RunResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, domain.RunStatusCompleted, result.Status)
		assert.Equal(t, 1, result.UsersProcessed)
		assert.Len(t, store.Records(), 1)
	})

	t.Run("请求体覆盖每用户上限", func(t *testing.T) {
		dir := &stubDirectory{users: []domain.DirectoryUser{{PrimaryEmail: "alice@example.com"}}}
		mbox := &stubMailbox{byUser: map[string][]*gmail.Message{
			"alice@example.com": {
				{Id: "m1", Payload: &gmail.MessagePart{}},
				{Id: "m2", Payload: &gmail.MessagePart{}},
			},
		}}
		router, _ := newTestRouter(t, testConfig(), dir, mbox)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"max_per_user": 1}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var result domain.RunResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.TotalEmails)
	})

	t.Run("非法请求体返回400", func(t *testing.T) {
		router, _ := newTestRouter(t, testConfig(), &stubDirectory{}, &stubMailbox{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"max_per_user": "ten"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("负数上限返回400", func(t *testing.T) {
		router, _ := newTestRouter(t, testConfig(), &stubDirectory{}, &stubMailbox{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", strings.NewReader(`{"max_per_user": -1}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("致命失败返回500和结果体", func(t *testing.T) {
		dir := &stubDirectory{err: errors.New("directory forbidden")}
		router, _ := newTestRouter(t, testConfig(), dir, &stubMailbox{})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var result domain.RunResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, domain.RunStatusFailed, result.Status)
		assert.Contains(t, result.Error, "directory forbidden")
	})
}

func TestTriggerScrapeAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Trigger.Token = "secret-token"

	dir := &stubDirectory{users: []domain.DirectoryUser{{PrimaryEmail: "alice@example.com"}}}
	router, _ := newTestRouter(t, cfg, dir, &stubMailbox{})

	t.Run("缺少令牌返回401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("错误令牌返回401", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("正确令牌放行", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSecurityHeaders(t *testing.T) {
	router, _ := newTestRouter(t, testConfig(), &stubDirectory{}, &stubMailbox{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
