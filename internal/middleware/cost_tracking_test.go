package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/costtrack"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(tracker *costtrack.Tracker, skipPaths []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CostTracking(tracker, skipPaths))
	return router
}

func newTestTracker() *costtrack.Tracker {
	return costtrack.NewTracker(nil, costtrack.NewHistoryStore(costtrack.DefaultHistorySize))
}

func TestCostTracking_SealsOnSuccess(t *testing.T) {
	tracker := newTestTracker()
	router := setupTestRouter(tracker, nil)

	var requestID string
	router.POST("/api/chat", func(c *gin.Context) {
		requestID = GetCostRequestID(c)
		// 下游从 context.Context 拿到同一个追踪 ID
		assert.Equal(t, requestID, costtrack.RequestIDFrom(c.Request.Context()))
		tracker.RecordCall(c.Request.Context(), costtrack.CallEvent{
			Service:     costtrack.ServiceOpenAI,
			Endpoint:    "embeddings",
			Model:       "text-embedding-3-small",
			InputTokens: 42,
			Success:     true,
		})
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, requestID)
	assert.Equal(t, requestID, w.Header().Get(HeaderRequestID))
	assert.Zero(t, tracker.ActiveCount(), "请求结束后不应残留开放汇总")

	summary, ok := tracker.History().Get(requestID)
	require.True(t, ok)
	assert.True(t, summary.Success)
	assert.Equal(t, "/api/chat", summary.Endpoint)
	require.Len(t, summary.APICalls, 1)
	assert.Equal(t, 42, summary.TotalInputTokens)
}

func TestCostTracking_ErrorStatusMarksFailure(t *testing.T) {
	tracker := newTestTracker()
	router := setupTestRouter(tracker, nil)

	var requestID string
	router.POST("/api/chat", func(c *gin.Context) {
		requestID = GetCostRequestID(c)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream down"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	summary, ok := tracker.History().Get(requestID)
	require.True(t, ok)
	assert.False(t, summary.Success)
	assert.Equal(t, "HTTP 502", summary.ErrorMessage)
}

func TestCostTracking_SealsOnPanic(t *testing.T) {
	tracker := newTestTracker()
	router := setupTestRouter(tracker, nil)

	var requestID string
	router.POST("/api/chat", func(c *gin.Context) {
		requestID = GetCostRequestID(c)
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", nil))

	// panic 被外层 Recovery 兜住返回 500，但汇总必须已封存
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, tracker.ActiveCount())

	summary, ok := tracker.History().Get(requestID)
	require.True(t, ok)
	assert.False(t, summary.Success)
	assert.Contains(t, summary.ErrorMessage, "panic")
}

func TestCostTracking_SkipPaths(t *testing.T) {
	tracker := newTestTracker()
	skip := []string{"/", "/health", "/metrics", "/static"}
	router := setupTestRouter(tracker, skip)

	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "welcome") })
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/static/app.js", func(c *gin.Context) { c.String(http.StatusOK, "js") })
	router.GET("/api/costs/today", func(c *gin.Context) { c.String(http.StatusOK, "{}") })

	cases := []struct {
		name    string
		path    string
		tracked bool
	}{
		{"根路径跳过", "/", false},
		{"健康检查跳过", "/health", false},
		{"静态资源前缀跳过", "/static/app.js", false},
		{"业务接口正常追踪", "/api/costs/today", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tracker.History().Len()
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)

			if tc.tracked {
				assert.Equal(t, before+1, tracker.History().Len())
				assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
			} else {
				assert.Equal(t, before, tracker.History().Len())
				assert.Empty(t, w.Header().Get(HeaderRequestID))
			}
		})
	}
}

func TestShouldSkip(t *testing.T) {
	skip := []string{"/", "/health", "/metrics"}

	assert.True(t, shouldSkip("/", skip))
	assert.True(t, shouldSkip("/health", skip))
	assert.True(t, shouldSkip("/metrics/extra", skip))
	// 根路径只做精确匹配，否则所有路径都会被跳过
	assert.False(t, shouldSkip("/api/chat", skip))
	assert.False(t, shouldSkip("/healthz", skip))
}
