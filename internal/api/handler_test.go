package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gympulse-backend/config"
	"gympulse-backend/internal/auth"
	"gympulse-backend/internal/expiry"
	"gympulse-backend/internal/model"
	"gympulse-backend/internal/store"
)

// recordingSink captures advisories fired through the monitor.
type recordingSink struct {
	mu    sync.Mutex
	warns []string
}

func (s *recordingSink) Warn(principalID, title, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warns = append(s.warns, principalID+": "+body)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warns)
}

type testEnv struct {
	router  *gin.Engine
	store   store.Store
	sink    *recordingSink
	monitor *expiry.Monitor
	today   time.Time
}

// newTestEnv wires the handlers against an in-memory database, a frozen
// clock, and a recording sink, with the principal injected directly instead
// of going through token validation.
func newTestEnv(t *testing.T, principal string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Visitor{}, &model.PushSubscription{}))
	s := store.NewGormStore(db)

	today := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return today }

	reconcile := true
	cfg := &config.MonitorConfig{
		Enabled:          true,
		Interval:         30 * time.Minute,
		ExpiringDays:     3,
		Cooldown:         time.Hour,
		Dismissal:        4 * time.Hour,
		ReconcileExpired: &reconcile,
	}

	sink := &recordingSink{}
	gate := expiry.NewGate(expiry.NewCacheFlagStore(24*time.Hour), now, cfg.Cooldown, cfg.Dismissal)
	monitor := expiry.NewMonitor(cfg, s, sink, gate, now)

	handler := NewHandler(s, monitor, &webpush.Options{VAPIDPublicKey: "test-public-key"}, now)

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set(auth.PrincipalKey, principal)
		c.Next()
	})
	{
		api.GET("/visitors", handler.ListVisitors)
		api.POST("/visitors", handler.CreateVisitor)
		api.PUT("/visitors/:id", handler.UpdateVisitor)
		api.POST("/visitors/:id/renew", handler.RenewVisitor)
		api.DELETE("/visitors/:id", handler.DeleteVisitor)

		api.GET("/stats", handler.GetStats)

		api.GET("/alerts/expiring", handler.GetExpiring)
		api.POST("/alerts/dismiss", handler.DismissAlerts)
		api.POST("/alerts/refresh", handler.RefreshAlerts)

		api.GET("/push_subscriptions", handler.GetSubscription)
		api.PUT("/push_subscriptions", handler.PutSubscription)
		api.DELETE("/push_subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return &testEnv{router: r, store: s, sink: sink, monitor: monitor, today: today}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedVisitor(t *testing.T, userID, name string, start time.Time, duration int, status model.VisitorStatus) *model.Visitor {
	t.Helper()
	v := &model.Visitor{
		UserID:           userID,
		Name:             name,
		Phone:            "0501234567",
		StartDate:        start,
		SubscriptionType: model.TypeBasic,
		Duration:         duration,
		Status:           status,
	}
	require.NoError(t, e.store.CreateVisitor(context.Background(), v))
	return v
}

func TestCreateVisitor(t *testing.T) {
	env := newTestEnv(t, "admin-1")

	w := env.do(t, http.MethodPost, "/api/visitors", gin.H{
		"name":              "Dana Cohen",
		"phone":             "050-123 4567",
		"subscription_type": "premium",
		"duration":          6,
		"start_date":        "2024-06-01",
		"notes":             "prefers mornings",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.Visitor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "0501234567", created.Phone)
	assert.Equal(t, model.TypePremium, created.SubscriptionType)
	assert.Equal(t, model.StatusActive, created.Status)
	assert.Equal(t, "admin-1", created.UserID)
}

func TestCreateVisitor_Validation(t *testing.T) {
	env := newTestEnv(t, "admin-1")

	cases := []struct {
		name string
		body gin.H
	}{
		{"missing name", gin.H{"phone": "0501234567", "subscription_type": "basic", "duration": 6}},
		{"bad subscription type", gin.H{"name": "D", "phone": "0501234567", "subscription_type": "gold", "duration": 6}},
		{"bad duration", gin.H{"name": "D", "phone": "0501234567", "subscription_type": "basic", "duration": 7}},
		{"bad phone", gin.H{"name": "D", "phone": "abc", "subscription_type": "basic", "duration": 6}},
		{"bad start date", gin.H{"name": "D", "phone": "0501234567", "subscription_type": "basic", "duration": 6, "start_date": "01/06/2024"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/visitors", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListVisitors_RelabelsLapsed(t *testing.T) {
	env := newTestEnv(t, "admin-1")

	// Started 2024-01-08 for 5 months: expired 2024-06-08, row still active.
	env.seedVisitor(t, "admin-1", "Lapsed", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 5, model.StatusActive)
	env.seedVisitor(t, "admin-1", "Current", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 6, model.StatusActive)
	env.seedVisitor(t, "admin-2", "Foreign", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 6, model.StatusActive)

	w := env.do(t, http.MethodGet, "/api/visitors", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var visitors []model.Visitor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &visitors))
	require.Len(t, visitors, 2)

	byName := map[string]model.VisitorStatus{}
	for _, v := range visitors {
		byName[v.Name] = v.Status
	}
	assert.Equal(t, model.StatusExpired, byName["Lapsed"])
	assert.Equal(t, model.StatusActive, byName["Current"])
}

func TestUpdateVisitor(t *testing.T) {
	env := newTestEnv(t, "admin-1")
	v := env.seedVisitor(t, "admin-1", "Dana", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 6, model.StatusActive)

	w := env.do(t, http.MethodPut, "/api/visitors/"+v.ID, gin.H{
		"name":   "Dana Cohen",
		"status": "inactive",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated model.Visitor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Dana Cohen", updated.Name)
	assert.Equal(t, model.StatusInactive, updated.Status)

	t.Run("unknown id", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/visitors/nope", gin.H{"name": "X"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad status", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/api/visitors/"+v.ID, gin.H{"status": "frozen"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRenewVisitor(t *testing.T) {
	env := newTestEnv(t, "admin-1")
	v := env.seedVisitor(t, "admin-1", "Dana", time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), 5, model.StatusExpired)

	// Empty body: plain renewal from today.
	w := env.do(t, http.MethodPost, "/api/visitors/"+v.ID+"/renew", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var renewed model.Visitor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &renewed))
	assert.Equal(t, model.StatusActive, renewed.Status)
	assert.Equal(t, env.today.Format("2006-01-02"), renewed.StartDate.UTC().Format("2006-01-02"))
	assert.Equal(t, 5, renewed.Duration)

	// Renewal with a plan change.
	w = env.do(t, http.MethodPost, "/api/visitors/"+v.ID+"/renew", gin.H{
		"subscription_type": "vip",
		"duration":          12,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &renewed))
	assert.Equal(t, model.TypeVIP, renewed.SubscriptionType)
	assert.Equal(t, 12, renewed.Duration)
}

func TestDeleteVisitor(t *testing.T) {
	env := newTestEnv(t, "admin-1")
	v := env.seedVisitor(t, "admin-1", "Dana", env.today, 6, model.StatusActive)

	w := env.do(t, http.MethodDelete, "/api/visitors/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/visitors/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t, "admin-1")
	env.seedVisitor(t, "admin-1", "A", env.today, 6, model.StatusActive)
	env.seedVisitor(t, "admin-1", "B", env.today, 12, model.StatusExpired)

	w := env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Expired)
	require.Len(t, stats.TopByDuration, 2)
	assert.Equal(t, 12, stats.TopByDuration[0].Duration)
}

func TestGetExpiring(t *testing.T) {
	env := newTestEnv(t, "admin-1")
	// Expires today (2024-01-10 + 5 months = 2024-06-10).
	env.seedVisitor(t, "admin-1", "Today", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 5, model.StatusActive)
	// Expires tomorrow.
	env.seedVisitor(t, "admin-1", "Tomorrow", time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), 5, model.StatusActive)
	// Outside the window.
	env.seedVisitor(t, "admin-1", "Later", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 6, model.StatusActive)

	w := env.do(t, http.MethodGet, "/api/alerts/expiring", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Expiring []expiry.ExpiringVisitor `json:"expiring"`
		Count    int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Today", resp.Expiring[0].Name)
	assert.Equal(t, 0, resp.Expiring[0].DaysUntilExpiry)
	assert.Equal(t, "Tomorrow", resp.Expiring[1].Name)
	assert.Equal(t, 1, resp.Expiring[1].DaysUntilExpiry)

	// Reading the projection never fires an advisory.
	assert.Equal(t, 0, env.sink.count())
}

func TestDismissAndRefreshAlerts(t *testing.T) {
	env := newTestEnv(t, "admin-1")
	env.seedVisitor(t, "admin-1", "Today", time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 5, model.StatusActive)

	w := env.do(t, http.MethodPost, "/api/alerts/dismiss", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	// Dismissed: evaluation stays quiet.
	env.monitor.EvaluateUser(context.Background(), "admin-1")
	assert.Equal(t, 0, env.sink.count())

	// Refresh clears the gate and re-evaluates synchronously.
	w = env.do(t, http.MethodPost, "/api/alerts/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.sink.count())

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
}

func TestPushSubscriptionEndpoints(t *testing.T) {
	env := newTestEnv(t, "admin-1")

	w := env.do(t, http.MethodPut, "/api/push_subscriptions", gin.H{
		"endpoint": "https://push.example.com/abc",
		"p256dh":   "key",
		"auth":     "auth",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/push_subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fabc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://push.example.com/abc")

	w = env.do(t, http.MethodDelete, "/api/push_subscriptions", gin.H{
		"endpoint": "https://push.example.com/abc",
	})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/push_subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fabc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t, "admin-1")

	w := env.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
