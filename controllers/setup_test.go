package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/qrmenu/caching"
	"github.com/yeremiapane/qrmenu/config"
	"github.com/yeremiapane/qrmenu/models"
	"github.com/yeremiapane/qrmenu/realtime"
	"github.com/yeremiapane/qrmenu/router"
	"github.com/yeremiapane/qrmenu/testhelpers"
	"github.com/yeremiapane/qrmenu/utils"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// setupRouterForTest mounts the full router on a fresh database.
func setupRouterForTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	cfg := &config.Config{
		PublicBaseURL:        "http://qr.test",
		CORSOrigins:          []string{"http://localhost:3000"},
		RateLimit:            config.RateLimitConfig{RPS: 1000, Burst: 1000},
		BillingWebhookSecret: testWebhookSecret,
		SessionMaxAge:        12 * time.Hour,
		SubscriptionGrace:    72 * time.Hour,
	}
	hub := realtime.NewHub(cfg.CORSOrigins)
	svc := router.NewServices(db, cfg, caching.NewMemoryCacheService(), hub, nil)
	return router.SetupRouter(router.Deps{DB: db, Config: cfg, Services: svc, Hub: hub}), db
}

func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return token
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
