package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/guruqool/guruqool-backend/internal/chat"
	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/guruqool/guruqool-backend/internal/routes"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Str0ng!Pass"

// stack is a full server on a loopback listener backed by a file SQLite db.
type stack struct {
	srv *httptest.Server
	rt  *routes.Realtime
}

func (s *stack) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
}

func setupStack(t *testing.T) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "guruqool.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Websocket and REST handlers write concurrently.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	database.DB = db
	database.Redis = nil
	config.AppConfig = &config.Config{Env: "test", JWTSecret: "integration-secret"}

	rt, err := routes.NewRealtime(realtime.NewLocalBroker(), 0)
	require.NoError(t, err)
	go rt.Gateway.Serve()

	srv := httptest.NewServer(routes.NewEngine(rt))
	t.Cleanup(func() {
		rt.WS.Close()
		_ = rt.Gateway.Close()
		srv.Close()
		_ = rt.Relay.Close()
		_ = sqlDB.Close()
	})
	return &stack{srv: srv, rt: rt}
}

func performRequest(t *testing.T, s *stack, method, path string, body any, token string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// signUp registers through the API and logs in with the chat client so the
// identity is exactly what the CLI would persist.
func signUp(t *testing.T, s *stack, username string, role chat.Role) chat.Identity {
	t.Helper()

	body := map[string]any{
		"name":     username,
		"email":    username + "@example.com",
		"username": username,
		"password": testPassword,
		"role":     role,
	}
	if role == chat.RoleGuru {
		body["hourlyRate"] = 100000
	}
	resp := performRequest(t, s, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, err := chat.NewAPIClient(s.srv.URL, "", s.srv.Client()).
		Login(context.Background(), username+"@example.com", testPassword)
	require.NoError(t, err)
	require.Equal(t, role, id.Role)
	return id
}
