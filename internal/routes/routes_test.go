package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"thomas-backend/internal/config"
	"thomas-backend/internal/handlers"
	"thomas-backend/internal/middleware"
	"thomas-backend/internal/models"
	"thomas-backend/internal/perplexity"
	"thomas-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	// A signup limit high enough that multi-account tests never trip it;
	// TestSignupRateLimit builds its own app with the real limit.
	return newTestAppWithSignupLimit(t, 100)
}

func newTestAppWithSignupLimit(t *testing.T, signupLimit int) (*fiber.App, *gorm.DB) {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}, &models.AuditLog{}))

	cfg := &config.Config{
		SessionSecret:       "test-secret",
		PerplexityBaseURL:   "http://127.0.0.1:1",
		PerplexityModel:     "sonar",
		LoginLimitPerMinute: 5,
		SignupLimitPerHour:  signupLimit,
	}

	// No API key: chat and news run in demo mode, no upstream calls.
	llm := perplexity.NewClient(cfg.PerplexityBaseURL, cfg.PerplexityAPIKey, cfg.PerplexityModel, time.Second)
	audit := services.NewAudit(db)
	chatService := services.NewChatService(db, llm)
	newsService := services.NewNewsService(llm)

	authHandler := handlers.NewAuthHandler(cfg, db, audit)
	chatHandler := handlers.NewChatHandler(chatService, newsService)
	convHandler := handlers.NewConversationHandler(db, audit)
	auditHandler := handlers.NewAuditHandler(audit)
	systemHandler := handlers.NewSystemHandler(db)

	app := fiber.New()
	Setup(app, cfg, audit, authHandler, chatHandler, convHandler, auditHandler, systemHandler)

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, cookie string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", middleware.SessionCookie+"="+cookie)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sessionFrom(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c.Value
		}
	}
	t.Fatal("no session cookie in response")
	return ""
}

func signup(t *testing.T, app *fiber.App, username, email, password string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return sessionFrom(t, resp)
}

func TestSignupEstablishesSecureSession(t *testing.T) {
	app, db := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.NotEmpty(t, cookie.Value)

	// Signup also seeds an empty conversation.
	var convCount int64
	db.Model(&models.Conversation{}).Count(&convCount)
	require.EqualValues(t, 1, convCount)

	// The session works against a protected route.
	me := doJSON(t, app, http.MethodGet, "/api/auth/me", nil, cookie.Value)
	require.Equal(t, http.StatusOK, me.StatusCode)
	body := decodeBody(t, me)
	require.Equal(t, "alice", body["username"])
}

func TestSignupValidation(t *testing.T) {
	app, _ := newTestApp(t)

	cases := []map[string]string{
		{"username": "ab", "email": "a@b.com", "password": "passw0rd"},       // username too short
		{"username": "alice", "email": "notanemail", "password": "passw0rd"}, // bad email
		{"username": "alice", "email": "a@b.com", "password": "short1"},      // short password
		{"username": "alice", "email": "a@b.com", "password": "12345678"},    // no letter
		{"username": "alice", "email": "a@b.com", "password": "password"},    // no digit
	}
	for _, payload := range cases {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", payload, "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "payload %v", payload)
	}
}

func TestDuplicateSignupConflicts(t *testing.T) {
	app, db := newTestApp(t)

	signup(t, app, "alice", "alice@example.com", "passw0rd")

	// Same email, different username.
	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Same username, different email.
	resp = doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var userCount int64
	db.Model(&models.User{}).Count(&userCount)
	require.EqualValues(t, 1, userCount)
}

func TestLoginErrorsAreUniform(t *testing.T) {
	app, _ := newTestApp(t)
	signup(t, app, "alice", "alice@example.com", "passw0rd")

	wrongPassword := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpass1",
	}, "")
	require.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)

	unknownEmail := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)

	// Identical error shape for both failures.
	require.Equal(t, decodeBody(t, wrongPassword), decodeBody(t, unknownEmail))

	// The stored credential still verifies the original password.
	ok := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusOK, ok.StatusCode)
	require.NotEmpty(t, sessionFrom(t, ok))
}

func TestLoginRateLimit(t *testing.T) {
	app, _ := newTestApp(t)
	signup(t, app, "alice", "alice@example.com", "passw0rd")

	for i := 0; i < 5; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "wrongpass1",
		}, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
	}

	// Sixth attempt within the window is rejected even with valid credentials.
	resp := doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestSignupRateLimit(t *testing.T) {
	app, _ := newTestAppWithSignupLimit(t, 3)

	for i := 0; i < 3; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]string{
			"username": fmt.Sprintf("user%d", i),
			"email":    fmt.Sprintf("user%d@example.com", i),
			"password": "passw0rd",
		}, "")
		require.Equal(t, http.StatusCreated, resp.StatusCode, "signup %d", i+1)
	}

	// Fourth signup from the same address within the window is rejected
	// before any validation runs.
	resp := doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": "user3",
		"email":    "user3@example.com",
		"password": "passw0rd",
	}, "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app, _ := newTestApp(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/chat"},
		{http.MethodPost, "/api/news"},
		{http.MethodGet, "/api/conversations"},
		{http.MethodGet, "/api/auth/me"},
	} {
		resp := doJSON(t, app, route.method, route.path, map[string]string{}, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
	}

	// Garbage token is rejected too.
	resp := doJSON(t, app, http.MethodGet, "/api/auth/me", nil, "not-a-token")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatDemoTurnRoundTrip(t *testing.T) {
	app, _ := newTestApp(t)
	session := signup(t, app, "alice", "alice@example.com", "passw0rd")

	first := doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{
		"message": "hello thomas",
	}, session)
	require.Equal(t, http.StatusOK, first.StatusCode)
	firstBody := decodeBody(t, first)
	require.Contains(t, firstBody["response"], "Demo Mode")
	convID, ok := firstBody["conversation_id"].(string)
	require.True(t, ok)

	second := doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{
		"message":         "tell me about python",
		"conversation_id": convID,
	}, session)
	require.Equal(t, http.StatusOK, second.StatusCode)

	// Fetching the conversation returns the turns in creation order.
	get := doJSON(t, app, http.MethodGet, "/api/conversations/"+convID, nil, session)
	require.Equal(t, http.StatusOK, get.StatusCode)
	body := decodeBody(t, get)

	msgs, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, msgs, 4)

	wantRoles := []string{"user", "assistant", "user", "assistant"}
	for i, raw := range msgs {
		msg := raw.(map[string]interface{})
		require.Equal(t, wantRoles[i], msg["role"], "message %d", i)
	}
	require.Equal(t, "hello thomas", msgs[0].(map[string]interface{})["content"])

	// Title comes from the first user message.
	require.Equal(t, "hello thomas", body["title"])
}

func TestChatValidation(t *testing.T) {
	app, _ := newTestApp(t)
	session := signup(t, app, "alice", "alice@example.com", "passw0rd")

	empty := doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{"message": "   "}, session)
	require.Equal(t, http.StatusBadRequest, empty.StatusCode)

	badID := doJSON(t, app, http.MethodPost, "/api/chat", map[string]string{
		"message":         "hi",
		"conversation_id": "not-a-uuid",
	}, session)
	require.Equal(t, http.StatusBadRequest, badID.StatusCode)
}

func TestConversationOwnershipIsScoped(t *testing.T) {
	app, _ := newTestApp(t)
	aliceSession := signup(t, app, "alice", "alice@example.com", "passw0rd")
	bobSession := signup(t, app, "bob", "bob@example.com", "passw0rd")

	created := doJSON(t, app, http.MethodPost, "/api/conversations/new", nil, aliceSession)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	convID := decodeBody(t, created)["id"].(string)

	// The owner sees it; the other user gets the same 404 as for a missing id.
	ownerGet := doJSON(t, app, http.MethodGet, "/api/conversations/"+convID, nil, aliceSession)
	require.Equal(t, http.StatusOK, ownerGet.StatusCode)

	foreignGet := doJSON(t, app, http.MethodGet, "/api/conversations/"+convID, nil, bobSession)
	require.Equal(t, http.StatusNotFound, foreignGet.StatusCode)

	foreignDelete := doJSON(t, app, http.MethodDelete, "/api/conversations/"+convID, nil, bobSession)
	require.Equal(t, http.StatusNotFound, foreignDelete.StatusCode)

	foreignRename := doJSON(t, app, http.MethodPut, "/api/conversations/"+convID+"/rename",
		map[string]string{"title": "mine now"}, bobSession)
	require.Equal(t, http.StatusNotFound, foreignRename.StatusCode)
}

func TestConversationRenameAndDelete(t *testing.T) {
	app, db := newTestApp(t)
	session := signup(t, app, "alice", "alice@example.com", "passw0rd")

	created := doJSON(t, app, http.MethodPost, "/api/conversations/new", nil, session)
	require.Equal(t, http.StatusCreated, created.StatusCode)
	convID := decodeBody(t, created)["id"].(string)

	renamed := doJSON(t, app, http.MethodPut, "/api/conversations/"+convID+"/rename",
		map[string]string{"title": "My Project Notes"}, session)
	require.Equal(t, http.StatusOK, renamed.StatusCode)

	get := doJSON(t, app, http.MethodGet, "/api/conversations/"+convID, nil, session)
	require.Equal(t, "My Project Notes", decodeBody(t, get)["title"])

	deleted := doJSON(t, app, http.MethodDelete, "/api/conversations/"+convID, nil, session)
	require.Equal(t, http.StatusOK, deleted.StatusCode)

	gone := doJSON(t, app, http.MethodGet, "/api/conversations/"+convID, nil, session)
	require.Equal(t, http.StatusNotFound, gone.StatusCode)

	var convCount int64
	db.Model(&models.Conversation{}).Where("id = ?", convID).Count(&convCount)
	require.EqualValues(t, 0, convCount)
}

func TestNewsDemoMode(t *testing.T) {
	app, _ := newTestApp(t)
	session := signup(t, app, "alice", "alice@example.com", "passw0rd")

	resp := doJSON(t, app, http.MethodPost, "/api/news", map[string]string{"query": "ai"}, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, decodeBody(t, resp)["news"], "Demo")
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "ok", body["db"])
}

func TestAuditTrail(t *testing.T) {
	app, _ := newTestApp(t)
	session := signup(t, app, "alice", "alice@example.com", "passw0rd")

	resp := doJSON(t, app, http.MethodGet, "/api/audit", nil, session)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries, ok := decodeBody(t, resp)["entries"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, entries)
	require.Equal(t, "signup", entries[0].(map[string]interface{})["action"])
}
