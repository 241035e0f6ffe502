package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fintrack/internal/classifier"
	_ "fintrack/internal/docs"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/services"
	"fintrack/internal/tokenstore"
	"fintrack/internal/validator"
)

const testKey = "local-key"

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

func newTestRouter(t *testing.T, loggedIn bool) *gin.Engine {
	t.Helper()
	tokens := &tokenstore.Memory{}
	if loggedIn {
		if err := tokens.SaveTokens(context.Background(), models.TokenPair{AccessToken: "a", RefreshToken: "r"}); err != nil {
			t.Fatalf("saving tokens: %v", err)
		}
	}
	return New(Config{
		LocalAPIKey: testKey,
		Tokens:      tokens,
		Auth:        services.NewAuthService(nil, tokens),
		Classify:    services.NewClassifyService(classifier.New(nil), nil, logger.Get()),
		Uploads:     services.NewUploadService(services.UploadServiceOptions{}),
	})
}

func serve(r *gin.Engine, method, path, apiKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return body.Error.Code
}

func TestHealthIsOpen(t *testing.T) {
	rec := serve(newTestRouter(t, false), "GET", "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request ID header")
	}
}

func TestGuards(t *testing.T) {
	tests := []struct {
		name       string
		loggedIn   bool
		method     string
		path       string
		apiKey     string
		wantStatus int
		wantCode   string
	}{
		{name: "missing API key", loggedIn: true, method: "POST", path: "/api/v1/uploads", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "wrong API key", loggedIn: true, method: "POST", path: "/api/v1/uploads", apiKey: "nope", wantStatus: http.StatusUnauthorized, wantCode: "INVALID_API_KEY"},
		{name: "no session", method: "POST", path: "/api/v1/uploads", apiKey: testKey, wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "status needs no session", method: "GET", path: "/api/v1/auth/status", apiKey: testKey, wantStatus: http.StatusOK},
		{name: "authorized upload", loggedIn: true, method: "POST", path: "/api/v1/uploads", apiKey: testKey, wantStatus: http.StatusCreated},
		{name: "unknown upload", loggedIn: true, method: "GET", path: "/api/v1/uploads/nope", apiKey: testKey, wantStatus: http.StatusNotFound, wantCode: "UPLOAD_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestRouter(t, tt.loggedIn), tt.method, tt.path, tt.apiKey, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := errorCode(t, rec); got != tt.wantCode {
					t.Errorf("expected code %s, got %s", tt.wantCode, got)
				}
			}
		})
	}
}

func TestClassifyBillRoute(t *testing.T) {
	rec := serve(newTestRouter(t, true), "POST", "/api/v1/classify/bill", testKey, `{"name":"Planet Fitness"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.BillTypeSuggestion
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.SuggestedType != models.BillTypeGym {
		t.Errorf("expected gym, got %s", got.SuggestedType)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/api/v1/uploads", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")
	rec := httptest.NewRecorder()
	newTestRouter(t, false).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestSwaggerRecommendsAsyncProcessing(t *testing.T) {
	r := newTestRouter(t, false)
	rec := serve(r, http.MethodGet, "/swagger/doc.json", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Paths map[string]map[string]struct {
			Description string `json:"description"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding swagger document: %v", err)
	}
	process := doc.Paths["/uploads/{id}/process"]["post"]
	if !strings.Contains(process.Description, "prefer async=true") {
		t.Errorf("process description = %q", process.Description)
	}
}
