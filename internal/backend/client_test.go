package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"cloud.google.com/go/civil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

type memTokens struct {
	mu      sync.Mutex
	pair    models.TokenPair
	cleared bool
}

func (m *memTokens) Tokens(context.Context) (models.TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pair, nil
}

func (m *memTokens) SaveTokens(_ context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	return nil
}

func (m *memTokens) ClearTokens(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = models.TokenPair{}
	m.cleared = true
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens *memTokens, onLogout func()) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL:  srv.URL + "/api/",
		Timeout:  5 * time.Second,
		Tokens:   tokens,
		OnLogout: onLogout,
		Location: time.UTC,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestClient_BearerHeader(t *testing.T) {
	tests := []struct {
		name       string
		access     string
		wantHeader string
	}{
		{name: "real token attached", access: "abc123", wantHeader: "Bearer abc123"},
		{name: "empty token omitted", access: "", wantHeader: ""},
		{name: "null placeholder omitted", access: "null", wantHeader: ""},
		{name: "undefined placeholder omitted", access: "undefined", wantHeader: ""},
		{name: "placeholder omitted", access: "placeholder", wantHeader: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
			}, &memTokens{pair: models.TokenPair{AccessToken: tt.access}}, nil)

			if _, err := client.ListCategories(context.Background(), models.CategoryTypeExpense); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantHeader {
				t.Errorf("Authorization = %q, want %q", got, tt.wantHeader)
			}
		})
	}
}

func TestClient_RefreshOn401(t *testing.T) {
	tokens := &memTokens{pair: models.TokenPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	var calls []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/auth/refresh":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["refreshToken"] != "refresh-1" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad refresh"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "fresh", "refreshToken": "refresh-2"})
		case "/api/categories":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"_id": "c1", "name": "Food", "type": "expense"}}})
		}
	}, tokens, func() { t.Error("OnLogout must not be called") })

	cats, err := client.ListCategories(context.Background(), models.CategoryTypeExpense)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cats) != 1 || cats[0].ID != "c1" {
		t.Fatalf("categories = %+v", cats)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls (original, refresh, retry), got %v", calls)
	}
	if tokens.pair.AccessToken != "fresh" || tokens.pair.RefreshToken != "refresh-2" {
		t.Errorf("tokens not persisted: %+v", tokens.pair)
	}
}

func TestClient_RefreshFailureForcesLogout(t *testing.T) {
	tokens := &memTokens{pair: models.TokenPair{AccessToken: "stale", RefreshToken: "revoked"}}
	loggedOut := 0

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "nope"})
	}, tokens, func() { loggedOut++ })

	_, err := client.ListCategories(context.Background(), "")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if loggedOut != 1 {
		t.Errorf("OnLogout called %d times, want 1", loggedOut)
	}
	if !tokens.cleared {
		t.Error("expected tokens to be cleared")
	}
}

func TestClient_RetryStill401ForcesLogout(t *testing.T) {
	tokens := &memTokens{pair: models.TokenPair{AccessToken: "stale", RefreshToken: "r"}}
	loggedOut := false

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "fresh"})
			return
		}
		writeJSON(w, http.StatusUnauthorized, nil)
	}, tokens, func() { loggedOut = true })

	_, err := client.CreateTransaction(context.Background(), models.CreateTransactionInput{
		Amount: decimal.NewFromInt(1), Description: "x", Date: civil.Date{Year: 2024, Month: 1, Day: 2}, Type: models.TransactionTypeExpense,
	})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if !loggedOut {
		t.Error("expected OnLogout")
	}
}

func TestClient_ProactiveRefreshOfExpiredJWT(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Hour))
	tokens := &memTokens{pair: models.TokenPair{AccessToken: expired, RefreshToken: "r"}}
	var order []string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		if r.URL.Path == "/api/auth/refresh" {
			writeJSON(w, http.StatusOK, map[string]string{"accessToken": "fresh", "refreshToken": "r2"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
	}, tokens, nil)

	if _, err := client.ListCategories(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"/api/auth/refresh", "/api/categories"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("call order = %v, want %v", order, want)
	}
}

func TestClient_APIErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "Amount is required"}})
	}, &memTokens{pair: models.TokenPair{AccessToken: "a"}}, nil)

	_, err := client.CreateMonthlyBill(context.Background(), models.CreateMonthlyBillInput{Name: "Rent"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
	if Message(err) != "Amount is required" {
		t.Errorf("Message = %q", Message(err))
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("StatusCode = %d", StatusCode(err))
	}
}

func TestClient_Login(t *testing.T) {
	tokens := &memTokens{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"accessToken": "a1", "refreshToken": "r1"}})
	}, tokens, nil)

	pair, err := client.Login(context.Background(), "me@example.com", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken != "a1" || tokens.pair.RefreshToken != "r1" {
		t.Errorf("pair = %+v stored = %+v", pair, tokens.pair)
	}
}

func TestClient_ListTransactionsQuery(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{{
				"_id":         "t1",
				"amount":      "42.50",
				"description": "TIM HORTONS #1182",
				"date":        "2024-03-10T15:04:05Z",
				"type":        "expense",
				"category":    map[string]string{"_id": "c9", "name": "Coffee"},
			}},
			"pagination": map[string]int{"page": 1, "limit": 100, "total": 1, "pages": 1},
		})
	}, &memTokens{pair: models.TokenPair{AccessToken: "a"}}, nil)

	page, err := client.ListTransactions(context.Background(), models.TransactionQuery{
		StartDate: civil.Date{Year: 2024, Month: 2, Day: 9},
		EndDate:   civil.Date{Year: 2024, Month: 4, Day: 9},
		Limit:     100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, part := range []string{"startDate=2024-02-09", "endDate=2024-04-09", "limit=100"} {
		if !strings.Contains(gotQuery, part) {
			t.Errorf("query %q missing %q", gotQuery, part)
		}
	}
	if strings.Contains(gotQuery, "type=") {
		t.Errorf("query %q must not filter by type", gotQuery)
	}
	tx := page.Transactions[0]
	if tx.ID != "t1" || tx.CategoryID != "c9" || tx.CategoryName != "Coffee" {
		t.Errorf("transaction = %+v", tx)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("42.5")) {
		t.Errorf("amount = %s", tx.Amount)
	}
	if tx.Date != (civil.Date{Year: 2024, Month: 3, Day: 10}) {
		t.Errorf("date = %s", tx.Date)
	}
	if page.Pagination.Total != 1 {
		t.Errorf("pagination = %+v", page.Pagination)
	}
}

func TestClient_ExtractAndCategorize(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ai/extract-transactions":
			var req imageRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if strings.HasPrefix(req.Image, "data:") {
				t.Errorf("image must not carry a data URL prefix")
			}
			writeJSON(w, http.StatusOK, map[string]any{"transactions": []map[string]any{{
				"amount": 42.5, "description": "Tim Hortons", "date": "2024-03-10",
				"transactionType": "expense", "confidence": "high", "category_id": "c9",
			}}})
		case "/api/ai/auto-categorize":
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"categoryId": "c2", "categoryName": "Groceries", "confidence": "medium", "transactionType": "expense",
			}})
		}
	}, &memTokens{pair: models.TokenPair{AccessToken: "a"}}, nil)

	items, err := client.ExtractTransactions(context.Background(), models.ImagePayload{Base64: "aGVsbG8=", MimeType: "image/png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].CategoryID != "c9" || items[0].TransactionType != models.TransactionTypeExpense {
		t.Fatalf("items = %+v", items)
	}

	amount := decimal.RequireFromString("12.00")
	s, err := client.AutoCategorize(context.Background(), "groceries", &amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.CategoryID != "c2" || s.Confidence != models.ConfidenceMedium {
		t.Errorf("suggestion = %+v", s)
	}
}

func TestParseDate(t *testing.T) {
	est, err := time.LoadLocation("America/Toronto")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	tests := []struct {
		name string
		raw  string
		want civil.Date
	}{
		{name: "date only stays on its day", raw: "2024-03-10", want: civil.Date{Year: 2024, Month: 3, Day: 10}},
		{name: "utc midnight shifts to local day", raw: "2024-03-10T02:00:00Z", want: civil.Date{Year: 2024, Month: 3, Day: 9}},
		{name: "empty is zero", raw: "", want: civil.Date{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDate(tt.raw, est)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseDate(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}

	if _, err := parseDate("last tuesday", est); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestClient_ExtractKeepsReadableRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"transactions": []map[string]any{
			{"amount": 4.25, "description": "Tim Hortons", "date": "2024-03-01"},
			{"amount": 60, "description": "Gas", "date": "03/01/2024"},
			{"amount": "n/a", "description": "Smudged line", "date": "2024-03-02"},
			{"amount": 9.99, "description": 12345, "date": "2024-03-02"},
		}})
	}, &memTokens{pair: models.TokenPair{AccessToken: "a"}}, nil)

	items, err := client.ExtractTransactions(context.Background(), models.ImagePayload{Base64: "aGVsbG8=", MimeType: "image/png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	if items[0].Description != "Tim Hortons" || items[0].Date != (civil.Date{Year: 2024, Month: 3, Day: 1}) {
		t.Errorf("first item = %+v", items[0])
	}
	t.Run("unreadable date leaves the item undated", func(t *testing.T) {
		if items[1].Description != "Gas" || !items[1].Date.IsZero() {
			t.Errorf("second item = %+v", items[1])
		}
		if !items[1].Amount.Equal(decimal.NewFromInt(60)) {
			t.Errorf("amount = %s", items[1].Amount)
		}
	})
}

func TestClient_ListTransactionsSkipsUnreadableRows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"id": "dup", "amount": 4.25, "description": "TIM HORTONS", "date": "2024-03-01"},
			{"id": "x", "amount": 10, "description": "x", "date": "Mar 2, 2024"},
			{"id": "y", "amount": "ten", "description": "y", "date": "2024-03-02"},
		}})
	}, &memTokens{pair: models.TokenPair{AccessToken: "a"}}, nil)

	page, err := client.ListTransactions(context.Background(), models.TransactionQuery{Limit: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Transactions) != 1 || page.Transactions[0].ID != "dup" {
		t.Fatalf("transactions = %+v", page.Transactions)
	}
}

func TestClient_CreateWithUnreadableEcho(t *testing.T) {
	var posts int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		posts++
		switch r.URL.Path {
		case "/api/transactions":
			writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
				"id": "t1", "amount": "twelve", "description": "Tim Hortons", "date": "Fri Mar 01 2024",
			}})
		case "/api/investments":
			writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
				"_id": "i1", "name": "VFV", "amount": "??", "date": "yesterday",
			}})
		case "/api/monthly-bills":
			writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
				"id": "b1", "amount": "-", "name": 7,
			}})
		}
	}, &memTokens{pair: models.TokenPair{AccessToken: "a"}}, nil)
	ctx := context.Background()
	day := civil.Date{Year: 2024, Month: 3, Day: 1}

	t.Run("transaction", func(t *testing.T) {
		tx, err := client.CreateTransaction(ctx, models.CreateTransactionInput{
			Amount: decimal.RequireFromString("12.00"), Description: "Tim Hortons", Date: day, Type: models.TransactionTypeExpense,
		})
		if err != nil {
			t.Fatalf("a created transaction must not be reported as failed: %v", err)
		}
		if tx.ID != "t1" || tx.Date != day || !tx.Amount.Equal(decimal.NewFromInt(12)) {
			t.Errorf("transaction = %+v", tx)
		}
	})

	t.Run("investment", func(t *testing.T) {
		inv, err := client.CreateInvestment(ctx, models.CreateInvestmentInput{
			Name: "VFV", Type: models.InvestmentTypeStocks, Amount: decimal.NewFromInt(500), Date: day,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if inv.ID != "i1" || inv.Date != day || !inv.Amount.Equal(decimal.NewFromInt(500)) {
			t.Errorf("investment = %+v", inv)
		}
	})

	t.Run("monthly bill", func(t *testing.T) {
		bill, err := client.CreateMonthlyBill(ctx, models.CreateMonthlyBillInput{
			Name: "Rent", Type: models.BillTypeHome, Amount: decimal.NewFromInt(1500), DueDay: 1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bill.Name != "Rent" || !bill.Amount.Equal(decimal.NewFromInt(1500)) || bill.DueDay != 1 {
			t.Errorf("bill = %+v", bill)
		}
	})

	if posts != 3 {
		t.Errorf("backend received %d posts, want 3", posts)
	}
}

func TestTruncate(t *testing.T) {
	body := strings.Repeat("é", 150)
	got := truncate(body, 201)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if len(got) != 200 {
		t.Errorf("len = %d, want 200", len(got))
	}

	e := newAPIError(http.MethodGet, "/x", http.StatusBadGateway, []byte("<html>"+body))
	if !utf8.ValidString(e.Message) || len(e.Message) > 200 {
		t.Errorf("message = %q", e.Message)
	}
}
