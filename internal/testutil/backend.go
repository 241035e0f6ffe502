package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// FakeBackend is an in-process stand-in for the remote finance API. Fields
// may be set before the first request; created records are collected for
// assertions.
type FakeBackend struct {
	Server *httptest.Server

	mu                 sync.Mutex
	Categories         []gin.H
	Transactions       []gin.H
	Extracted          []gin.H
	Suggestion         gin.H
	BillScan           gin.H
	FailDescriptions   map[string]bool
	CreatedTxns        []gin.H
	CreatedInvestments []gin.H
	CreatedBills       []gin.H
	CreatedCategories  []gin.H
	Requests           []string
}

// NewFakeBackend starts a fake backend that is shut down with the test.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &FakeBackend{FailDescriptions: map[string]bool{}}
	r := gin.New()
	r.Use(f.record)

	r.POST("/auth/login", func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = c.ShouldBindJSON(&body)
		if body.Password != "secret" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"accessToken": "access-1", "refreshToken": "refresh-1"})
	})
	r.POST("/auth/refresh", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"accessToken": "access-2", "refreshToken": "refresh-2"})
	})

	authed := r.Group("", f.requireBearer)
	authed.GET("/categories", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		want := c.Query("type")
		out := []gin.H{}
		for _, cat := range f.Categories {
			if want == "" || cat["type"] == want {
				out = append(out, cat)
			}
		}
		c.JSON(http.StatusOK, gin.H{"data": out})
	})
	authed.POST("/categories", func(c *gin.Context) {
		var body gin.H
		_ = c.ShouldBindJSON(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		body["_id"] = "cat-new-" + strconv.Itoa(len(f.CreatedCategories)+1)
		f.CreatedCategories = append(f.CreatedCategories, body)
		f.Categories = append(f.Categories, body)
		c.JSON(http.StatusCreated, gin.H{"data": body})
	})
	authed.GET("/transactions", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": f.Transactions, "pagination": gin.H{"page": 1, "limit": 100, "total": len(f.Transactions), "pages": 1}})
	})
	authed.POST("/transactions", func(c *gin.Context) {
		var body gin.H
		_ = c.ShouldBindJSON(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		if desc, _ := body["description"].(string); f.FailDescriptions[desc] {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not save " + desc})
			return
		}
		body["_id"] = "txn-" + strconv.Itoa(len(f.CreatedTxns)+1)
		f.CreatedTxns = append(f.CreatedTxns, body)
		c.JSON(http.StatusCreated, gin.H{"data": body})
	})
	authed.POST("/investments", func(c *gin.Context) {
		var body gin.H
		_ = c.ShouldBindJSON(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		body["_id"] = "inv-" + strconv.Itoa(len(f.CreatedInvestments)+1)
		f.CreatedInvestments = append(f.CreatedInvestments, body)
		c.JSON(http.StatusCreated, gin.H{"data": body})
	})
	authed.POST("/monthly-bills", func(c *gin.Context) {
		var body gin.H
		_ = c.ShouldBindJSON(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		body["_id"] = "bill-" + strconv.Itoa(len(f.CreatedBills)+1)
		f.CreatedBills = append(f.CreatedBills, body)
		c.JSON(http.StatusCreated, gin.H{"data": body})
	})
	authed.POST("/ai/extract-transactions", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"transactions": f.Extracted}})
	})
	authed.POST("/ai/auto-categorize", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.Suggestion == nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": f.Suggestion})
	})
	authed.POST("/ai/scan-bill", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"data": f.BillScan})
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure the backend client with.
func (f *FakeBackend) URL() string { return f.Server.URL }

// Created returns a copy of the transactions created so far.
func (f *FakeBackend) Created() []gin.H {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gin.H(nil), f.CreatedTxns...)
}

func (f *FakeBackend) record(c *gin.Context) {
	f.mu.Lock()
	f.Requests = append(f.Requests, c.Request.Method+" "+c.Request.URL.Path)
	f.mu.Unlock()
	c.Next()
}

func (f *FakeBackend) requireBearer(c *gin.Context) {
	switch c.GetHeader("Authorization") {
	case "Bearer access-1", "Bearer access-2":
		c.Next()
	default:
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	}
}

