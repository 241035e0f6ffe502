package testutil_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/notify"
	"fintrack/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"auth_tokens", "upload_runs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestCreateTestUploadRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	run := testutil.CreateTestUploadRun(t, db, "statement.png", 3, 1, time.Now())
	if run.ID == "" {
		t.Fatal("upload run should have an ID")
	}
	if run.Extracted != 4 {
		t.Errorf("expected extracted 4, got %d", run.Extracted)
	}

	var stored models.UploadRun
	testutil.AssertNoError(t, db.First(&stored, "id = ?", run.ID).Error)
	if stored.FileName != "statement.png" {
		t.Errorf("expected file name statement.png, got %s", stored.FileName)
	}
}

func TestAssertHelpers(t *testing.T) {
	testutil.AssertAppError(t, errors.ErrNotFound, "NOT_FOUND")
	appErr := testutil.AssertAppError(t, errors.Wrap(errors.ErrInvalidState, context.Canceled), "INVALID_STATE")
	if appErr.Internal != context.Canceled {
		t.Errorf("expected the wrapped cause, got %v", appErr.Internal)
	}

	notes := notify.NewBuffer()
	notes.Success("saved")
	notes.Error("failed")
	testutil.AssertLevels(t, notes.Drain(), notify.LevelSuccess, notify.LevelError)

	testutil.AssertAmount(t, decimal.RequireFromString("42.50"), "42.5")
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := testutil.NewFakeClock(start)

	var order []string
	clk.AfterFunc(2*time.Second, func() { order = append(order, "b") })
	clk.AfterFunc(time.Second, func() { order = append(order, "a") })
	stopped := clk.AfterFunc(time.Second, func() { order = append(order, "never") })
	if !stopped.Stop() {
		t.Fatal("Stop on a pending timer should report true")
	}

	clk.Advance(1500 * time.Millisecond)
	if strings.Join(order, ",") != "a" {
		t.Fatalf("after 1.5s order = %v", order)
	}
	if clk.Pending() != 1 {
		t.Errorf("expected 1 pending timer, got %d", clk.Pending())
	}

	clk.Advance(time.Second)
	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v", order)
	}
	if !clk.Now().Equal(start.Add(2500 * time.Millisecond)) {
		t.Errorf("Now = %v", clk.Now())
	}
}

func TestFakeBackend_RequiresBearer(t *testing.T) {
	fb := testutil.NewFakeBackend(t)

	resp, err := http.Get(fb.URL() + "/categories")
	testutil.AssertNoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without a bearer token, got %d", resp.StatusCode)
	}
}
