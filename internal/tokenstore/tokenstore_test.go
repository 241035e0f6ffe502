package tokenstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestStore_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{
		{name: "plain", key: nil},
		{name: "sealed", key: bytes.Repeat([]byte{7}, 32)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)

			store, err := New(db, tt.key)
			testutil.AssertNoError(t, err)
			ctx := context.Background()

			pair, err := store.Tokens(ctx)
			testutil.AssertNoError(t, err)
			if !pair.IsZero() {
				t.Fatalf("expected empty pair, got %+v", pair)
			}

			testutil.AssertNoError(t, store.SaveTokens(ctx, models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}))
			testutil.AssertNoError(t, store.SaveTokens(ctx, models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}))

			pair, err = store.Tokens(ctx)
			testutil.AssertNoError(t, err)
			if pair.AccessToken != "a2" || pair.RefreshToken != "r2" {
				t.Errorf("pair = %+v, want a2/r2", pair)
			}

			var rows []models.AuthToken
			testutil.AssertNoError(t, db.Find(&rows).Error)
			if len(rows) != 2 {
				t.Fatalf("expected 2 rows after upsert, got %d", len(rows))
			}
			for _, row := range rows {
				sealed := strings.HasPrefix(row.Value, sealedPrefix)
				if sealed != (tt.key != nil) {
					t.Errorf("row %s sealed=%v, key set=%v", row.Name, sealed, tt.key != nil)
				}
			}

			testutil.AssertNoError(t, store.ClearTokens(ctx))
			pair, err = store.Tokens(ctx)
			testutil.AssertNoError(t, err)
			if !pair.IsZero() {
				t.Errorf("expected empty pair after clear, got %+v", pair)
			}
		})
	}
}

func TestStore_EmptyRefreshRemovesRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	store, err := New(db, nil)
	testutil.AssertNoError(t, err)
	ctx := context.Background()

	testutil.AssertNoError(t, store.SaveTokens(ctx, models.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	testutil.AssertNoError(t, store.SaveTokens(ctx, models.TokenPair{AccessToken: "b"}))

	pair, err := store.Tokens(ctx)
	testutil.AssertNoError(t, err)
	if pair.AccessToken != "b" || pair.RefreshToken != "" {
		t.Errorf("pair = %+v", pair)
	}
}

func TestStore_SealedWithoutKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	sealedStore, err := New(db, bytes.Repeat([]byte{1}, 32))
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, sealedStore.SaveTokens(context.Background(), models.TokenPair{AccessToken: "secret"}))

	plainStore, err := New(db, nil)
	testutil.AssertNoError(t, err)
	_, err = plainStore.Tokens(context.Background())
	if !errors.Is(err, ErrSealedWithoutKey) {
		t.Errorf("expected ErrSealedWithoutKey, got %v", err)
	}

	otherKey, err := New(db, bytes.Repeat([]byte{2}, 32))
	testutil.AssertNoError(t, err)
	if _, err := otherKey.Tokens(context.Background()); err == nil {
		t.Error("expected authentication failure with the wrong key")
	}
}

func TestNew_RejectsShortKey(t *testing.T) {
	if _, err := New(nil, []byte("short")); err == nil {
		t.Error("expected error for short key")
	}
}

func TestMemory(t *testing.T) {
	m := &Memory{}
	ctx := context.Background()
	testutil.AssertNoError(t, m.SaveTokens(ctx, models.TokenPair{AccessToken: "a"}))
	pair, _ := m.Tokens(ctx)
	if pair.AccessToken != "a" {
		t.Errorf("pair = %+v", pair)
	}
	testutil.AssertNoError(t, m.ClearTokens(ctx))
	pair, _ = m.Tokens(ctx)
	if !pair.IsZero() {
		t.Errorf("pair = %+v", pair)
	}
}
