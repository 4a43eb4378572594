package middleware_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/helix/pkg/adapters/memory"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := middleware.NewPIIMiddleware([]string{"^user_id$", "description"})(underlyingStore)
	ctx := context.Background()

	rows := []byte(`[{"id":4,"name":"Deep work","user_id":"u-42","description":"private","preferred_windows":{"mon":["09:00"],"user_id":"nested"}}]`)
	snap := domain.Snapshot{Collection: domain.CollectionBaselineFields, Rows: rows, Count: 1}

	if err := secureStore.Save(ctx, snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if string(snap.Rows) != string(rows) {
		t.Error("Middleware modified the caller's rows")
	}

	stored, err := underlyingStore.Load(ctx, domain.CollectionBaselineFields)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(stored.Rows, &decoded); err != nil {
		t.Fatal(err)
	}

	field := decoded[0]
	if field["name"] != "Deep work" {
		t.Error("Name shouldn't be masked")
	}
	if field["user_id"] != middleware.Mask {
		t.Errorf("user_id should be masked, got: %v", field["user_id"])
	}
	if field["description"] != middleware.Mask {
		t.Errorf("description should be masked, got: %v", field["description"])
	}
	windows := field["preferred_windows"].(map[string]any)
	if windows["user_id"] != middleware.Mask {
		t.Errorf("Nested user_id should be masked, got: %v", windows["user_id"])
	}
}

func TestChain_MasksBeforeEncrypting(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"title"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	if err := store.Save(ctx, tensions("secret title")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load(ctx, domain.CollectionTensions)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var decoded []domain.Tension
	if err := json.Unmarshal(loaded.Rows, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded[0].Title != middleware.Mask {
		t.Errorf("Expected masked title after decrypt, got %q", decoded[0].Title)
	}
}
