package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/helix/pkg/adapters/memory"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func tensions(title string) domain.Snapshot {
	return domain.Snapshot{
		Collection: domain.CollectionTensions,
		Rows:       []byte(`[{"id":1,"title":"` + title + `","status":"held","charge":3,"vector":"action"}]`),
		Count:      1,
		FetchedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	key := generateKey(t)
	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(underlyingStore)
	ctx := context.Background()

	if err := secureStore.Save(ctx, tensions("my-secret-sauce")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stored, err := underlyingStore.Load(ctx, domain.CollectionTensions)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if strings.Contains(string(stored.Rows), "my-secret-sauce") {
		t.Fatalf("Expected rows to be hidden, found: %s", stored.Rows)
	}
	if !strings.Contains(string(stored.Rows), "__encrypted__") {
		t.Fatal("Expected __encrypted__ envelope in rows")
	}
	if stored.Count != 1 {
		t.Errorf("Expected count to stay readable, got %d", stored.Count)
	}

	loaded, err := secureStore.Load(ctx, domain.CollectionTensions)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if string(loaded.Rows) != string(tensions("my-secret-sauce").Rows) {
		t.Errorf("Unexpected rows after decrypt: %s", loaded.Rows)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)
	if err := secureStoreOld.Save(ctx, tensions("encrypted-with-old-key")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, domain.CollectionTensions)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if !strings.Contains(string(loaded.Rows), "encrypted-with-old-key") {
		t.Errorf("Decryption with fallback key failed")
	}

	if err := secureStoreNew.Save(ctx, tensions("encrypted-with-new-key")); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}
	if _, err := secureStoreOld.Load(ctx, domain.CollectionTensions); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RefusesPlainSnapshot(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, tensions("plain")); err != nil {
		t.Fatal(err)
	}
	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, domain.CollectionTensions); err == nil {
		t.Error("Expected plain snapshot to be refused")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	if err != nil || string(got) != string(key) {
		t.Fatalf("DecodeKey round trip failed: %v", err)
	}
	if _, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Expected error for short key")
	}
	if _, err := middleware.DecodeKey("not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}
}
