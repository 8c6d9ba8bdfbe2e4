package storage

import (
	"context"
	"errors"
	"testing"
)

func TestNewStoreMemoryRoundTrip(t *testing.T) {
	for _, kind := range []string{"", "memory", " Memory "} {
		store, err := NewStore(kind, "")
		if err != nil {
			t.Fatalf("new store %q: %v", kind, err)
		}
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("expected memory store for %q, got %T", kind, store)
		}
	}

	ctx := context.Background()
	store, _ := NewStore("memory", "")
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	record := sampleExperiment("factory", "2026-01-02T03:04:05.000000000Z")
	if err := store.SaveExperiment(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.GetExperiment(ctx, "factory"); err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	_, err := NewStore("postgres", "")
	if !errors.Is(err, ErrUnsupportedStore) {
		t.Fatalf("expected ErrUnsupportedStore, got: %v", err)
	}
	if _, err := NewStore("sqlite", " "); err == nil {
		t.Fatal("expected missing sqlite path error")
	}
}

func TestCloseIfSupportedNilStore(t *testing.T) {
	if err := CloseIfSupported(nil); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}
