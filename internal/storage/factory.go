package storage

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedStore = errors.New("unsupported store backend")

// StoreKinds lists the backend names accepted by NewStore.
func StoreKinds() []string {
	return []string{"memory", "sqlite"}
}

// NewStore builds the experiment store named by kind. An empty kind selects
// the in-memory store; sqlitePath is only read by the sqlite backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if strings.TrimSpace(sqlitePath) == "" {
			return nil, errors.New("sqlite store requires a database path")
		}
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStore, kind)
	}
}

func CloseIfSupported(store Store) error {
	if store == nil {
		return nil
	}
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
