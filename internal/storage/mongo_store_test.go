package storage

import (
	"context"
	"testing"
	"time"
)

func TestOpenMongoHonoursCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	store, err := OpenMongo(ctx, "mongodb://127.0.0.1:1", "luckydraw", "snapshots")
	if err == nil {
		store.Close()
		t.Fatal("Expected an error with a cancelled context, but got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected OpenMongo to give up with the caller's context, but it took %v", elapsed)
	}
}
