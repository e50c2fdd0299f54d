// Package storage persists the lottery snapshot: the drawn id ledger and the
// winner history, stored as one JSON value under a fixed name.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"luckydraw/internal/models"
)

// DefaultName is the key the snapshot is stored under.
const DefaultName = "lottery-storage"

// snapshotVersion is written alongside the state.
const snapshotVersion = 0

// ErrNotFound is returned by a Store when no snapshot exists under a name.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the persisted subset of a session.
type Snapshot struct {
	DrawnIDs   []string              `json:"drawnIds"`
	AllWinners []models.WinnerRecord `json:"allWinners"`
}

type envelope struct {
	State   *Snapshot `json:"state"`
	Version int       `json:"version"`
}

// Store is a flat key-value store for encoded snapshots.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Close() error
}

// Encode serializes a snapshot.
func Encode(s Snapshot) ([]byte, error) {
	s = normalize(s)
	data, err := json.Marshal(envelope{State: &s, Version: snapshotVersion})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. Empty fields come back as empty slices.
func Decode(data []byte) (Snapshot, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.State == nil {
		return Snapshot{}, errors.New("decode snapshot: missing state")
	}
	return normalize(*env.State), nil
}

// LoadSnapshot reads and decodes the snapshot stored under name. A missing
// snapshot is reported as ErrNotFound.
func LoadSnapshot(ctx context.Context, store Store, name string) (Snapshot, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return normalize(Snapshot{}), err
	}
	return Decode(data)
}

// SaveSnapshot encodes and writes a snapshot under name.
func SaveSnapshot(ctx context.Context, store Store, name string, s Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := store.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

func normalize(s Snapshot) Snapshot {
	if s.DrawnIDs == nil {
		s.DrawnIDs = []string{}
	}
	if s.AllWinners == nil {
		s.AllWinners = []models.WinnerRecord{}
	}
	for i := range s.AllWinners {
		if s.AllWinners[i].Winners == nil {
			s.AllWinners[i].Winners = []models.Participant{}
		}
	}
	return s
}
