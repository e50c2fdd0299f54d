package services

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/logger"
	"luckydraw/internal/models"
)

//go:embed data/participants.json
var bundledParticipants []byte

//go:embed data/photos
var bundledPhotos embed.FS

// BundledPhotos serves the photos the bundled participant list refers to,
// rooted so that "photos/001.png" resolves.
func BundledPhotos() fs.FS {
	sub, err := fs.Sub(bundledPhotos, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// ParticipantRepository supplies the full candidate list.
type ParticipantRepository interface {
	FetchAll(ctx context.Context) ([]models.Participant, error)
}

// UserFetcher is the remote side of the repository.
type UserFetcher interface {
	FetchUsers(ctx context.Context) ([]models.Participant, error)
}

// StaticRepository serves a fixed participant list.
type StaticRepository struct {
	participants []models.Participant
}

// NewStaticRepository wraps an in-memory list.
func NewStaticRepository(participants []models.Participant) *StaticRepository {
	return &StaticRepository{participants: participants}
}

// NewBundledRepository serves the participant list compiled into the binary.
func NewBundledRepository() (*StaticRepository, error) {
	return parseStatic(bundledParticipants, "bundled participants")
}

// NewFileRepository serves a participant list read from a JSON file.
func NewFileRepository(path string) (*StaticRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read participants file: %w", err)
	}
	return parseStatic(data, path)
}

func parseStatic(data []byte, source string) (*StaticRepository, error) {
	var participants []models.Participant
	if err := json.Unmarshal(data, &participants); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	return NewStaticRepository(dedupe(participants)), nil
}

// FetchAll returns the static list.
func (r *StaticRepository) FetchAll(ctx context.Context) ([]models.Participant, error) {
	return append([]models.Participant(nil), r.participants...), nil
}

// FallbackRepository tries the remote backend first and serves the static
// list when it cannot. It never fails as long as the static list is there.
type FallbackRepository struct {
	remote UserFetcher
	static ParticipantRepository
}

// NewFallbackRepository creates a FallbackRepository. remote may be nil.
func NewFallbackRepository(remote UserFetcher, static ParticipantRepository) *FallbackRepository {
	return &FallbackRepository{remote: remote, static: static}
}

// FetchAll returns the remote list or, on any failure, the static one.
func (r *FallbackRepository) FetchAll(ctx context.Context) ([]models.Participant, error) {
	if r.remote != nil {
		participants, err := r.remote.FetchUsers(ctx)
		if err == nil {
			return dedupe(participants), nil
		}
		logger.Warningf("Fetching participants failed, falling back to local data: %v", err)
	}
	return r.static.FetchAll(ctx)
}

// dedupe drops entries with empty or repeated ids; the first one wins.
func dedupe(participants []models.Participant) []models.Participant {
	seen := make(map[string]struct{}, len(participants))
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.ID == "" {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			logger.Infof("Skipping duplicate participant id %s", p.ID)
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
