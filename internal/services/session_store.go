package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/logger"
	"golang.org/x/text/language"
	"luckydraw/internal/models"
	"luckydraw/internal/storage"
)

// SessionState is a read-only copy of everything the UI observes.
type SessionState struct {
	Status         models.Status         `json:"status"`
	SelectedPrize  string                `json:"selectedPrize"`
	Locale         string                `json:"locale"`
	Total          int                   `json:"total"`
	Remaining      int                   `json:"remaining"`
	DrawnIDs       []string              `json:"drawnIds"`
	CurrentWinners []models.Participant  `json:"currentWinners"`
	AllWinners     []models.WinnerRecord `json:"allWinners"`
}

// persistTimeout bounds a single snapshot write.
const persistTimeout = 5 * time.Second

// SessionStore holds the session state. Only the drawn ledger and the
// winner history are persisted; everything else is rebuilt on every start.
type SessionStore struct {
	mu             sync.RWMutex
	store          storage.Store
	name           string
	status         models.Status
	selectedPrize  string
	locale         language.Tag
	participants   []models.Participant
	ledger         *DrawnLedger
	currentWinners []models.Participant
	allWinners     []models.WinnerRecord
}

// NewSessionStore creates an empty idle session persisted to store under name.
func NewSessionStore(store storage.Store, name string) *SessionStore {
	if name == "" {
		name = storage.DefaultName
	}
	return &SessionStore{
		store:         store,
		name:          name,
		status:        models.StatusIdle,
		selectedPrize: models.DefaultPrizeKey,
		locale:        language.English,
		ledger:        NewDrawnLedger(),
	}
}

// Restore reads the persisted snapshot once. A missing or unreadable
// snapshot leaves the session empty.
func (s *SessionStore) Restore(ctx context.Context) {
	snap, err := storage.LoadSnapshot(ctx, s.store, s.name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.Infof("No saved session under %q, starting fresh", s.name)
	case err != nil:
		logger.Warningf("Ignoring unreadable session snapshot %q: %v", s.name, err)
		snap = storage.Snapshot{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = NewDrawnLedger(snap.DrawnIDs...)
	s.allWinners = snap.AllWinners
	if s.participants != nil {
		s.retainLocked()
	}
	logger.Infof("Restored session: %d drawn, %d winner records", s.ledger.Len(), len(s.allWinners))
}

// SetParticipants replaces the participant cache. Drawn ids that are not in
// the new list are dropped from the ledger; the winner history keeps them.
func (s *SessionStore) SetParticipants(participants []models.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = participants
	s.retainLocked()
}

func (s *SessionStore) retainLocked() {
	if n := s.ledger.Retain(s.participants); n > 0 {
		logger.Warningf("Dropped %d drawn id(s) that are not in the participant list", n)
	}
}

// Participants returns the cached participant list.
func (s *SessionStore) Participants() []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.participants
}

// Status returns the current status.
func (s *SessionStore) Status() models.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *SessionStore) setStatus(status models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// SelectedPrize returns the selected prize key.
func (s *SessionStore) SelectedPrize() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedPrize
}

func (s *SessionStore) setSelectedPrize(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedPrize = key
}

// Locale returns the display locale.
func (s *SessionStore) Locale() language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locale
}

func (s *SessionStore) setLocale(tag language.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = tag
}

// Remaining counts participants not drawn yet.
func (s *SessionStore) Remaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.Remaining(s.participants)
}

// ledgerCopy returns a private copy of the ledger for a draw to work on.
func (s *SessionStore) ledgerCopy() *DrawnLedger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewDrawnLedger(s.ledger.IDs()...)
}

// CurrentWinners returns the winners of the last stop.
func (s *SessionStore) CurrentWinners() []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentWinners
}

func (s *SessionStore) clearCurrentWinners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentWinners = nil
}

// AllWinners returns the winner history.
func (s *SessionStore) AllWinners() []models.WinnerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WinnerRecord(nil), s.allWinners...)
}

// commitDraw installs the ledger a draw worked on, appends the record and
// persists.
func (s *SessionStore) commitDraw(ctx context.Context, ledger *DrawnLedger, record models.WinnerRecord) {
	s.mu.Lock()
	s.ledger = ledger
	s.currentWinners = record.Winners
	s.allWinners = append(s.allWinners, record)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// clearHistory empties the ledger, the current winners and the history.
func (s *SessionStore) clearHistory(ctx context.Context, reset func(*DrawnLedger)) {
	s.mu.Lock()
	reset(s.ledger)
	s.currentWinners = nil
	s.allWinners = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.persist(ctx, snap)
}

// State returns a copy of the observable state.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := s.currentWinners
	if current == nil {
		current = []models.Participant{}
	}
	history := append([]models.WinnerRecord{}, s.allWinners...)
	return SessionState{
		Status:         s.status,
		SelectedPrize:  s.selectedPrize,
		Locale:         s.locale.String(),
		Total:          len(s.participants),
		Remaining:      s.ledger.Remaining(s.participants),
		DrawnIDs:       s.ledger.IDs(),
		CurrentWinners: current,
		AllWinners:     history,
	}
}

func (s *SessionStore) snapshotLocked() storage.Snapshot {
	return storage.Snapshot{
		DrawnIDs:   s.ledger.IDs(),
		AllWinners: append([]models.WinnerRecord(nil), s.allWinners...),
	}
}

// persist writes snap even when ctx is already cancelled: the mutation is
// committed in memory by then and must not be lost. Failures keep the
// in-memory state; the next mutation retries.
func (s *SessionStore) persist(ctx context.Context, snap storage.Snapshot) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := storage.SaveSnapshot(ctx, s.store, s.name, snap); err != nil {
		logger.Errorf("Persisting session failed: %v", err)
	}
}
