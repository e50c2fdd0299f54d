package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/logger"
	"golang.org/x/text/language"
	"luckydraw/internal/models"
)

// SceneSink receives the parts of the session the particle scene follows.
type SceneSink interface {
	SetFreeCamera(free bool)
	SetWinners(winners []models.Participant)
}

// Drawer performs draws against a ledger.
type Drawer interface {
	Draw(ctx context.Context, candidates []models.Participant, ledger *DrawnLedger, count int) []models.Participant
	Reset(ledger *DrawnLedger)
}

// SessionController drives the idle -> rolling -> stopped -> idle state
// machine. Every event is checked against the current status; a rejected
// event returns a *TransitionError and changes nothing.
type SessionController struct {
	mu     sync.Mutex
	store  *SessionStore
	drawer Drawer
	prizes []models.PrizeLevel
	scene  SceneSink
}

// NewSessionController creates a controller. scene may be nil.
func NewSessionController(store *SessionStore, drawer Drawer, prizes []models.PrizeLevel, scene SceneSink) *SessionController {
	if len(prizes) == 0 {
		prizes = models.DefaultPrizeLevels()
	}
	return &SessionController{
		store:  store,
		drawer: drawer,
		prizes: prizes,
		scene:  scene,
	}
}

// Prizes returns the prize table.
func (c *SessionController) Prizes() []models.PrizeLevel {
	return append([]models.PrizeLevel(nil), c.prizes...)
}

// Start begins rolling.
func (c *SessionController) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.store.Status()
	if status != models.StatusIdle {
		return &TransitionError{From: status, Event: "start"}
	}
	if c.store.Remaining() == 0 {
		return &TransitionError{From: status, Event: "start", Reason: "no participants left to draw"}
	}

	c.store.clearCurrentWinners()
	c.store.setStatus(models.StatusRolling)
	c.notify(true, nil)
	logger.Infof("Lottery rolling, %d participants remaining", c.store.Remaining())
	return nil
}

// Stop ends rolling and draws winners for the selected prize. When the pool
// is exhausted the session goes straight back to idle with no winners.
func (c *SessionController) Stop(ctx context.Context) ([]models.Participant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.store.Status()
	if status != models.StatusRolling {
		return nil, &TransitionError{From: status, Event: "stop"}
	}

	prize, ok := models.FindPrize(c.prizes, c.store.SelectedPrize())
	if !ok {
		prize = c.prizes[0]
	}

	participants := c.store.Participants()
	ledger := c.store.ledgerCopy()
	if ledger.Remaining(participants) == 0 {
		c.store.setStatus(models.StatusIdle)
		c.notify(false, nil)
		logger.Infof("Stop with an empty pool, back to idle")
		return []models.Participant{}, nil
	}

	winners := c.drawer.Draw(ctx, participants, ledger, prize.Count)
	if len(winners) == 0 {
		c.store.setStatus(models.StatusIdle)
		c.notify(false, nil)
		return winners, nil
	}

	record := models.WinnerRecord{Prize: prize.Label(c.store.Locale()), Winners: winners}
	c.store.commitDraw(ctx, ledger, record)
	c.store.setStatus(models.StatusStopped)
	c.notify(false, winners)
	logger.Infof("Drew %d winner(s) for %q: %v", len(winners), record.Prize, models.IDs(winners))
	return winners, nil
}

// Continue returns from stopped to idle.
func (c *SessionController) Continue() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.store.Status()
	if status != models.StatusStopped {
		return &TransitionError{From: status, Event: "continue"}
	}
	c.store.clearCurrentWinners()
	c.store.setStatus(models.StatusIdle)
	c.notify(false, nil)
	return nil
}

// Reset clears the ledger and the whole winner history.
func (c *SessionController) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.store.Status()
	if status == models.StatusRolling {
		return &TransitionError{From: status, Event: "reset"}
	}
	c.store.clearHistory(ctx, c.drawer.Reset)
	c.store.setStatus(models.StatusIdle)
	c.notify(false, nil)
	logger.Infof("Lottery reset")
	return nil
}

// SelectPrize changes the prize level used by the next stop.
func (c *SessionController) SelectPrize(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := models.FindPrize(c.prizes, key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPrize, key)
	}
	status := c.store.Status()
	if status == models.StatusRolling {
		return &TransitionError{From: status, Event: "select prize"}
	}
	c.store.setSelectedPrize(key)
	return nil
}

// SelectLocale changes the label language.
func (c *SessionController) SelectLocale(value string) (language.Tag, error) {
	tag, ok := models.ParseLocale(value)
	if !ok {
		return tag, fmt.Errorf("%w: %q", ErrUnknownLocale, value)
	}
	c.store.setLocale(tag)
	return tag, nil
}

// Participants returns the loaded participant list.
func (c *SessionController) Participants() []models.Participant {
	return c.store.Participants()
}

// State returns the observable session state.
func (c *SessionController) State() SessionState {
	return c.store.State()
}

func (c *SessionController) notify(free bool, winners []models.Participant) {
	if c.scene == nil {
		return
	}
	c.scene.SetFreeCamera(free)
	c.scene.SetWinners(winners)
}
