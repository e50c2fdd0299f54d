package services

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"luckydraw/internal/models"
)

// DrawEngine performs without-replacement selection against a DrawnLedger.
// It never fails: an exhausted pool simply yields no winners.
type DrawEngine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewDrawEngine creates an engine seeded from crypto/rand.
func NewDrawEngine() *DrawEngine {
	return NewDrawEngineWithSource(rand.NewSource(newSeed()))
}

// NewDrawEngineWithSource creates an engine over a caller supplied source,
// which keeps draws reproducible in tests.
func NewDrawEngineWithSource(src rand.Source) *DrawEngine {
	return &DrawEngine{rng: rand.New(src)}
}

// Draw selects up to count participants from candidates that are not in the
// ledger, records them in the ledger and returns them in random order.
func (e *DrawEngine) Draw(candidates []models.Participant, ledger *DrawnLedger, count int) []models.Participant {
	if count <= 0 {
		return []models.Participant{}
	}

	available := make([]models.Participant, 0, len(candidates))
	for _, p := range candidates {
		if !ledger.Has(p.ID) {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return []models.Participant{}
	}
	if count > len(available) {
		count = len(available)
	}

	// Partial Fisher-Yates: the first count slots end up uniformly sampled.
	e.mu.Lock()
	for i := 0; i < count; i++ {
		j := i + e.rng.Intn(len(available)-i)
		available[i], available[j] = available[j], available[i]
	}
	e.mu.Unlock()

	winners := available[:count:count]
	ledger.Add(models.IDs(winners)...)
	return winners
}

// Reset clears the ledger.
func (e *DrawEngine) Reset(ledger *DrawnLedger) {
	ledger.Clear()
}

func newSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
