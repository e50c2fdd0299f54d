package services

import "luckydraw/internal/models"

// DrawnLedger is the set of participant ids already drawn in the current
// session. Insertion order is kept so snapshots are stable.
type DrawnLedger struct {
	ids  []string
	seen map[string]struct{}
}

// NewDrawnLedger creates a ledger, optionally restored from persisted ids.
// Duplicates in ids are dropped.
func NewDrawnLedger(ids ...string) *DrawnLedger {
	l := &DrawnLedger{seen: make(map[string]struct{}, len(ids))}
	l.Add(ids...)
	return l
}

// Has reports whether id was drawn.
func (l *DrawnLedger) Has(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// Add records ids as drawn.
func (l *DrawnLedger) Add(ids ...string) {
	for _, id := range ids {
		if _, ok := l.seen[id]; ok {
			continue
		}
		l.seen[id] = struct{}{}
		l.ids = append(l.ids, id)
	}
}

// Retain drops ids that are not among candidates and returns how many
// were dropped.
func (l *DrawnLedger) Retain(candidates []models.Participant) int {
	keep := make(map[string]struct{}, len(candidates))
	for _, p := range candidates {
		keep[p.ID] = struct{}{}
	}
	ids := l.ids[:0]
	for _, id := range l.ids {
		if _, ok := keep[id]; ok {
			ids = append(ids, id)
			continue
		}
		delete(l.seen, id)
	}
	dropped := len(l.ids) - len(ids)
	l.ids = ids
	return dropped
}

// Clear empties the ledger.
func (l *DrawnLedger) Clear() {
	l.ids = nil
	l.seen = make(map[string]struct{})
}

// Len returns the number of drawn ids.
func (l *DrawnLedger) Len() int {
	return len(l.ids)
}

// IDs returns a copy of the drawn ids in draw order.
func (l *DrawnLedger) IDs() []string {
	return append([]string{}, l.ids...)
}

// Remaining counts the candidates that have not been drawn yet. Ids in the
// ledger that are not among candidates do not count against the pool.
func (l *DrawnLedger) Remaining(candidates []models.Participant) int {
	n := 0
	for _, p := range candidates {
		if !l.Has(p.ID) {
			n++
		}
	}
	return n
}
