package models

// Participant represents a person entering the lottery.
// Participants are immutable once loaded; the draw engine and the scene
// share the same values rather than copying them around.
type Participant struct {
	ID         string `json:"id" bson:"id"`
	Name       string `json:"name" bson:"name"`
	Photo      string `json:"photo" bson:"photo"`
	Department string `json:"department,omitempty" bson:"department,omitempty"`
}

// WinnerRecord stores the outcome of a single stop,
// linking the prize label shown at that moment to the winners drawn.
type WinnerRecord struct {
	Prize   string        `json:"prize" bson:"prize"`
	Winners []Participant `json:"winners" bson:"winners"`
}

// Status is the state machine variable of a lottery session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRolling Status = "rolling"
	StatusStopped Status = "stopped"
)

// IDs returns the participant ids in order.
func IDs(participants []Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
