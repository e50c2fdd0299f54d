package models

import (
	"golang.org/x/text/language"
)

// PrizeLevel is a named draw configuration: how many winners one stop selects
// and how the level is labelled in each supported locale.
type PrizeLevel struct {
	Key    string            `json:"key"`
	Count  int               `json:"count"`
	Labels map[string]string `json:"labels"` // base language -> label
}

// Label returns the display label for the given locale, falling back to
// English and finally to the key.
func (p PrizeLevel) Label(tag language.Tag) string {
	base, _ := tag.Base()
	if label, ok := p.Labels[base.String()]; ok {
		return label
	}
	if label, ok := p.Labels["en"]; ok {
		return label
	}
	return p.Key
}

// DefaultPrizeKey is selected when a session starts.
const DefaultPrizeKey = "random1"

// DefaultPrizeLevels returns the static prize table.
func DefaultPrizeLevels() []PrizeLevel {
	return []PrizeLevel{
		{Key: "random1", Count: 1, Labels: map[string]string{"zh": "1人", "en": "1 Person"}},
		{Key: "random2", Count: 2, Labels: map[string]string{"zh": "2人", "en": "2 People"}},
		{Key: "random3", Count: 3, Labels: map[string]string{"zh": "3人", "en": "3 People"}},
		{Key: "random5", Count: 5, Labels: map[string]string{"zh": "5人", "en": "5 People"}},
		{Key: "random10", Count: 10, Labels: map[string]string{"zh": "10人", "en": "10 People"}},
	}
}

// FindPrize looks a prize level up by key.
func FindPrize(levels []PrizeLevel, key string) (PrizeLevel, bool) {
	for _, p := range levels {
		if p.Key == key {
			return p, true
		}
	}
	return PrizeLevel{}, false
}
