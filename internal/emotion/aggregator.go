package emotion

import (
	"strconv"
)

// Canonical emotion labels, in output order.
const (
	Anger    = "anger"
	Disgust  = "disgust"
	Fear     = "fear"
	Joy      = "joy"
	Neutral  = "neutral"
	Sadness  = "sadness"
	Surprise = "surprise"
)

// Labels is the canonical label set the profile is projected onto.
var Labels = []string{Anger, Disgust, Fear, Joy, Neutral, Sadness, Surprise}

// IsCanonical reports whether label belongs to Labels.
func IsCanonical(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Score is one (label, score) pair emitted by a classifier.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Aggregate accumulates per-chunk scores. Labels are summed in first-seen
// order so totals do not depend on map iteration.
type Aggregate struct {
	order  []string
	totals map[string]float64
}

func NewAggregate() *Aggregate {
	return &Aggregate{totals: make(map[string]float64)}
}

func (a *Aggregate) Add(scores []Score) {
	for _, s := range scores {
		if _, ok := a.totals[s.Label]; !ok {
			a.order = append(a.order, s.Label)
		}
		a.totals[s.Label] += s.Score
	}
}

// Get returns the cumulative score of label, 0 if never seen.
func (a *Aggregate) Get(label string) float64 {
	return a.totals[label]
}

// Seen lists every label added so far, canonical or not.
func (a *Aggregate) Seen() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Total sums every label, including labels outside the canonical set.
func (a *Aggregate) Total() float64 {
	var total float64
	for _, label := range a.order {
		total += a.totals[label]
	}
	return total
}

// Normalized divides each label by Total. A zero total yields zero for
// every label instead of dividing by zero.
func (a *Aggregate) Normalized() map[string]float64 {
	out := make(map[string]float64, len(a.order))
	total := a.Total()
	for _, label := range a.order {
		if total == 0 {
			out[label] = 0
			continue
		}
		out[label] = a.totals[label] / total
	}
	return out
}

// Profile projects the normalized scores onto the canonical labels and
// rounds them to two decimals. Mass held by non-canonical labels stays in
// the denominator and is not redistributed.
func (a *Aggregate) Profile() Profile {
	normalized := a.Normalized()
	var p Profile
	for _, label := range Labels {
		p.set(label, Round2(normalized[label]))
	}
	return p
}

// Profile is the document-level emotion profile returned to callers.
type Profile struct {
	Anger    float64 `json:"anger"`
	Disgust  float64 `json:"disgust"`
	Fear     float64 `json:"fear"`
	Joy      float64 `json:"joy"`
	Neutral  float64 `json:"neutral"`
	Sadness  float64 `json:"sadness"`
	Surprise float64 `json:"surprise"`
}

func (p *Profile) field(label string) *float64 {
	switch label {
	case Anger:
		return &p.Anger
	case Disgust:
		return &p.Disgust
	case Fear:
		return &p.Fear
	case Joy:
		return &p.Joy
	case Neutral:
		return &p.Neutral
	case Sadness:
		return &p.Sadness
	case Surprise:
		return &p.Surprise
	}
	return nil
}

func (p *Profile) set(label string, v float64) {
	if f := p.field(label); f != nil {
		*f = v
	}
}

// Get returns the value for a canonical label and false for any other label.
func (p Profile) Get(label string) (float64, bool) {
	f := p.field(label)
	if f == nil {
		return 0, false
	}
	return *f, true
}

// Map returns the profile keyed by label.
func (p Profile) Map() map[string]float64 {
	out := make(map[string]float64, len(Labels))
	for _, label := range Labels {
		out[label], _ = p.Get(label)
	}
	return out
}

// IsZero reports whether every label is 0.
func (p Profile) IsZero() bool {
	return p == Profile{}
}

// Round2 rounds to two decimals with round-half-to-even on the exact binary
// value, matching Python's round(x, 2). math.Round(x*100)/100 differs on
// exact ties such as 0.125.
func Round2(x float64) float64 {
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return x
	}
	return v
}
