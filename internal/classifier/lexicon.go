package classifier

import (
	"context"
	"strings"
	"unicode"

	"github.com/chongs12/emotion-analysis/internal/emotion"
)

var defaultLexicon = map[string][]string{
	emotion.Anger:    {"angry", "anger", "furious", "rage", "hate", "mad", "outraged", "annoyed", "irritated", "resent"},
	emotion.Disgust:  {"disgust", "disgusting", "gross", "revolting", "nasty", "sickening", "vile", "repulsive"},
	emotion.Fear:     {"afraid", "fear", "scared", "terrified", "anxious", "worried", "panic", "dread", "nervous"},
	emotion.Joy:      {"happy", "joy", "joyful", "glad", "delighted", "love", "wonderful", "great", "excited", "pleased"},
	emotion.Sadness:  {"sad", "sadness", "unhappy", "grief", "cry", "crying", "lonely", "miserable", "depressed", "sorrow"},
	emotion.Surprise: {"surprised", "surprise", "amazed", "astonished", "shocked", "unexpected", "wow", "sudden"},
}

// Lexicon is a keyword classifier for local development and tests. Every
// chunk starts with one neutral vote and each keyword hit adds a vote to
// its label; the votes are returned as proportions over all seven labels.
type Lexicon struct {
	index map[string]string
}

func NewLexicon() *Lexicon {
	return NewLexiconFrom(defaultLexicon)
}

// NewLexiconFrom builds a lexicon from label → keywords.
func NewLexiconFrom(words map[string][]string) *Lexicon {
	index := make(map[string]string)
	for label, kws := range words {
		for _, w := range kws {
			index[strings.ToLower(w)] = label
		}
	}
	return &Lexicon{index: index}
}

func (l *Lexicon) Classify(ctx context.Context, text string) ([]emotion.Score, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	votes := map[string]float64{emotion.Neutral: 1}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, tok := range tokens {
		if label, ok := l.index[tok]; ok {
			votes[label]++
		}
	}

	var total float64
	for _, v := range votes {
		total += v
	}
	scores := make([]emotion.Score, len(emotion.Labels))
	for i, label := range emotion.Labels {
		scores[i] = emotion.Score{Label: label, Score: votes[label] / total}
	}
	return scores, nil
}
