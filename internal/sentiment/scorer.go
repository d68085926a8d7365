package sentiment

import (
	"math"

	"github.com/jonreiter/govader"
	"call-insights-go/internal/types"
)

// Thresholds are exclusive: exactly ±Threshold is Neutral.
const Threshold = 0.1

// Polarizer scores text valence in [-1, 1].
type Polarizer interface {
	Polarity(text string) float64
}

// VaderPolarizer uses the VADER lexicon-and-rule compound score.
type VaderPolarizer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderPolarizer() *VaderPolarizer {
	return &VaderPolarizer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderPolarizer) Polarity(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

// Scorer buckets a polarity score into one of three labels.
type Scorer struct {
	p Polarizer
}

// New returns a Scorer over p; nil p means VADER.
func New(p Polarizer) *Scorer {
	if p == nil {
		p = NewVaderPolarizer()
	}
	return &Scorer{p: p}
}

// Score returns the clamped polarity of the full text.
func (s *Scorer) Score(text string) float64 {
	score := s.p.Polarity(text)
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(-1, math.Min(1, score))
}

// Classify scores the whole transcript and returns its label. Total for any string.
func (s *Scorer) Classify(text string) types.Sentiment {
	return Label(s.Score(text))
}

func Label(score float64) types.Sentiment {
	switch {
	case score > Threshold:
		return types.SentimentPositive
	case score < -Threshold:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}
