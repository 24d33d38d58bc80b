// Package score maps raw editorial scores into badge hues (0 = red, 120 = green).
package score

import "github.com/paaalop/news-analyzer/internal/domain"

// MaxHue is the green end of the hue range.
const MaxHue = 120.0

// Normalizer holds the fixed scales of the raw scores.
type Normalizer struct {
	// RelevanceThreshold is the floor below which relevance shows no green at all.
	RelevanceThreshold int
	MaxRelevance       int
	MaxStimulus        int
}

// Default matches the 0-100 relevance and 0-10 stimulus scales with a floor of 70.
func Default() Normalizer {
	return Normalizer{RelevanceThreshold: 70, MaxRelevance: 100, MaxStimulus: 10}
}

// Normalize returns the hue pair for one article.
func (n Normalizer) Normalize(stimulusRaw, relevanceRaw int) domain.ScorePair {
	return domain.ScorePair{
		RelevanceHue: n.relevanceHue(relevanceRaw),
		StimulusHue:  n.stimulusHue(stimulusRaw),
	}
}

func (n Normalizer) relevanceHue(raw int) float64 {
	span := n.MaxRelevance - n.RelevanceThreshold
	if span <= 0 || raw <= n.RelevanceThreshold {
		return 0
	}
	return MaxHue * clamp01(float64(raw-n.RelevanceThreshold)/float64(span))
}

// stimulusHue is inverted: sensational headlines go red.
func (n Normalizer) stimulusHue(raw int) float64 {
	if n.MaxStimulus <= 0 {
		return 0
	}
	ratio := clamp01(float64(raw) / float64(n.MaxStimulus))
	return MaxHue - ratio*MaxHue
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// View joins an article with its hues.
func (n Normalizer) View(a domain.Article) domain.ArticleView {
	return domain.ArticleView{Article: a, Scores: n.Normalize(a.StimulusRaw, a.RelevanceRaw)}
}
