// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scoring

import (
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
)

var (
	digitGroupPattern = regexp.MustCompile(`\d+`)
	quotedPattern     = regexp.MustCompile(`"[^"\n]+"|'[^'\n]+'|“[^”\n]+”`)
	salientPattern    = regexp.MustCompile(`[A-Z0-9$%€£₩]`)
)

// ImportanceScorer turns raw text into a normalized importance score.
// The score is a weighted sum of three sub-scores (information density,
// functional language, structural references), each clamped to [0, 1].
type ImportanceScorer struct {
	cfg  config.ScoringConfig
	acts SpeechActClassifier
}

// NewImportanceScorer creates a scorer with the given weights and
// speech-act classifier. A nil classifier falls back to the default
// bilingual one.
func NewImportanceScorer(cfg config.ScoringConfig, acts SpeechActClassifier) *ImportanceScorer {
	if acts == nil {
		acts = NewDefaultClassifier()
	}
	return &ImportanceScorer{cfg: cfg, acts: acts}
}

// Score computes the raw importance score for a turn's text.
// Pure function of the text; result is in [0, 1], rounded to 3 decimals.
func (s *ImportanceScorer) Score(text string) float64 {
	info := s.infoScore(text)
	structural := s.structScore(text)
	functional := s.funcScore(text)

	total := info*s.cfg.InfoWeight + structural*s.cfg.StructWeight + functional*s.cfg.FuncWeight
	return round3(clamp01(total))
}

// ScoreFirst computes the raw score for a project's opening turn.
// Root-anchor rule: a proper opening question is always maximally salient,
// so it is forced to 1.0 and bypasses the weighted computation.
func (s *ImportanceScorer) ScoreFirst(question, text string) float64 {
	if utf8.RuneCountInString(question) > s.cfg.RootAnchorMinLen && s.acts.IsInterrogative(question) {
		return 1.0
	}
	return s.Score(text)
}

// infoScore measures information density: digit groups, quoted fragments,
// overall length, and a flat bonus for salient characters (uppercase,
// digits, currency/percent symbols).
func (s *ImportanceScorer) infoScore(text string) float64 {
	digits := float64(len(digitGroupPattern.FindAllString(text, -1)))
	quotes := float64(len(quotedPattern.FindAllString(text, -1)))

	length := float64(utf8.RuneCountInString(text)) / s.cfg.LengthDenominator
	if length > 1 {
		length = 1
	}

	score := digits*0.1 + quotes*0.2 + length
	if salientPattern.MatchString(text) {
		score += 0.2
	}
	return clamp01(score)
}

// funcScore measures functional language: decisions, questions, requests.
// Starts from a base "has content" assumption.
func (s *ImportanceScorer) funcScore(text string) float64 {
	score := 0.3
	if s.acts.HasDecision(text) {
		score += 0.4
	}
	if s.acts.HasQuestion(text) {
		score += 0.2
	}
	if s.acts.HasRequest(text) {
		score += 0.2
	}
	return clamp01(score)
}

// structScore measures structural references such as mentions and citations
func (s *ImportanceScorer) structScore(text string) float64 {
	score := 0.2 + 0.2*float64(s.acts.ReferenceCount(text))
	return clamp01(score)
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

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
