// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scoring

import "regexp"

// SpeechActClassifier detects the locale-specific language markers the
// importance scorer depends on. Implementations are pluggable so alternate
// languages can be swapped in without touching the scoring weights.
type SpeechActClassifier interface {
	// HasDecision reports decision/agreement/proposal language
	HasDecision(text string) bool
	// HasQuestion reports a question marker
	HasQuestion(text string) bool
	// HasRequest reports a request marker
	HasRequest(text string) bool
	// IsInterrogative reports whether the text reads as a proper question.
	// Used by the root-anchor rule for a project's opening turn.
	IsInterrogative(text string) bool
	// ReferenceCount counts mention/citation-style reference tokens
	ReferenceCount(text string) int
}

// RegexpClassifier is a SpeechActClassifier backed by compiled patterns
type RegexpClassifier struct {
	decision      *regexp.Regexp
	question      *regexp.Regexp
	request       *regexp.Regexp
	interrogative *regexp.Regexp
	reference     *regexp.Regexp
}

// NewDefaultClassifier returns the bilingual English/Korean classifier the
// scorer ships with. The Korean interrogative markers follow the shipped
// conversation corpus.
func NewDefaultClassifier() *RegexpClassifier {
	return &RegexpClassifier{
		decision:      regexp.MustCompile(`(?i)(decid|agree|propos|conclu|confirm|approv|let'?s go with|we (will|should)|결정|확정|동의|제안|합의|진행)`),
		question:      regexp.MustCompile(`\?|까\?|나요\?|왜|무엇|어떻게`),
		request:       regexp.MustCompile(`(?i)(please|could you|can you|would you|help me|해줘|해 주|주세요|부탁)`),
		interrogative: regexp.MustCompile(`\?|까\?|나요\?|왜|무엇|어떻게`),
		reference:     regexp.MustCompile(`@[\p{L}\p{N}_]+|\[[^\]\n]+\]`),
	}
}

// HasDecision reports decision/agreement/proposal language
func (c *RegexpClassifier) HasDecision(text string) bool {
	return c.decision.MatchString(text)
}

// HasQuestion reports a question marker
func (c *RegexpClassifier) HasQuestion(text string) bool {
	return c.question.MatchString(text)
}

// HasRequest reports a request marker
func (c *RegexpClassifier) HasRequest(text string) bool {
	return c.request.MatchString(text)
}

// IsInterrogative reports whether the text reads as a proper question
func (c *RegexpClassifier) IsInterrogative(text string) bool {
	return c.interrogative.MatchString(text)
}

// ReferenceCount counts mention/citation-style reference tokens
func (c *RegexpClassifier) ReferenceCount(text string) int {
	return len(c.reference.FindAllString(text, -1))
}
