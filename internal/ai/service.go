// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ai

import (
	"encoding/json"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/orca-svg/Sidera-project-sub000/internal/config"
)

// TurnDraft is the model-composed side of a turn. The raw completion is
// requested as strict JSON; Compose repairs truncated output rather than
// failing the turn.
type TurnDraft struct {
	Answer   string   `json:"answer"`
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// Service wraps the embedding and text providers with graceful
// degradation. A disabled or failing provider never fails the caller:
// embeddings come back nil and drafts fall back to placeholders, so turn
// creation keeps working without the model.
type Service struct {
	embedder  EmbeddingProvider
	generator TextProvider
	enabled   bool
}

// NewService builds a service from configuration. The API key is read
// from the environment variable named in the config, never stored in the
// config file itself.
func NewService(cfg config.AIConfig) *Service {
	if !cfg.Enabled {
		return &Service{enabled: false}
	}

	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		log.Printf("AI provider enabled but %s is not set; continuing without providers", cfg.APIKeyEnv)
	}

	client := NewOpenAIClient(
		cfg.BaseURL, apiKey, cfg.Model, cfg.EmbeddingModel,
		cfg.Dimensions, cfg.MaxOutputTokens,
		time.Duration(cfg.TimeoutSeconds)*time.Second,
	)
	return &Service{embedder: client, generator: client, enabled: true}
}

// NewServiceWithProviders wires explicit providers. Used by tests and by
// deployments that bring their own client.
func NewServiceWithProviders(embedder EmbeddingProvider, generator TextProvider) *Service {
	return &Service{embedder: embedder, generator: generator, enabled: true}
}

// SetEnabled enables or disables the service
func (s *Service) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// IsEnabled returns whether the service is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// EmbedText generates an embedding for the given text. Returns nil when
// the service is disabled, the text is empty, or the provider fails; a
// turn without an embedding still enters the graph with its temporal edge.
func (s *Service) EmbedText(text string) []float32 {
	if !s.enabled || s.embedder == nil || text == "" {
		return nil
	}
	vector, err := s.embedder.Embed(text)
	if err != nil {
		log.Printf("embedding failed, continuing without vector: %v", err)
		return nil
	}
	return vector
}

const composeSystemPrompt = `You are a precise conversational assistant. ` +
	`Respond STRICTLY as a single JSON object with the keys "answer" (a helpful, engaging response), ` +
	`"summary" (one concise sentence describing the interaction) and "keywords" (1-3 short noun phrases). ` +
	`No markdown, no text outside the JSON object.`

// Compose asks the model to answer a question and produce the summary and
// keywords for its turn. The optional context block carries retrieved
// prior turns. Any failure degrades to a placeholder draft.
func (s *Service) Compose(question, context string) *TurnDraft {
	if !s.enabled || s.generator == nil {
		return placeholderDraft()
	}

	var prompt strings.Builder
	if context != "" {
		prompt.WriteString("Relevant past turns:\n")
		prompt.WriteString(context)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("User input: ")
	prompt.WriteString(question)

	raw, err := s.generator.Generate(composeSystemPrompt, prompt.String())
	if err != nil {
		log.Printf("generation failed, using placeholder draft: %v", err)
		return placeholderDraft()
	}

	return parseDraft(raw)
}

// GenerateTitle produces a short title for a conversation opened by the
// given input. Falls back to a default on any failure.
func (s *Service) GenerateTitle(text string) string {
	const fallback = "New Conversation"
	if !s.enabled || s.generator == nil || text == "" {
		return fallback
	}

	title, err := s.generator.Generate(
		"Generate a concise, engaging title of 3 to 6 words reflecting the core topic. "+
			"Output just the title text. No quotes, no markdown.",
		text,
	)
	if err != nil {
		log.Printf("title generation failed: %v", err)
		return fallback
	}

	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"`)
	title = strings.ReplaceAll(title, "**", "")
	if title == "" {
		return fallback
	}
	return title
}

var answerFieldRe = regexp.MustCompile(`(?s)"answer"\s*:\s*"([^"]*)`)

// parseDraft decodes the model output, stripping code fences first. A
// truncated completion is repaired by salvaging the answer field.
func parseDraft(raw string) *TurnDraft {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var draft TurnDraft
	if err := json.Unmarshal([]byte(cleaned), &draft); err == nil && draft.Answer != "" {
		return &draft
	}

	log.Printf("draft JSON parse failed, attempting repair")

	if m := answerFieldRe.FindStringSubmatch(raw); m != nil {
		return &TurnDraft{
			Answer:   m[1] + " (response truncated)",
			Summary:  "Interaction (truncated)",
			Keywords: []string{"truncated"},
		}
	}

	salvaged := strings.NewReplacer("{", "", "}", "").Replace(cleaned)
	return &TurnDraft{
		Answer:   strings.TrimSpace(salvaged) + " (response truncated)",
		Summary:  "Interaction (truncated)",
		Keywords: []string{"truncated"},
	}
}

func placeholderDraft() *TurnDraft {
	return &TurnDraft{
		Answer:   "I am unable to contemplate that at the moment.",
		Summary:  "Error occurred",
		Keywords: []string{"error"},
	}
}
