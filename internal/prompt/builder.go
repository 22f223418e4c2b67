package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-analyzer/internal/domain"
	"github.com/phrazzld/scry-analyzer/internal/generation"
)

// Payload limits applied before prompt assembly.
const (
	// MaxPhotoImages is the number of leading photo payload items kept.
	MaxPhotoImages = 3
	// MaxReviewGroups is the number of merged review groups kept.
	MaxReviewGroups = 8
	// MaxReviewRunes caps each merged review group, in code points.
	MaxReviewRunes = 2000
)

// Builder assembles generation requests from task payloads.
type Builder struct {
	locale Locale
}

// NewBuilder creates a Builder for locale. An empty locale selects LocaleRU.
func NewBuilder(locale Locale) (*Builder, error) {
	if locale == "" {
		locale = LocaleRU
	}
	if _, err := ParseLocale(string(locale)); err != nil {
		return nil, err
	}
	return &Builder{locale: locale}, nil
}

// Locale returns the builder's locale.
func (b *Builder) Locale() Locale {
	return b.locale
}

// Build produces the generation request for taskType and payload.
// Unknown task types and malformed payload items wrap domain.ErrValidation.
func (b *Builder) Build(taskType domain.TaskType, payload []json.RawMessage) (generation.Request, error) {
	tmpl, ok := templates[b.locale][taskType]
	if !ok {
		return generation.Request{}, fmt.Errorf("%w: %w: %q", domain.ErrValidation, domain.ErrUnknownTaskType, taskType)
	}

	switch taskType {
	case domain.TaskTypePhoto:
		return buildPhoto(tmpl, payload)
	case domain.TaskTypeReviews:
		return buildReviews(tmpl, payload)
	default:
		return buildText(tmpl, payload)
	}
}

// Build produces a request with the default locale.
func Build(taskType domain.TaskType, payload []json.RawMessage) (generation.Request, error) {
	return (&Builder{locale: LocaleRU}).Build(taskType, payload)
}

func buildPhoto(tmpl template, payload []json.RawMessage) (generation.Request, error) {
	if len(payload) > MaxPhotoImages {
		payload = payload[:MaxPhotoImages]
	}

	parts := make([]generation.Part, 0, len(payload)+1)
	parts = append(parts, generation.TextPart(tmpl.instruction))
	for i, item := range payload {
		ref, err := decodeString(item)
		if err != nil {
			return generation.Request{}, fmt.Errorf("%w: photo payload item %d: %w", domain.ErrValidation, i, err)
		}
		parts = append(parts, generation.ImagePart(ref))
	}

	return generation.NewRequest(tmpl.persona, parts...), nil
}

func buildReviews(tmpl template, payload []json.RawMessage) (generation.Request, error) {
	merged := make([]string, 0, len(payload))
	for i, item := range payload {
		group, err := decodeGroup(item)
		if err != nil {
			return generation.Request{}, fmt.Errorf("%w: reviews payload item %d: %w", domain.ErrValidation, i, err)
		}
		merged = append(merged, strings.Join(group, " "))
	}

	if len(merged) > MaxReviewGroups {
		merged = merged[:MaxReviewGroups]
	}
	for i := range merged {
		merged[i] = truncateRunes(merged[i], MaxReviewRunes)
	}

	text := appendLabelled(tmpl, merged)
	return generation.NewRequest(tmpl.persona, generation.TextPart(text)), nil
}

func buildText(tmpl template, payload []json.RawMessage) (generation.Request, error) {
	items := make([]string, 0, len(payload))
	for i, item := range payload {
		s, err := decodeString(item)
		if err != nil {
			return generation.Request{}, fmt.Errorf("%w: text payload item %d: %w", domain.ErrValidation, i, err)
		}
		items = append(items, s)
	}

	text := appendLabelled(tmpl, items)
	return generation.NewRequest(tmpl.persona, generation.TextPart(text)), nil
}

// appendLabelled appends "\n<label>:\n<item>" to the instruction for each item.
func appendLabelled(tmpl template, items []string) string {
	var sb strings.Builder
	sb.WriteString(tmpl.instruction)
	for i, item := range items {
		label := tmpl.competitorLabel
		if i == 0 {
			label = tmpl.ownLabel
		}
		sb.WriteString("\n")
		sb.WriteString(label)
		sb.WriteString(":\n")
		sb.WriteString(item)
	}
	return sb.String()
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected a string: %w", err)
	}
	return s, nil
}

// decodeGroup accepts a list of strings or a bare string.
func decodeGroup(raw json.RawMessage) ([]string, error) {
	var group []string
	if err := json.Unmarshal(raw, &group); err == nil {
		return group, nil
	}
	s, err := decodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("expected a list of strings or a string: %w", err)
	}
	return []string{s}, nil
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
