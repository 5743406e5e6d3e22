// Package diagnosis suggests homeopathic remedies for free-text symptoms by
// keyword matching against a fixed remedy table.
package diagnosis

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/jwalitptl/care-portal/internal/model"
)

// MaxResults is the number of suggestions returned
const MaxResults = 5

// ErrNoSymptoms is returned when no usable symptom text is given
var ErrNoSymptoms = errors.New("at least one symptom is required")

type Service struct {
	remedies []model.Remedy
	delay    time.Duration
}

// NewService uses the built-in remedy table. delay is waited before every
// answer.
func NewService(delay time.Duration) *Service {
	return NewServiceWithRemedies(Remedies(), delay)
}

func NewServiceWithRemedies(remedies []model.Remedy, delay time.Duration) *Service {
	return &Service{remedies: remedies, delay: delay}
}

// Diagnose ranks remedies by matched keywords. Ties are broken by confidence
// and then by name. Remedies with no match are left out.
func (s *Service) Diagnose(ctx context.Context, symptoms []string) ([]model.DiagnosisResult, error) {
	tokens := tokenize(symptoms)
	if len(tokens) == 0 {
		return nil, ErrNoSymptoms
	}

	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	results := make([]model.DiagnosisResult, 0, len(s.remedies))
	for _, r := range s.remedies {
		var matched []string
		for _, kw := range r.Keywords {
			if keywordMatches(kw, tokens) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		results = append(results, model.DiagnosisResult{
			Remedy:      r.Name,
			Description: r.Description,
			Potency:     r.Potency,
			Score:       len(matched),
			Confidence:  round2(float64(len(matched)) / float64(len(r.Keywords))),
			Matched:     matched,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Remedy < b.Remedy
	})

	if len(results) > MaxResults {
		results = results[:MaxResults]
	}
	return results, nil
}

// keywordMatches reports whether every word of kw is among tokens.
func keywordMatches(kw string, tokens map[string]struct{}) bool {
	words := split(kw)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if _, ok := tokens[w]; !ok {
			return false
		}
	}
	return true
}

func tokenize(symptoms []string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, s := range symptoms {
		for _, w := range split(s) {
			tokens[w] = struct{}{}
		}
	}
	return tokens
}

func split(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
