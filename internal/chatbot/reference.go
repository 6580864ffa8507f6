package chatbot

import (
	"regexp"
	"strings"
)

// ReferenceExtractor infers which patient a free-text message is about. The
// chat UI has no structured selector, so this is heuristic by design; a
// richer NLU implementation can swap in without touching the assembler.
type ReferenceExtractor interface {
	Extract(message string) string
}

// keywordRe captures the phrase following a reference keyword in the
// supported languages ("sobre Juan Pérez", "about patient 1234", ...).
var keywordRe = regexp.MustCompile(`(?i)(?:de la paciente|del paciente|de la|del|de|sobre|about|paciente|patient|nombre|name)\s+([\wáéíóúüñÁÉÍÓÚÜÑ\s']+)`)

// trailingRe falls back to the last contiguous run of 3+ word characters.
var trailingRe = regexp.MustCompile(`([A-Za-z0-9áéíóúüñÁÉÍÓÚÜÑ']{3,})$`)

// RegexReferenceExtractor is the documented two-tier heuristic: keyworded
// phrase first, trailing word run second, empty string when neither matches.
type RegexReferenceExtractor struct{}

var _ ReferenceExtractor = (*RegexReferenceExtractor)(nil)

func NewRegexReferenceExtractor() *RegexReferenceExtractor {
	return &RegexReferenceExtractor{}
}

func (e *RegexReferenceExtractor) Extract(message string) string {
	if m := keywordRe.FindStringSubmatch(message); m != nil {
		if ref := strings.TrimSpace(m[1]); ref != "" {
			return ref
		}
	}
	if m := trailingRe.FindStringSubmatch(strings.TrimSpace(message)); m != nil {
		return m[1]
	}
	return ""
}
