package services

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentFilter screens the text of a report before any external call is
// made. Implementations are pure.
type ContentFilter interface {
	Screen(title, description string) error
}

var potholeKeywords = []string{
	"pothole",
	"road crack",
	"damaged road",
	"hole in road",
	"broken road",
	"road damage",
}

// KeywordFilter requires both title and description to mention at least one
// keyword.
type KeywordFilter struct {
	keywords []string
}

func NewPotholeKeywordFilter() *KeywordFilter {
	return &KeywordFilter{keywords: potholeKeywords}
}

func (f *KeywordFilter) Screen(title, description string) error {
	if !f.mentions(title) || !f.mentions(description) {
		return withMessage(ErrOffTopicOrAbusive, "Title and description must be about a pothole or road damage")
	}
	return nil
}

func (f *KeywordFilter) mentions(text string) bool {
	text = strings.ToLower(text)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

var defaultLexicon = []string{
	"fuck", "shit", "bitch", "bastard", "asshole", "dick", "cunt",
	"slut", "whore", "idiot", "stupid", "moron", "retard",
}

// ProfanityFilter rejects text containing a lexicon word on word boundaries,
// so "Scunthorpe" style substrings pass.
type ProfanityFilter struct {
	re *regexp.Regexp
}

func NewProfanityFilter(words ...string) *ProfanityFilter {
	if len(words) == 0 {
		words = defaultLexicon
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return &ProfanityFilter{re: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

func (f *ProfanityFilter) Screen(title, description string) error {
	if f.re.MatchString(title) || f.re.MatchString(description) {
		return withMessage(ErrOffTopicOrAbusive, "Please keep the report free of offensive language")
	}
	return nil
}

// Sanitizer strips markup from user supplied text.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes every tag and returns plain, trimmed text. Entities are
// decoded before stripping so encoded markup cannot come back as tags.
func (s *Sanitizer) Clean(text string) string {
	for i := 0; i < maxEntityDepth; i++ {
		decoded := html.UnescapeString(text)
		if decoded == text {
			break
		}
		text = decoded
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

const maxEntityDepth = 4
