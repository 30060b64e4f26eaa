// Package contactfilter screens contact-form submissions for profanity,
// common spam phrases and links.
package contactfilter

import (
	"regexp"
	"strings"
)

// Reason explains why a submission was rejected.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonProfanity Reason = "profanity"
	ReasonLink      Reason = "link"
)

var profanity = []string{
	"arse", "arsehole", "ass", "asshole", "bastard", "bitch", "bollocks",
	"bullshit", "cock", "crap", "cunt", "damn", "dick", "dickhead", "dildo",
	"fag", "faggot", "fuck", "fucked", "fucker", "fucking", "goddamn",
	"jackass", "jerkoff", "motherfucker", "nigga", "nigger", "piss", "prick",
	"pussy", "retard", "shit", "shitty", "slut", "twat", "wanker", "whore",
}

var spam = []string{
	"bitcoin", "crypto", "viagra", "loan", "casino",
	"forex", "porn", "betting", "telegram", "whatsapp",
	"click here", "earn money", "win big", "cheap pills",
}

var linkPattern = regexp.MustCompile(`(?i)(http://|https://|www\.)`)

// Filter matches whole words and phrases case-insensitively.
type Filter struct {
	pattern *regexp.Regexp
}

// New builds a filter from the built-in lists plus any extra terms.
func New(extra ...string) *Filter {
	terms := make([]string, 0, len(profanity)+len(spam)+len(extra))
	terms = append(terms, profanity...)
	terms = append(terms, spam...)
	for _, t := range extra {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, t)
		}
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		// Phrases match across any run of whitespace.
		parts := strings.Fields(strings.ToLower(t))
		for j, p := range parts {
			parts[j] = regexp.QuoteMeta(p)
		}
		quoted[i] = strings.Join(parts, `\s+`)
	}
	return &Filter{pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)}
}

// IsProfane reports whether s contains a listed word or phrase.
func (f *Filter) IsProfane(s string) bool {
	return f.pattern.MatchString(s)
}

// HasLink reports whether s contains something that looks like a URL.
func HasLink(s string) bool {
	return linkPattern.MatchString(s)
}

// Check screens a submission's name and message. Profanity is checked
// before links.
func (f *Filter) Check(name, message string) Reason {
	if f.IsProfane(message) || f.IsProfane(name) {
		return ReasonProfanity
	}
	if HasLink(message) {
		return ReasonLink
	}
	return ReasonNone
}
