// Package logging wires up zerolog with a sanitizing hook that adds a
// redacted copy of any log message containing API keys, tokens, or other
// secret-like text, adapted from the teacher's internal/secrets Redactor.
// The original message is still written unchanged alongside that copy.
package logging

import (
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

var defaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(apikey|api_key|apiKey)=([^&\s"']+)`),
	regexp.MustCompile(`(?i)(token|secret|password)"?\s*[:=]\s*"?([^&\s"',}]+)`),
	regexp.MustCompile(`(?i)(bearer|basic)\s+([a-z0-9\-_.=]+)`),
	regexp.MustCompile(`\b[a-f0-9]{32,}\b`),
}

const replacement = "***REDACTED***"

// SanitizingHook is a zerolog.Hook that checks the message of every event
// for patterns that look like secrets and, on a match, adds a masked copy of
// the message as the "msg_sanitized" field. It does not change the message
// field itself, and it does not inspect any other field.
type SanitizingHook struct {
	patterns    []*regexp.Regexp
	replacement string
}

// NewSanitizingHook builds a hook with the default secret patterns.
func NewSanitizingHook() *SanitizingHook {
	return &SanitizingHook{patterns: defaultPatterns, replacement: replacement}
}

// Run implements zerolog.Hook. zerolog calls hooks before the message is
// written, but it does not let a hook rewrite the message text directly; when
// a pattern fires, Run adds the sanitized text as an extra "msg_sanitized"
// field, and the raw message is still written in the "message" field.
func (h *SanitizingHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	sanitized := h.Sanitize(msg)
	if sanitized != msg {
		e.Str("msg_sanitized", sanitized)
	}
}

// Sanitize applies every pattern to s and returns the redacted copy.
func (h *SanitizingHook) Sanitize(s string) string {
	out := s
	for _, p := range h.patterns {
		out = p.ReplaceAllStringFunc(out, func(match string) string {
			sub := p.FindStringSubmatch(match)
			if len(sub) >= 2 {
				return sub[1] + "=" + h.replacement
			}
			return h.replacement
		})
	}
	return out
}

// AddPattern registers an additional secret pattern.
func (h *SanitizingHook) AddPattern(p *regexp.Regexp) {
	h.patterns = append(h.patterns, p)
}

// Setup configures the global zerolog logger the way the teacher's
// cmd/cryptorun/main.go does: RFC3339 timestamps, a console writer on stderr
// for interactive sessions, and the sanitizing hook always attached.
func Setup(level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var writer = os.Stderr
	logCtx := zerolog.New(writer).With().Timestamp()

	logger := logCtx.Logger().Hook(NewSanitizingHook())

	if pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
