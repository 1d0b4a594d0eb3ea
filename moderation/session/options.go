package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Report reasons presented to the user, in menu order.
var ReportReasons = []string{
	"hate speech",
	"spam",
	"violent and/or hateful entities",
	"violent speech",
	"other",
}

// Sub-classifications collected when the reason is hate speech.
var HateSpeechTypes = []string{
	"hateful references",
	"slurs",
	"hateful symbols/signs",
	"discrimination",
	"discriminatory stereotypes",
}

// Who the reported content is directed at.
var TargetScopes = []string{
	"targets me",
	"targets someone else",
	"targets a group of people",
}

// How the reported behavior fits a pattern.
var IncidentContexts = []string{
	"first incident",
	"repeated behavior",
	"part of ongoing harassment",
}

// Matches user input against an enumerated option list, accepting either a
// 1-based ordinal or an exact case-insensitive text match. Anything else is
// rejected; choices are never silently defaulted.
func matchOption(input string, options []string) (string, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if n, err := strconv.Atoi(trimmed); err == nil {
		if n >= 1 && n <= len(options) {
			return options[n-1], true
		}
		return "", false
	}
	for _, opt := range options {
		if trimmed == opt {
			return opt, true
		}
	}
	return "", false
}

// Renders an option list as numbered menu lines.
func menuLines(options []string) []string {
	out := make([]string, len(options))
	for i, opt := range options {
		out[i] = fmt.Sprintf("%d. %s", i+1, opt)
	}
	return out
}
