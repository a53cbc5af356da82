package redact

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const Redacted = "[REDACTED_SECRET]"

var (
	privateKey   = regexp.MustCompile(`-----BEGIN ([A-Z]+ )?PRIVATE KEY-----[\s\S]+?-----END ([A-Z]+ )?PRIVATE KEY-----`)
	slackToken   = regexp.MustCompile(`xox[abposr]-[A-Za-z0-9-]{10,}`)
	ghToken      = regexp.MustCompile(`(gh[pousr]_[A-Za-z0-9]{30,}|github_pat_[A-Za-z0-9_]{40,})`)
	awsAccessKey = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	jwtToken     = regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`)
	bearer       = regexp.MustCompile(`(?i)(authorization:\s*(bearer|basic|token)\s+)[^\s"']+`)
	// DSNs keep their host so the report still says which project it targets.
	sentryDSN    = regexp.MustCompile(`(https?://)[0-9a-f]{32}(:[0-9a-f]{32})?@`)
	assignment   = regexp.MustCompile(`(?i)((token|secret|password|api[_-]?key|access[_-]?key)["'\s]*[:=]\s*["']?)[A-Za-z0-9/+=_\-]{12,}`)
	urlParams    = regexp.MustCompile(`([?&](token|key|secret|sig|signature|access_token|auth)=)[^&\s]+`)
	base64Like   = regexp.MustCompile(`[A-Za-z0-9+=_]{32,}`)
)

// Redact strips credentials from free text before it leaves the process.
func Redact(input string) string {
	if input == "" {
		return input
	}
	output := input
	output = privateKey.ReplaceAllString(output, Redacted)
	output = slackToken.ReplaceAllString(output, Redacted)
	output = ghToken.ReplaceAllString(output, Redacted)
	output = awsAccessKey.ReplaceAllString(output, Redacted)
	output = jwtToken.ReplaceAllString(output, Redacted)
	output = bearer.ReplaceAllString(output, "${1}"+Redacted)
	output = sentryDSN.ReplaceAllString(output, "${1}"+Redacted+"@")
	output = assignment.ReplaceAllString(output, "${1}"+Redacted)
	output = urlParams.ReplaceAllString(output, "${1}"+Redacted)
	output = base64Like.ReplaceAllStringFunc(output, func(match string) string {
		if mixedClasses(match) && entropy(match) >= 4.0 {
			return Redacted
		}
		return match
	})
	return strings.ReplaceAll(output, "\u0000", "")
}

// Optional applies Redact only when enabled.
func Optional(input string, enabled bool) string {
	if !enabled {
		return input
	}
	return Redact(input)
}

// mixedClasses reports whether s has letters and digits; long plain words and
// file paths are left alone.
func mixedClasses(s string) bool {
	var letter, digit bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return letter && digit
}

func entropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	for _, r := range s {
		counts[r]++
	}
	length := float64(len([]rune(s)))
	var ent float64
	for _, count := range counts {
		p := float64(count) / length
		ent -= p * math.Log2(p)
	}
	return ent
}
