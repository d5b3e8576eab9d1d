// Package normalize implements the archive-number normalization rules used
// by the registration staff: zero-padding object numbers so they sort and
// match correctly in the SARA collection system.
package normalize

import (
	"regexp"
	"strings"
)

var (
	digitRe = regexp.MustCompile(`\d`)
	splitRe = regexp.MustCompile(`[,\s;]+`)
	sepRe   = regexp.MustCompile(`[xX]`)
)

// padDigits left-pads with zeros until the count of digit characters reaches
// target. Letters are kept but do not count toward the digit total.
func padDigits(part string, target int) string {
	count := len(digitRe.FindAllString(part, -1))
	if count >= target {
		return part
	}
	return strings.Repeat("0", target-count) + part
}

// Token applies the normalization rules to one archive number:
//
//   - x/X rule: "4x30" becomes "0004x0030" — four digits on each side of the
//     separator, applied only when no colon is present;
//   - colon rule: "17:4" becomes "00017:4" — five digits before the colon.
//
// Tokens matching neither rule are returned unchanged.
func Token(token string) string {
	s := strings.TrimSpace(token)
	if s == "" {
		return s
	}

	if strings.ContainsAny(s, "xX") && !strings.Contains(s, ":") {
		if loc := sepRe.FindStringIndex(s); loc != nil {
			left, right := s[:loc[0]], s[loc[1]:]
			sep := s[loc[0]:loc[1]]
			return padDigits(left, 4) + sep + padDigits(right, 4)
		}
	}

	if i := strings.Index(s, ":"); i >= 0 {
		return padDigits(s[:i], 5) + ":" + s[i+1:]
	}

	return s
}

// Split breaks free-form input on commas, semicolons and whitespace,
// dropping empty tokens.
func Split(text string) []string {
	var out []string
	for _, t := range splitRe.Split(strings.TrimSpace(text), -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Tokens normalizes every token in the input text.
func Tokens(text string) []string {
	raw := Split(text)
	out := make([]string, len(raw))
	for i, t := range raw {
		out[i] = Token(t)
	}
	return out
}

// SARAQuery builds the object-number search string staff paste into SARA.
// Empty when no tokens normalize to anything.
func SARAQuery(normalized []string) string {
	var clean []string
	for _, n := range normalized {
		if strings.TrimSpace(n) != "" {
			clean = append(clean, n)
		}
	}
	if len(clean) == 0 {
		return ""
	}
	return "objektnummer = " + strings.Join(clean, ", ")
}
