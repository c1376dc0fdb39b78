package scrub

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	DefaultReplacement = "[redacted]"

	// DefaultEmailPattern matches anything shaped like an address.
	DefaultEmailPattern = `(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`
	// DefaultPhonePattern matches whole digit runs joined by dashes or dots,
	// optionally led by a country code or a parenthesised area code. Plain
	// spaces never join two runs, so lists of numbers stay separate.
	DefaultPhonePattern = `(?:\+\d{1,3}[\s.\-]?|\+)?(?:\(\d{1,4}\)\s?|\b)\d{2,}(?:[.\-]\d{2,})*\b`

	// Matches with fewer digits than MinPhoneDigits or more than
	// MaxPhoneDigits (the E.164 limit) are kept.
	MinPhoneDigits = 7
	MaxPhoneDigits = 15
)

// dateShape matches dd.mm.yyyy, dd/mm/yy and yyyy-mm-dd style dates.
var dateShape = regexp.MustCompile(`^(?:\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}|\d{4}[./\-]\d{1,2}[./\-]\d{1,2})$`)

// Policy configures redaction. Extra patterns are redacted unconditionally.
type Policy struct {
	Replacement  string
	EmailPattern string
	PhonePattern string
	Extra        []string
}

// DefaultPolicy is the conservative phone + email policy.
func DefaultPolicy() Policy {
	return Policy{
		Replacement:  DefaultReplacement,
		EmailPattern: DefaultEmailPattern,
		PhonePattern: DefaultPhonePattern,
	}
}

// Scrubber removes personal identifiers from free text.
type Scrubber struct {
	replacement string
	email       *regexp.Regexp
	phone       *regexp.Regexp
	extra       []*regexp.Regexp
}

// New compiles p. Empty fields fall back to the defaults.
func New(p Policy) (*Scrubber, error) {
	if p.Replacement == "" {
		p.Replacement = DefaultReplacement
	}
	if p.EmailPattern == "" {
		p.EmailPattern = DefaultEmailPattern
	}
	if p.PhonePattern == "" {
		p.PhonePattern = DefaultPhonePattern
	}

	email, err := regexp.Compile(p.EmailPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid email pattern: %w", err)
	}
	phone, err := regexp.Compile(p.PhonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}

	s := &Scrubber{replacement: p.Replacement, email: email, phone: phone}
	for _, expr := range p.Extra {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid scrub pattern %q: %w", expr, err)
		}
		s.extra = append(s.extra, re)
	}
	return s, nil
}

// Default returns a Scrubber with DefaultPolicy.
func Default() *Scrubber {
	s, _ := New(DefaultPolicy())
	return s
}

// Scrub redacts the known identifiers (matched case-insensitively) and then
// anything matching the policy patterns. The rest of text is kept as is.
func (s *Scrubber) Scrub(text string, known ...string) string {
	out := text
	for _, k := range known {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = regexp.MustCompile(`(?i)`+regexp.QuoteMeta(k)).ReplaceAllLiteralString(out, s.replacement)
		if digits := digitsOnly(k); len(digits) >= MinPhoneDigits && digits != k {
			out = strings.ReplaceAll(out, digits, s.replacement)
		}
	}

	out = s.email.ReplaceAllLiteralString(out, s.replacement)
	out = s.phone.ReplaceAllStringFunc(out, func(m string) string {
		if !looksLikePhone(m) {
			return m
		}
		return s.replacement
	})
	for _, re := range s.extra {
		out = re.ReplaceAllLiteralString(out, s.replacement)
	}
	return out
}

func looksLikePhone(m string) bool {
	n := len(digitsOnly(m))
	if n < MinPhoneDigits || n > MaxPhoneDigits {
		return false
	}
	return !dateShape.MatchString(strings.TrimSpace(m))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
