// Package promocode extracts promo codes from campaign mails and
// classifies them by denomination.
package promocode

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gigacode/lib/clock"
)

// ErrNoCodes is returned when a mail that passed the label filter holds no code.
var ErrNoCodes = errors.New("no promo codes found")

const emphasisClose = "</strong>"

var (
	// 300MBXXXXXXXXX style 14 character codes, or U24H10TXXXXXXXXX (unlimited 24H, N uses)
	codePattern     = regexp.MustCompile(`[1-9][A-Z0-9]{13}|U24H[0-9]{1,2}T[A-Z0-9]{9}`)
	deadlinePattern = regexp.MustCompile(`(?:コードの入力期限|code input deadline)[\r\n]*([0-9]{4}/[0-9]{2}/[0-9]{2})`)
	usagePattern    = regexp.MustCompile(`(?:コードの利用回数|code usage count)[\r\n]*([0-9]{1,9})(?:回| ?times)`)
)

// Extraction is what a single mail yields.
type Extraction struct {
	Codes []string
	// ExpiresAt is zero when the mail declares no input deadline.
	ExpiresAt  time.Time
	UsageLimit int
}

type Parser struct {
	loc *time.Location
}

// NewParser returns a parser reading deadlines as dates in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// Parse reads codes from the HTML body and the deadline and usage limit
// from the plain text body.
func (p *Parser) Parse(body, plainBody string) (*Extraction, error) {
	codes := ExtractCodes(body)
	if len(codes) == 0 {
		return nil, ErrNoCodes
	}
	return &Extraction{
		Codes:      codes,
		ExpiresAt:  p.ExtractDeadline(plainBody),
		UsageLimit: ExtractUsageLimit(plainBody),
	}, nil
}

// ExtractCodes returns codes in order of appearance. A code counts only when
// a closing </strong> follows it on the same line; codes are rendered in
// bold in the campaign mails and nowhere else.
func ExtractCodes(body string) []string {
	var codes []string
	for _, loc := range codePattern.FindAllStringIndex(body, -1) {
		rest := body[loc[1]:]
		if end := strings.IndexFunc(rest, isLineBreak); end >= 0 {
			rest = rest[:end]
		}
		if strings.Contains(rest, emphasisClose) {
			codes = append(codes, body[loc[0]:loc[1]])
		}
	}
	return codes
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\u2028', '\u2029':
		return true
	}
	return false
}

// ExtractDeadline returns the first labelled deadline, zero time if none.
func (p *Parser) ExtractDeadline(plainBody string) time.Time {
	m := deadlinePattern.FindStringSubmatch(plainBody)
	if m == nil {
		return time.Time{}
	}
	t, err := clock.ParseDate(m[1], p.loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ExtractUsageLimit returns the labelled usage count, 1 when absent.
func ExtractUsageLimit(plainBody string) int {
	m := usagePattern.FindStringSubmatch(plainBody)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
