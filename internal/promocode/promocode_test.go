package promocode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("JST", 9*3600)

func TestExtractCodesRequiresEmphasis(t *testing.T) {
	body := `<p>Your code</p><p><strong>300MBABCDEFGHI</strong></p>
<p>Also usable: <b>1GBXYZ12345678</b></p>`
	assert.Equal(t, []string{"300MBABCDEFGHI"}, ExtractCodes(body))
}

func TestExtractCodesClosingTagOnLaterLine(t *testing.T) {
	body := "<strong>\n3GBQWERTY12345\n20GBASDFGHJKL1\n</strong>"
	assert.Empty(t, ExtractCodes(body))

	body = "<strong>3GBQWERTY12345\r\n20GBASDFGHJKL1</strong>"
	assert.Equal(t, []string{"20GBASDFGHJKL1"}, ExtractCodes(body))
}

func TestExtractCodesIgnoresLinkTokens(t *testing.T) {
	body := "<a href=\"https://x/?t=1ABCDEFGHIJKLM\">link</a>\n<p>your code</p>\n<strong>300MBABCDEFGHI</strong>"
	assert.Equal(t, []string{"300MBABCDEFGHI"}, ExtractCodes(body))
}

func TestExtractCodesSeveralOnOneLine(t *testing.T) {
	body := "<p><strong>300MBABCDEFGHI</strong> and <strong>1GBXYZ12345678</strong></p>"
	assert.Equal(t, []string{"300MBABCDEFGHI", "1GBXYZ12345678"}, ExtractCodes(body))
}

func TestExtractCodesUnlimited(t *testing.T) {
	body := "<strong>U24H10TABCDEFGH1</strong>"
	assert.Equal(t, []string{"U24H10TABCDEFGH1"}, ExtractCodes(body))
}

func TestExtractCodesNoEmphasis(t *testing.T) {
	assert.Empty(t, ExtractCodes("300MBABCDEFGHI"))
	assert.Empty(t, ExtractCodes("</strong> 300MBABCDEFGHI"))
	assert.Empty(t, ExtractCodes("<strong>lowercase300mbabc</strong>"))
}

func TestExtractDeadline(t *testing.T) {
	p := NewParser(jst)
	plain := "ご案内\nコードの入力期限\n\n2024/06/30 23:59まで\n他の日付 2025/01/01"
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, jst), p.ExtractDeadline(plain))

	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, jst),
		p.ExtractDeadline("code input deadline\r\n2025/02/01"))

	assert.True(t, p.ExtractDeadline("2024/06/30 without the label").IsZero())
	assert.True(t, p.ExtractDeadline("コードの入力期限\n2024/13/45").IsZero())
}

func TestExtractUsageLimit(t *testing.T) {
	assert.Equal(t, 1, ExtractUsageLimit("no limit here"))
	assert.Equal(t, 3, ExtractUsageLimit("コードの利用回数\n3回"))
	assert.Equal(t, 1, ExtractUsageLimit("code usage count 10 times"))
	assert.Equal(t, 2, ExtractUsageLimit("code usage count\n2 times"))
	assert.Equal(t, 1, ExtractUsageLimit("コードの利用回数\n5本"))
}

func TestParse(t *testing.T) {
	p := NewParser(jst)
	ex, err := p.Parse(
		"<strong>300MBABCDEFGHI</strong>",
		"コードの入力期限\n2024/06/30\nコードの利用回数\n2回",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"300MBABCDEFGHI"}, ex.Codes)
	assert.Equal(t, 2, ex.UsageLimit)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, jst), ex.ExpiresAt)
}

func TestParseNoCodes(t *testing.T) {
	_, err := NewParser(jst).Parse("<p>hello</p>", "hello")
	assert.ErrorIs(t, err, ErrNoCodes)
}

func TestClassify(t *testing.T) {
	cases := map[string]string{
		"300MBABCDEFGHI":   "300MB/3Days",
		"U24H10TABCDEFGH1": "Unlimited/24H",
		"1GBXYZ12345678":   "1GB/7Days",
		"3GBQWERTY12345":   "3GB/30Days",
		"20GBASDFGHJKL1":   "20GB/30Days",
		"ZZZ":              NeedsReview,
		"":                 NeedsReview,
		"7GBABCDEFGHIJK":   NeedsReview,
	}
	for code, want := range cases {
		assert.Equal(t, want, Classify(code), code)
	}
}
