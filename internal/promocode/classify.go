package promocode

import "strings"

const (
	// NeedsReview is the denomination of a code no prefix rule recognises.
	NeedsReview = "!!!!NEEDS REVIEW!!!!"
	// Unlimited is the part of the 24H unlimited denomination the bot and
	// the presentation rules look for.
	Unlimited = "Unlimited"
)

type prefixRule struct {
	prefix string
	label  string
}

// checked in order, first match wins
var prefixRules = []prefixRule{
	{"300MB", "300MB/3Days"},
	{"U24", Unlimited + "/24H"},
	{"1GB", "1GB/7Days"},
	{"3GB", "3GB/30Days"},
	{"20GB", "20GB/30Days"},
}

// Classify maps a code to its denomination label by prefix.
func Classify(code string) string {
	for _, rule := range prefixRules {
		if strings.HasPrefix(code, rule.prefix) {
			return rule.label
		}
	}
	return NeedsReview
}
