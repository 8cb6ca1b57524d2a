// Package format escapes user supplied text for Telegram parse modes.
package format

import (
	"fmt"
	"strings"
)

// Version selects the Telegram Markdown dialect.
type Version int

const (
	MarkdownV1 Version = 1
	MarkdownV2 Version = 2
)

var escapers = map[Version]*strings.Replacer{
	MarkdownV1: escaper("_*`["),
	MarkdownV2: escaper("\\_*[]()~`>#+-=|{}.!"),
}

func escaper(specials string) *strings.Replacer {
	pairs := make([]string, 0, 2*len(specials))
	for _, r := range specials {
		pairs = append(pairs, string(r), `\`+string(r))
	}
	return strings.NewReplacer(pairs...)
}

// Escape makes text safe to embed in a message sent with the given
// Markdown version.
func Escape(text string, v Version) (string, error) {
	r, ok := escapers[v]
	if !ok {
		return "", fmt.Errorf("unsupported markdown version: %d", v)
	}
	return r.Replace(text), nil
}

// EscapeV1 is Escape for the legacy Markdown mode the bot replies in.
func EscapeV1(text string) string {
	return escapers[MarkdownV1].Replace(text)
}
