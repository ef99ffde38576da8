// Package markup converts chat-service markdown into the game's inline
// markup tags.
package markup

import "regexp"

// substitution is one step of the translation chain. Each pattern is applied
// to the entire current text before the next is tried, so earlier steps feed
// later ones.
type substitution struct {
	pattern *regexp.Regexp
	repl    string
}

// The patterns are greedy within a line and can over-match across multiple
// delimited spans ("**a** x **b**" collapses into a single bold span). This
// matches the relay output users have seen historically; see the quirk tests
// before changing anything here.
var substitutions = []substitution{
	{regexp.MustCompile(`<:br_([A-Za-z_]+):\d+>`), "<emoji>$1</>"},
	{regexp.MustCompile(`<@!(\d+)>`), `<link="https://discord.com/users/$1">@$1</>`},
	{regexp.MustCompile("`(.+)`"), "<code>$1</>"},
	{regexp.MustCompile(`\*\*(.+)\*\*`), "<b>$1</>"},
	{regexp.MustCompile(`\*(.+)\*`), "<i>$1</>"},
	{regexp.MustCompile(`__(.+)__`), "<u>$1</>"},
	{regexp.MustCompile(`_(.+)_`), "<i>$1</>"},
}

// ToGameMarkup translates markdown-formatted chat text into game markup.
func ToGameMarkup(s string) string {
	for _, sub := range substitutions {
		s = sub.pattern.ReplaceAllString(s, sub.repl)
	}
	return s
}
