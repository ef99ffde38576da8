package roles

import "strings"

// DefaultRole is the sentinel priority entry used when no role matches.
const DefaultRole = "default"

// Priority maps a role name to the tag displayed for it.
type Priority struct {
	Role string
	Tag  string
}

// Priorities is an ordered role priority list, loaded once from
// configuration and immutable at runtime.
type Priorities []Priority

// Parse builds a priority list from "name:tag" config entries. The tag may
// itself contain colons; only the first separates. Entries without a colon
// are skipped.
func Parse(entries []string) Priorities {
	out := make(Priorities, 0, len(entries))
	for _, entry := range entries {
		role, tag, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		out = append(out, Priority{Role: role, Tag: tag})
	}
	return out
}

// Resolve returns the tag of the first role in rs (in the caller's supplied
// order) that has an entry in the priority list. If none match, the
// "default" entry's tag is returned if present, else the empty string.
func Resolve(rs []string, priorities Priorities) string {
	for _, role := range rs {
		for _, p := range priorities {
			if p.Role == role {
				return p.Tag
			}
		}
	}
	for _, p := range priorities {
		if p.Role == DefaultRole {
			return p.Tag
		}
	}
	return ""
}
