package template

import "strings"

// Formatter substitutes every literal occurrence of "$<Key>" in a string
// with Value.
type Formatter struct {
	Key   string
	Value string
}

// Apply performs the substitution on s.
func (f Formatter) Apply(s string) string {
	return strings.ReplaceAll(s, "$"+f.Key, f.Value)
}

// FormatterSet is an ordered list of formatters. Order matters: placeholders
// inside a formatter's value are resolved by formatters appearing earlier in
// the set, and when two formatters share a key the later one wins. There is
// no escaping mechanism; a value containing "$key"-shaped text is subject to
// further substitution in the same render pass.
type FormatterSet []Formatter

// Render substitutes every formatter in fs into the template. Formatters are
// applied last to first, so text introduced by a later formatter's value is
// still rewritten by earlier ones.
func Render(tmpl string, fs FormatterSet) string {
	out := tmpl
	for i := len(fs) - 1; i >= 0; i-- {
		out = fs[i].Apply(out)
	}
	return out
}

// Compose concatenates formatter sets, preserving order. Duplicate keys are
// not deduplicated; the last matching key's replacement wins for the
// placeholders it touches.
func Compose(sets ...FormatterSet) FormatterSet {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make(FormatterSet, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
