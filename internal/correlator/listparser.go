package correlator

import "strings"

// ParseList implements the lenient List Parser of spec.md §4.5: one
// line at a time, a leading "[...]" descriptor is recognized, and a
// "(" within the descriptor's suffix marks the start of trailing
// annotation (e.g. a size). This is intentionally tolerant of
// cosmetic changes in the server's text index, not a strict grammar.
func ParseList(text string) []string {
	var pages []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		closeIdx := strings.Index(line, "]")
		if closeIdx < 0 {
			continue
		}
		descriptor := line[closeIdx+1:]

		name := descriptor
		if parenIdx := strings.Index(descriptor, "("); parenIdx >= 0 {
			name = descriptor[:parenIdx]
		}
		name = strings.TrimSpace(stripLeadingIcon(name))
		if name != "" {
			pages = append(pages, name)
		}
	}
	return pages
}

// stripLeadingIcon drops every leading non-ASCII rune up to the first
// ASCII rune, then trims spaces, the way server listings prefix each
// entry with an icon ("📄 about.html") ahead of the name. A string with
// no ASCII rune at all is returned unchanged.
func stripLeadingIcon(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r > 127 {
			continue
		}
		return strings.TrimSpace(s[i:])
	}
	return s
}
