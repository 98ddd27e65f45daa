package theme

import (
	"regexp"
	"strings"
)

var (
	// declarationRegex matches a declaration whose property is a custom
	// property or mentions color or background.
	declarationRegex = regexp.MustCompile(`(?s)^(\s*)(--[\w-]+|[\w-]*(?i:color|background)[\w-]*)(\s*:)(.*?)(\s*)$`)

	importantRegex = regexp.MustCompile(`(?i)!\s*important$`)
)

// Importantize appends !important to every color, background and custom
// property declaration that doesn't already carry it.
func Importantize(css string) string {
	var b strings.Builder
	b.Grow(len(css) + len(css)/4)

	start := 0
	depth := 0     // open parentheses
	var quote byte // enclosing string delimiter, if any
	for i := 0; i < len(css); i++ {
		c := css[i]
		switch {
		case c == '\\':
			i++
			continue
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '/' && i+1 < len(css) && css[i+1] == '*':
			end := strings.Index(css[i+2:], "*/")
			if end < 0 {
				i = len(css)
			} else {
				i += end + 3
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '{':
			if depth > 0 {
				continue
			}
			// Selector or at-rule prelude
			b.WriteString(css[start : i+1])
			start = i + 1
		case ';', '}':
			if depth > 0 && c == ';' {
				continue
			}
			depth = 0
			b.WriteString(importantizeDeclaration(css[start:i]))
			b.WriteByte(c)
			start = i + 1
		}
	}
	// Unterminated trailing text is left alone.
	b.WriteString(css[start:])
	return b.String()
}

func importantizeDeclaration(decl string) string {
	m := declarationRegex.FindStringSubmatch(decl)
	if m == nil {
		return decl
	}
	value := strings.TrimSpace(m[4])
	if value == "" || importantRegex.MatchString(value) {
		return decl
	}
	return m[1] + m[2] + m[3] + m[4] + " !important" + m[5]
}
