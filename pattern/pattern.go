// Package pattern compiles dot-segmented action-name patterns.
//
// "*" stands for one or more characters other than '.', so it never crosses
// a segment boundary. "**" stands for one or more characters of any kind.
// Every other character is literal and a pattern must match the whole name.
//
//	m := pattern.Compile("math.*")
//	m.Test("math.add")     // true
//	m.Test("math.add.xyz") // false
package pattern

import (
	"regexp"
	"strings"
)

const (
	anyDepth   = `.+`
	oneSegment = `[^.]+`
)

// Matcher is a compiled pattern. It is immutable and safe for concurrent use.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// Compile builds a Matcher for p. It never fails: characters without a
// wildcard meaning are matched literally.
func Compile(p string) *Matcher {
	var expr string
	switch p {
	case "**":
		expr = `^(?s)` + anyDepth + `$`
	case "*":
		expr = `^` + oneSegment + `$`
	default:
		expr = translate(p)
	}
	return &Matcher{pattern: p, re: regexp.MustCompile(expr)}
}

func translate(p string) string {
	var b strings.Builder
	b.WriteString(`^(?s)`)
	for i, part := range strings.Split(p, "**") {
		if i > 0 {
			b.WriteString(anyDepth)
		}
		for j, lit := range strings.Split(part, "*") {
			if j > 0 {
				b.WriteString(oneSegment)
			}
			b.WriteString(regexp.QuoteMeta(lit))
		}
	}
	b.WriteString(`$`)
	return b.String()
}

// Test reports whether name matches the pattern.
func (m *Matcher) Test(name string) bool {
	return m.re.MatchString(name)
}

func (m *Matcher) String() string {
	return m.pattern
}

// Match compiles p and tests name against it.
func Match(p, name string) bool {
	return Compile(p).Test(name)
}
