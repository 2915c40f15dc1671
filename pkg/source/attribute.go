package source

import "strings"

// OptInAttribute is the crate attribute that requests freestanding mode.
const OptInAttribute = "no_std"

const bom = "\ufeff"

type optInKind int

const (
	optInNone optInKind = iota
	optInUnconditional
	optInConditional
	optInUnsupported
)

type optIn struct {
	kind    optInKind
	feature string // optInConditional
	text    string // original attribute, optInUnsupported
}

// crateAttributes returns the inner attributes (#![...]) at the top of a
// Rust source file, without the surrounding #![ and ]. Comments, blank
// lines and a leading shebang are skipped; scanning stops at the first
// other token.
func crateAttributes(src string) []string {
	var attrs []string
	i := 0
	if strings.HasPrefix(src, "#!") && !strings.HasPrefix(src, "#![") {
		if nl := strings.IndexByte(src, '\n'); nl >= 0 {
			i = nl + 1
		} else {
			return nil
		}
	}
	for i < len(src) {
		switch {
		case isSpace(src[i]):
			i++
		case strings.HasPrefix(src[i:], bom):
			i += len(bom)
		case strings.HasPrefix(src[i:], "//"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				return attrs
			}
			i += nl + 1
		case strings.HasPrefix(src[i:], "/*"):
			end := skipBlockComment(src, i)
			if end < 0 {
				return attrs
			}
			i = end
		case strings.HasPrefix(src[i:], "#!["):
			end := matchBracket(src, i+2)
			if end < 0 {
				return attrs
			}
			attrs = append(attrs, src[i+3:end])
			i = end + 1
		default:
			return attrs
		}
	}
	return attrs
}

// skipBlockComment returns the index after the (possibly nested) block
// comment starting at i, or -1 if it is unterminated.
func skipBlockComment(src string, i int) int {
	depth := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "/*"):
			depth++
			i += 2
		case strings.HasPrefix(src[i:], "*/"):
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return -1
}

// matchBracket returns the index of the ']' closing the '[' at open,
// skipping string literals, or -1.
func matchBracket(src string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(src); i++ {
		c := src[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// classifyAttribute interprets one inner attribute body.
func classifyAttribute(attr string) optIn {
	compact := stripSpace(attr)
	if compact == OptInAttribute {
		return optIn{kind: optInUnconditional}
	}
	inner, ok := cutCall(compact, "cfg_attr")
	if !ok {
		return optIn{}
	}
	args := splitArgs(inner)
	if len(args) < 2 {
		return optIn{}
	}
	found := false
	for _, a := range args[1:] {
		if a == OptInAttribute {
			found = true
		}
	}
	if !found {
		return optIn{}
	}
	if feature, ok := notFeature(args[0]); ok {
		return optIn{kind: optInConditional, feature: feature}
	}
	return optIn{kind: optInUnsupported, text: "#![" + strings.TrimSpace(attr) + "]"}
}

// notFeature matches not(feature="F").
func notFeature(cond string) (string, bool) {
	inner, ok := cutCall(cond, "not")
	if !ok {
		return "", false
	}
	value, ok := strings.CutPrefix(inner, "feature=")
	if !ok || len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return "", false
	}
	name := value[1 : len(value)-1]
	if name == "" || strings.ContainsAny(name, `"`) {
		return "", false
	}
	return name, true
}

// cutCall returns the argument text of name(...) if s is exactly such a call.
func cutCall(s, name string) (string, bool) {
	rest, ok := strings.CutPrefix(s, name+"(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return "", false
	}
	return rest[:len(rest)-1], true
}

// splitArgs splits on commas at nesting depth zero, outside strings.
func splitArgs(s string) []string {
	var (
		args     []string
		depth    int
		inString bool
		start    int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, s[start:i])
				start = i + 1
			}
		}
	}
	if tail := s[start:]; tail != "" {
		args = append(args, tail)
	}
	return args
}

// stripSpace removes whitespace outside string literals.
func stripSpace(s string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		if isSpace(c) {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// fileOptIn combines the attributes of one file. An unconditional opt-in
// wins; several different conditional opt-ins are ambiguous.
func fileOptIn(attrs []string) optIn {
	var (
		result      optIn
		conditional []optIn
	)
	for _, a := range attrs {
		o := classifyAttribute(a)
		switch o.kind {
		case optInUnconditional:
			return o
		case optInConditional:
			conditional = append(conditional, o)
		case optInUnsupported:
			if result.kind == optInNone {
				result = o
			}
		}
	}
	switch {
	case len(conditional) == 1:
		return conditional[0]
	case len(conditional) > 1:
		for _, c := range conditional[1:] {
			if c.feature != conditional[0].feature {
				return optIn{kind: optInUnsupported, text: "several conditional no_std attributes"}
			}
		}
		return conditional[0]
	}
	return result
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func (k optInKind) String() string {
	switch k {
	case optInUnconditional:
		return "unconditional"
	case optInConditional:
		return "conditional"
	case optInUnsupported:
		return "unsupported"
	}
	return "none"
}
