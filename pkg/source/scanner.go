package source

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/pykeio/cargo-no-std/pkg/errors"
	"github.com/pykeio/cargo-no-std/pkg/support"
)

// DefaultRuntime is the crate a no_std build excludes.
const DefaultRuntime = "std"

// Scanner reads entry files and classifies them. It implements
// support.Scanner.
type Scanner struct {
	// Runtime is the excluded runtime crate, "std" by default.
	Runtime string
	// ReadFile defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
	Logger   *log.Logger

	patterns []*regexp.Regexp
}

// NewScanner returns a scanner for the std runtime.
func NewScanner(logger *log.Logger) *Scanner {
	return NewRuntimeScanner(DefaultRuntime, logger)
}

// NewRuntimeScanner returns a scanner looking for imports from runtime.
func NewRuntimeScanner(runtime string, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	rt := regexp.QuoteMeta(runtime)
	return &Scanner{
		Runtime:  runtime,
		ReadFile: os.ReadFile,
		Logger:   logger,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:^|[^\w:])use\s+(?:::)?` + rt + `\s*::`),
			regexp.MustCompile(`(?:^|[^\w:])use\s+(?:::)?\{.*(?:^|[\s,{])(?:::)?` + rt + `\s*::`),
			regexp.MustCompile(`(?:^|\W)extern\s+crate\s+` + rt + `\b`),
		},
	}
}

// Scan classifies a crate from its entry files, tried in order. The first
// file carrying an opt-in attribute decides:
//   - #![no_std]: NoOffenseDetected, or ExplicitRuntimeUse offenses for
//     each line of that file importing from the runtime
//   - #![cfg_attr(not(feature = "F"), no_std)]: OnlyWithoutFeature(F)
//
// Without any opt-in the crate gets MissingOptInAttribute, unless a file
// had an uninterpretable conditional attribute or could not be read, which
// are reported instead.
func (s *Scanner) Scan(paths []string) support.CrateSupport {
	var (
		unsupported []support.SourceOffense
		unreadable  []support.SourceOffense
	)
	for _, path := range paths {
		data, err := s.ReadFile(path)
		if err != nil {
			err = errors.Wrap(errors.ErrCodeSourceParse, err, "read %s", path)
			s.Logger.Debug("could not read entry file", "path", path, "err", err)
			unreadable = append(unreadable, support.SourceUnreadable(errors.UserMessage(err)))
			continue
		}
		src := string(data)

		o := fileOptIn(crateAttributes(src))
		s.Logger.Debug("scanned crate attributes", "path", path, "opt_in", o.kind)
		switch o.kind {
		case optInUnconditional:
			return support.SourceOffenses(s.runtimeUses(src)...)
		case optInConditional:
			return support.OnlyWithoutFeature(o.feature)
		case optInUnsupported:
			unsupported = append(unsupported, support.UnsupportedAttribute(o.text))
		}
	}

	switch {
	case len(unsupported) > 0:
		return support.SourceOffenses(unsupported...)
	case len(unreadable) > 0:
		return support.SourceOffenses(unreadable...)
	}
	return support.SourceOffenses(support.MissingOptInAttribute())
}

// runtimeUses returns one offense per source line importing from the runtime.
func (s *Scanner) runtimeUses(src string) []support.SourceOffense {
	var out []support.SourceOffense
	lines := strings.Split(src, "\n")
	code := codeLines(lines)
	for i, line := range code {
		for _, re := range s.patterns {
			if re.MatchString(line) {
				out = append(out, support.ExplicitRuntimeUse(strings.TrimSpace(lines[i])))
				break
			}
		}
	}
	return out
}

// codeLines blanks comments and string literal contents, keeping line
// numbering, so patterns only match real code. Block comments and string
// literals, raw ones included, may span lines.
func codeLines(lines []string) []string {
	out := make([]string, len(lines))
	// Carried across lines: block comment nesting, an open string, and
	// the hash count closing an open raw string (-1 when none).
	depth := 0
	inString := false
	raw := -1
	for n, line := range lines {
		var b strings.Builder
		for i := 0; i < len(line); i++ {
			c := line[i]
			switch {
			case depth > 0:
				if strings.HasPrefix(line[i:], "*/") {
					depth--
					i++
				} else if strings.HasPrefix(line[i:], "/*") {
					depth++
					i++
				}
			case raw >= 0:
				if c == '"' && strings.HasPrefix(line[i+1:], strings.Repeat("#", raw)) {
					i += raw
					raw = -1
					b.WriteByte('"')
				}
			case inString:
				if c == '\\' {
					i++
				} else if c == '"' {
					inString = false
					b.WriteByte('"')
				}
			case strings.HasPrefix(line[i:], "//"):
				i = len(line)
			case strings.HasPrefix(line[i:], "/*"):
				depth++
				i++
			case (c == 'r' || c == 'b') && !identByte(line, i-1):
				j := i
				if c == 'b' && strings.HasPrefix(line[i+1:], "r") {
					j++
				}
				if hashes, ok := rawStringStart(line[j+1:]); ok && line[j] == 'r' {
					raw = hashes
					i = j + 1 + hashes
					b.WriteByte('"')
				} else {
					b.WriteByte(c)
				}
			case c == '\'':
				i += charLiteralLen(line[i:]) - 1
				b.WriteByte('\'')
			case c == '"':
				inString = true
				b.WriteByte('"')
			default:
				b.WriteByte(c)
			}
		}
		out[n] = b.String()
	}
	return out
}

// rawStringStart reports whether s, following an 'r', opens a raw string,
// and with how many hashes.
func rawStringStart(s string) (int, bool) {
	hashes := 0
	for hashes < len(s) && s[hashes] == '#' {
		hashes++
	}
	return hashes, hashes < len(s) && s[hashes] == '"'
}

// charLiteralLen returns the length of the char literal at the start of s,
// or 1 for a lifetime or label.
func charLiteralLen(s string) int {
	if len(s) >= 2 && s[1] == '\\' {
		if end := strings.IndexByte(s[2:], '\''); end >= 0 {
			return end + 3
		}
		return 1
	}
	if _, size := utf8.DecodeRuneInString(s[1:]); size > 0 && len(s) > 1+size && s[1+size] == '\'' {
		return size + 2
	}
	return 1
}

func identByte(line string, i int) bool {
	if i < 0 || i >= len(line) {
		return false
	}
	c := line[i]
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

var _ support.Scanner = (*Scanner)(nil)
