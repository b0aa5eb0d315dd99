// Package docstring finds Python function docstrings and extracts the
// references cited in them.
package docstring

import (
	"iter"
	"strings"
)

// Function is a documented function found by Scan.
type Function struct {
	Name      string // Function identifier, empty if it could not be read
	Line      int    // 1-based line on which the docstring literal opens
	Docstring string // Raw text between the docstring quotes
}

// Scan returns the documented functions in src, ordered by line.
//
// The sequence is lazy and restartable: each range re-scans src. Functions
// without a docstring are skipped. Malformed source is not an error; the scan
// reports whatever it can recognize, possibly nothing.
func Scan(src string) iter.Seq[Function] {
	return func(yield func(Function) bool) {
		s := &scanner{src: src, line: 1}
		for {
			fn, ok := s.next()
			if !ok || !yield(fn) {
				return
			}
		}
	}
}

// scanner is a lightweight structural lexer over Python source. It only
// understands enough to skip strings and comments, find "def", and read the
// first statement of a function body.
type scanner struct {
	src  string
	pos  int
	line int
}

// next advances to the next function that has a docstring.
func (s *scanner) next() (Function, bool) {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '#':
			s.skipComment()
		case isQuote(c):
			s.readString()
		case isIdentStart(c):
			word := s.readIdent()
			if isStringPrefix(word) && s.atQuote() {
				s.readString()
				continue
			}
			if word != "def" {
				continue
			}
			if fn, found := s.readFunction(); found {
				return fn, true
			}
		default:
			s.advance()
		}
	}
	return Function{}, false
}

// readFunction reads a definition after the "def" keyword.
func (s *scanner) readFunction() (Function, bool) {
	s.skipInlineSpace()

	var name string
	if s.pos < len(s.src) && isIdentStart(s.src[s.pos]) {
		name = s.readIdent()
	}

	if !s.skipSignature() {
		return Function{}, false
	}
	return s.readDocstring(name)
}

// skipSignature consumes the parameter list and return annotation up to and
// including the colon that opens the body.
func (s *scanner) skipSignature() bool {
	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '#':
			s.skipComment()
		case isQuote(c):
			s.readString()
		case isIdentStart(c):
			if word := s.readIdent(); isStringPrefix(word) && s.atQuote() {
				s.readString()
			}
		case c == '\\' && s.peek(1) == '\n':
			s.advance()
			s.advance()
		case c == '(' || c == '[' || c == '{':
			depth++
			s.advance()
		case c == ')' || c == ']' || c == '}':
			if depth > 0 {
				depth--
			}
			s.advance()
		case c == ':' && depth == 0:
			s.advance()
			return true
		case c == '\n' && depth == 0:
			return false
		default:
			s.advance()
		}
	}
	return false
}

// readDocstring reads the first statement of a body and reports it if it is
// a plain string literal.
func (s *scanner) readDocstring(name string) (Function, bool) {
	s.skipBlank()

	prefix := docstringPrefixLen(s.src[s.pos:])
	if prefix < 0 {
		return Function{}, false
	}

	line := s.line
	s.pos += prefix
	text, terminated := s.readString()
	if !terminated || !s.atStatementEnd() {
		return Function{}, false
	}
	return Function{Name: name, Line: line, Docstring: text}, true
}

// readString consumes a string literal starting at the opening quote and
// returns its raw content. A single-quoted string ends at the line break if
// it is not closed.
func (s *scanner) readString() (string, bool) {
	q := s.src[s.pos]
	delim := strings.Repeat(string(q), 3)

	if strings.HasPrefix(s.src[s.pos:], delim) {
		s.pos += len(delim)
		start := s.pos
		for s.pos < len(s.src) {
			switch {
			case s.src[s.pos] == '\\':
				s.advance()
				if s.pos < len(s.src) {
					s.advance()
				}
			case strings.HasPrefix(s.src[s.pos:], delim):
				text := s.src[start:s.pos]
				s.pos += len(delim)
				return text, true
			default:
				s.advance()
			}
		}
		return s.src[start:], false
	}

	s.pos++
	start := s.pos
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.advance()
			if s.pos < len(s.src) {
				s.advance()
			}
		case q:
			text := s.src[start:s.pos]
			s.pos++
			return text, true
		case '\n':
			return s.src[start:s.pos], false
		default:
			s.advance()
		}
	}
	return s.src[start:], false
}

// atStatementEnd reports whether only whitespace, a comment, or a statement
// separator follows on the current line.
func (s *scanner) atStatementEnd() bool {
	s.skipInlineSpace()
	if s.pos >= len(s.src) {
		return true
	}
	switch s.src[s.pos] {
	case '\n', '\r', '#', ';':
		return true
	}
	return false
}

func (s *scanner) advance() {
	if s.src[s.pos] == '\n' {
		s.line++
	}
	s.pos++
}

func (s *scanner) peek(offset int) byte {
	if s.pos+offset < len(s.src) {
		return s.src[s.pos+offset]
	}
	return 0
}

func (s *scanner) atQuote() bool {
	return s.pos < len(s.src) && isQuote(s.src[s.pos])
}

func (s *scanner) readIdent() string {
	start := s.pos
	for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
		s.pos++
	}
	return s.src[start:s.pos]
}

func (s *scanner) skipComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipInlineSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\f':
			s.pos++
		default:
			return
		}
	}
}

// skipBlank skips whitespace, line breaks, comments and line continuations.
func (s *scanner) skipBlank() {
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == ' ' || c == '\t' || c == '\f' || c == '\r' || c == '\n':
			s.advance()
		case c == '\\' && s.peek(1) == '\n':
			s.advance()
			s.advance()
		case c == '#':
			s.skipComment()
		default:
			return
		}
	}
}

// docstringPrefixLen returns the length of the string prefix at the start of
// rest if rest opens a literal that can be a docstring, or -1 otherwise.
// Byte strings and f-strings are not docstrings.
func docstringPrefixLen(rest string) int {
	switch {
	case len(rest) > 0 && isQuote(rest[0]):
		return 0
	case len(rest) > 1 && strings.IndexByte("rRuU", rest[0]) >= 0 && isQuote(rest[1]):
		return 1
	}
	return -1
}

func isStringPrefix(word string) bool {
	switch strings.ToLower(word) {
	case "r", "u", "b", "f", "t", "br", "rb", "fr", "rf", "tr", "rt":
		return true
	}
	return false
}

func isQuote(c byte) bool {
	return c == '"' || c == '\''
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
