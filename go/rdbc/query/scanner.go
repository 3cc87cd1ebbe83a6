// Copyright 2026 Supabase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

import (
	"strconv"
	"strings"

	"github.com/multigres/rdbc/go/common/mterrors"
)

// scanner walks query text once, splitting it into statements and rewriting
// placeholders into ordinal $N form. Quoted strings, quoted identifiers,
// dollar-quoted strings and comments are copied through untouched.
type scanner struct {
	text string
	pos  int

	out        strings.Builder
	stmtStart  int
	statements []string

	names     []string
	ordinals  map[string]int
	positions int
}

func newScanner(text string) *scanner {
	return &scanner{text: text, ordinals: make(map[string]int)}
}

func (s *scanner) scan() error {
	for s.pos < len(s.text) {
		b := s.text[s.pos]
		switch {
		case (b == 'E' || b == 'e') && s.peek(1) == '\'' && !s.inWord():
			s.out.WriteByte(b)
			s.pos++
			if err := s.copyEscaped(); err != nil {
				return err
			}
		case b == '\'':
			if err := s.copyQuoted('\''); err != nil {
				return err
			}
		case b == '"':
			if err := s.copyQuoted('"'); err != nil {
				return err
			}
		case b == '-' && s.peek(1) == '-':
			s.copyLineComment()
		case b == '/' && s.peek(1) == '*':
			if err := s.copyBlockComment(); err != nil {
				return err
			}
		case b == '?':
			s.positions++
			s.placeholder("$p" + strconv.Itoa(s.positions))
			s.pos++
		case b == '$':
			if err := s.dollar(); err != nil {
				return err
			}
		case b == ';':
			s.endStatement()
			s.out.WriteByte(b)
			s.pos++
			s.stmtStart = s.pos
		default:
			s.out.WriteByte(b)
			s.pos++
		}
	}
	s.endStatement()
	return nil
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.text) {
		return s.text[s.pos+n]
	}
	return 0
}

func (s *scanner) endStatement() {
	stmt := s.text[s.stmtStart:s.pos]
	if firstKeyword(stmt) != "" {
		s.statements = append(s.statements, stmt)
	}
}

// copyQuoted copies a quoted literal or identifier. A doubled quote is an
// escaped quote.
func (s *scanner) copyQuoted(q byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.text) {
		if s.text[s.pos] == q {
			if s.peek(1) == q {
				s.pos += 2
				continue
			}
			s.pos++
			s.out.WriteString(s.text[start:s.pos])
			return nil
		}
		s.pos++
	}
	if q == '"' {
		return mterrors.NewValidationError("unterminated quoted identifier at offset %d", start)
	}
	return mterrors.NewValidationError("unterminated quoted string at offset %d", start)
}

// copyEscaped copies an E'...' string constant, where a backslash escapes
// the next byte.
func (s *scanner) copyEscaped() error {
	start := s.pos
	s.pos++
	for s.pos < len(s.text) {
		switch s.text[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '\'':
			if s.peek(1) == '\'' {
				s.pos += 2
				continue
			}
			s.pos++
			s.out.WriteString(s.text[start:s.pos])
			return nil
		}
		s.pos++
	}
	return mterrors.NewValidationError("unterminated quoted string at offset %d", start)
}

// inWord reports whether the byte before the cursor continues an identifier.
func (s *scanner) inWord() bool {
	return s.pos > 0 && isParamChar(s.text[s.pos-1])
}

func (s *scanner) copyLineComment() {
	start := s.pos
	if i := strings.IndexByte(s.text[s.pos:], '\n'); i >= 0 {
		s.pos += i + 1
	} else {
		s.pos = len(s.text)
	}
	s.out.WriteString(s.text[start:s.pos])
}

// copyBlockComment copies a /* */ comment. Block comments nest.
func (s *scanner) copyBlockComment() error {
	start := s.pos
	depth := 0
	for s.pos < len(s.text) {
		switch {
		case s.text[s.pos] == '/' && s.peek(1) == '*':
			depth++
			s.pos += 2
		case s.text[s.pos] == '*' && s.peek(1) == '/':
			depth--
			s.pos += 2
			if depth == 0 {
				s.out.WriteString(s.text[start:s.pos])
				return nil
			}
		default:
			s.pos++
		}
	}
	return mterrors.NewValidationError("unterminated /* comment at offset %d", start)
}

// dollar handles a '$', which starts a named or numbered placeholder, a
// dollar-quoted string ($tag$ ... $tag$), or is part of an identifier.
func (s *scanner) dollar() error {
	start := s.pos
	if start > 0 && isParamChar(s.text[start-1]) {
		s.out.WriteByte('$')
		s.pos++
		return nil
	}
	end := s.pos + 1
	for end < len(s.text) && isParamChar(s.text[end]) {
		end++
	}
	word := s.text[start+1 : end]

	if end < len(s.text) && s.text[end] == '$' && !startsWithDigit(word) {
		tag := s.text[start : end+1]
		closing := strings.Index(s.text[end+1:], tag)
		if closing < 0 {
			return mterrors.NewValidationError("unterminated dollar-quoted string at offset %d", start)
		}
		s.pos = end + 1 + closing + len(tag)
		s.out.WriteString(s.text[start:s.pos])
		return nil
	}

	if word == "" {
		s.out.WriteByte('$')
		s.pos++
		return nil
	}
	s.placeholder("$" + word)
	s.pos = end
	return nil
}

func (s *scanner) placeholder(name string) {
	ordinal, ok := s.ordinals[name]
	if !ok {
		s.names = append(s.names, name)
		ordinal = len(s.names)
		s.ordinals[name] = ordinal
	}
	s.out.WriteByte('$')
	s.out.WriteString(strconv.Itoa(ordinal))
}

// firstKeyword returns the upper-cased first word of stmt, skipping
// whitespace, comments and opening parentheses.
func firstKeyword(stmt string) string {
	i := 0
	for i < len(stmt) {
		switch b := stmt[i]; {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '(':
			i++
		case b == '-' && i+1 < len(stmt) && stmt[i+1] == '-':
			nl := strings.IndexByte(stmt[i:], '\n')
			if nl < 0 {
				return ""
			}
			i += nl + 1
		case b == '/' && i+1 < len(stmt) && stmt[i+1] == '*':
			end := strings.Index(stmt[i+2:], "*/")
			if end < 0 {
				return ""
			}
			i += end + 4
		default:
			j := i
			for j < len(stmt) && isParamChar(stmt[j]) {
				j++
			}
			if j == i {
				return stmt[i : i+1]
			}
			return strings.ToUpper(stmt[i:j])
		}
	}
	return ""
}

func isParamChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
