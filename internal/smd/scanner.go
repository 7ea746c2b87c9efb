package smd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("syntax error")

// SyntaxError reports where a text model stopped making sense.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("smd: %s:%d: %s", e.File, e.Line, e.Msg)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

// Scanner splits a text model into whitespace-separated tokens. Quoted
// strings are one token; // and /* */ comments are skipped. One token of
// lookahead is available through UnGet.
//
// The Must methods stop the parse by panicking with a *SyntaxError, which
// Run turns back into an error.
type Scanner struct {
	file string
	src  []byte
	pos  int
	line int

	// Current token and the line it started on.
	String string
	Line   int
	Number int
	Float  float64

	ungot bool
}

func NewScanner(file string, src []byte) *Scanner {
	return &Scanner{file: file, src: src, line: 1}
}

// Run calls parse and returns the syntax error it stopped on, if any.
func (s *Scanner) Run(parse func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SyntaxError)
			if !ok {
				panic(r)
			}
			err = se
		}
	}()
	parse()
	return nil
}

// Errorf stops the parse at the current token.
func (s *Scanner) Errorf(format string, args ...any) {
	panic(&SyntaxError{File: s.file, Line: s.Line, Msg: fmt.Sprintf(format, args...)})
}

func (s *Scanner) skipSpace() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.line++
			s.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			s.pos++
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '/' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '*':
			s.pos += 2
			for s.pos < len(s.src) && !(s.src[s.pos] == '*' && s.pos+1 < len(s.src) && s.src[s.pos+1] == '/') {
				if s.src[s.pos] == '\n' {
					s.line++
				}
				s.pos++
			}
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
		default:
			return
		}
	}
}

// GetString reads the next token. It returns false at end of input.
func (s *Scanner) GetString() bool {
	if s.ungot {
		s.ungot = false
		return true
	}
	s.skipSpace()
	if s.pos >= len(s.src) {
		return false
	}
	s.Line = s.line
	start := s.pos
	if s.src[s.pos] == '"' {
		s.pos++
		start = s.pos
		for s.pos < len(s.src) && s.src[s.pos] != '"' {
			if s.src[s.pos] == '\n' {
				s.Errorf("unterminated string")
			}
			s.pos++
		}
		if s.pos >= len(s.src) {
			s.Errorf("unterminated string")
		}
		s.String = string(s.src[start:s.pos])
		s.pos++
		return true
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' || c == '"' {
			break
		}
		s.pos++
	}
	s.String = string(s.src[start:s.pos])
	return true
}

// UnGet makes the next GetString return the current token again.
func (s *Scanner) UnGet() {
	s.ungot = true
}

func (s *Scanner) MustGetString() {
	if !s.GetString() {
		s.Errorf("unexpected end of file")
	}
}

// MustGetStringName reads a token and requires it to be name.
func (s *Scanner) MustGetStringName(name string) {
	s.MustGetString()
	if !s.Compare(name) {
		s.Errorf("expected '%s', got '%s'", name, s.String)
	}
}

func (s *Scanner) MustGetNumber() int {
	s.MustGetString()
	n, err := strconv.Atoi(s.String)
	if err != nil {
		s.Errorf("expected integer, got '%s'", s.String)
	}
	s.Number = n
	s.Float = float64(n)
	return n
}

func (s *Scanner) MustGetFloat() float64 {
	s.MustGetString()
	f, err := strconv.ParseFloat(s.String, 64)
	if err != nil {
		s.Errorf("expected number, got '%s'", s.String)
	}
	s.Float = f
	s.Number = int(f)
	return f
}

// Compare reports whether the current token equals str, ignoring case.
func (s *Scanner) Compare(str string) bool {
	return strings.EqualFold(s.String, str)
}
