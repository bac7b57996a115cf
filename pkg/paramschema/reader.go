package paramschema

import (
	"fmt"
	"strconv"
	"strings"
)

// FormKind classifies a datum read from script source.
type FormKind int

const (
	FormSymbol FormKind = iota
	FormNumber
	FormString
	FormKeyword
	FormList
)

func (k FormKind) String() string {
	switch k {
	case FormSymbol:
		return "symbol"
	case FormNumber:
		return "number"
	case FormString:
		return "string"
	case FormKeyword:
		return "keyword"
	case FormList:
		return "list"
	default:
		return fmt.Sprintf("FormKind(%d)", int(k))
	}
}

// Form is one datum of script source. Pos and End are byte offsets into the
// source; source[Pos:End] is the exact text of the form, including any
// quote prefix.
type Form struct {
	Kind     FormKind
	Text     string  // symbol or keyword name, decoded string contents
	Num      float64 // FormNumber only
	IsInt    bool    // FormNumber written without a fraction or exponent
	Open     byte    // FormList only: '(', '[' or '{'
	Quoted   bool    // written with a ' prefix
	Children []Form  // FormList only
	Pos, End int
	Line     int
}

// IsCall reports whether f is a parenthesized list headed by the symbol head.
func (f Form) IsCall(head string) bool {
	return f.Kind == FormList && f.Open == '(' && !f.Quoted && len(f.Children) > 0 &&
		f.Children[0].Kind == FormSymbol && f.Children[0].Text == head
}

// SyntaxError is a reader failure at a source line.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Read parses source into its top-level forms. It understands the script
// dialect's lexical rules: ; and // line comments, double-quoted strings
// with backslash escapes, backtick raw strings, :keywords, and the three
// bracket pairs.
func Read(source string) ([]Form, error) {
	r := &reader{src: source, line: 1}
	var forms []Form
	for {
		r.skipSpace()
		if r.eof() {
			return forms, nil
		}
		if c := r.peek(); c == ')' || c == ']' || c == '}' {
			return nil, r.errorf("unexpected %q", c)
		}
		f, err := r.form()
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
}

type reader struct {
	src  string
	pos  int
	line int
}

func (r *reader) eof() bool  { return r.pos >= len(r.src) }
func (r *reader) peek() byte { return r.src[r.pos] }

func (r *reader) advance() byte {
	c := r.src[r.pos]
	r.pos++
	if c == '\n' {
		r.line++
	}
	return c
}

func (r *reader) errorf(format string, args ...any) error {
	return &SyntaxError{Line: r.line, Message: fmt.Sprintf(format, args...)}
}

func (r *reader) skipSpace() {
	for !r.eof() {
		c := r.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			r.advance()
		case c == ';' || (c == '/' && r.pos+1 < len(r.src) && r.src[r.pos+1] == '/'):
			for !r.eof() && r.peek() != '\n' {
				r.advance()
			}
		default:
			return
		}
	}
}

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}'}

func (r *reader) form() (Form, error) {
	start, line := r.pos, r.line

	// Quote prefixes attach to the following datum.
	quoted := false
	for !r.eof() && r.peek() == '\'' {
		r.advance()
		quoted = true
	}
	if r.eof() {
		return Form{}, r.errorf("quote at end of input")
	}

	c := r.peek()
	switch {
	case c == '(' || c == '[' || c == '{':
		open := r.advance()
		f := Form{Kind: FormList, Open: open, Quoted: quoted, Pos: start, Line: line}
		for {
			r.skipSpace()
			if r.eof() {
				return Form{}, &SyntaxError{Line: line, Message: fmt.Sprintf("unclosed %q", open)}
			}
			if p := r.peek(); p == ')' || p == ']' || p == '}' {
				if p != closers[open] {
					return Form{}, r.errorf("mismatched %q closing %q", p, open)
				}
				r.advance()
				f.End = r.pos
				return f, nil
			}
			child, err := r.form()
			if err != nil {
				return Form{}, err
			}
			f.Children = append(f.Children, child)
		}

	case c == '"':
		s, err := r.quoted()
		if err != nil {
			return Form{}, err
		}
		return Form{Kind: FormString, Text: s, Pos: start, End: r.pos, Line: line}, nil

	case c == '`':
		r.advance()
		from := r.pos
		for !r.eof() && r.peek() != '`' {
			r.advance()
		}
		if r.eof() {
			return Form{}, &SyntaxError{Line: line, Message: "unterminated raw string"}
		}
		text := r.src[from:r.pos]
		r.advance()
		return Form{Kind: FormString, Text: text, Pos: start, End: r.pos, Line: line}, nil

	case c == ')' || c == ']' || c == '}':
		return Form{}, r.errorf("unexpected %q", c)
	}

	tok := r.token()
	if tok == "" {
		return Form{}, r.errorf("unexpected %q", c)
	}
	f := Form{Pos: start, End: r.pos, Line: line}
	if strings.HasPrefix(tok, ":") && len(tok) > 1 {
		f.Kind, f.Text = FormKeyword, tok[1:]
		return f, nil
	}
	if n, isInt, ok := parseNumber(tok); ok {
		f.Kind, f.Num, f.IsInt = FormNumber, n, isInt
		return f, nil
	}
	f.Kind, f.Text = FormSymbol, tok
	return f, nil
}

// quoted reads a double-quoted string and decodes its escapes.
func (r *reader) quoted() (string, error) {
	line := r.line
	r.advance()
	var sb strings.Builder
	for {
		if r.eof() {
			return "", &SyntaxError{Line: line, Message: "unterminated string"}
		}
		c := r.advance()
		switch c {
		case '"':
			return sb.String(), nil
		case '\\':
			if r.eof() {
				return "", &SyntaxError{Line: line, Message: "unterminated string"}
			}
			switch e := r.advance(); e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func (r *reader) token() string {
	from := r.pos
	for !r.eof() {
		c := r.peek()
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',' ||
			c == '(' || c == ')' || c == '[' || c == ']' || c == '{' || c == '}' ||
			c == '"' || c == ';' || c == '`' {
			break
		}
		r.advance()
	}
	return r.src[from:r.pos]
}

func parseNumber(tok string) (float64, bool, bool) {
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return float64(i), true, true
	}
	c := tok[0]
	if !(c >= '0' && c <= '9' || c == '-' || c == '+' || c == '.') {
		return 0, false, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false, false
	}
	return f, false, true
}
