// Package paramschema infers the parameter schema of a script: the
// user-tunable values it declares with top-level defparam forms.
//
// The grammar is
//
//	(defparam name default [:min n] [:max n] [:step n] [:label "text"])
//
// where name is a symbol and default is a number, string, true or false.
// Only top-level forms are declarations; defparam inside another form,
// inside a string, or inside a comment is never read as one.
package paramschema

import (
	"fmt"
	"math"
)

// Kind is the value type of a parameter.
type Kind string

const (
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindString  Kind = "string"
	KindBoolean Kind = "boolean"
)

// Param is one declared parameter.
type Param struct {
	Name    string   `json:"name"`
	Kind    Kind     `json:"kind"`
	Default any      `json:"default"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    *float64 `json:"step,omitempty"`
	Label   string   `json:"label,omitempty"`
	Line    int      `json:"line"`
}

// IsNumeric reports whether the parameter holds a number.
func (p Param) IsNumeric() bool {
	return p.Kind == KindInteger || p.Kind == KindNumber
}

// Clamp returns v limited to the parameter's range, rounded for integer
// parameters.
func (p Param) Clamp(v float64) float64 {
	if p.Kind == KindInteger {
		v = math.Round(v)
	}
	if p.Min != nil && v < *p.Min {
		v = *p.Min
	}
	if p.Max != nil && v > *p.Max {
		v = *p.Max
	}
	return v
}

// DeclError is a malformed parameter declaration.
type DeclError struct {
	Line    int
	Name    string
	Message string
}

func (e *DeclError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("line %d: defparam %s: %s", e.Line, e.Name, e.Message)
	}
	return fmt.Sprintf("line %d: defparam: %s", e.Line, e.Message)
}

// Infer reads source and returns its declared parameters in source order.
func Infer(source string) ([]Param, error) {
	forms, err := Read(source)
	if err != nil {
		return nil, err
	}
	return FromForms(forms)
}

// FromForms extracts parameters from already-read top-level forms.
func FromForms(forms []Form) ([]Param, error) {
	params := []Param{}
	seen := make(map[string]int)
	for _, f := range forms {
		if !f.IsCall("defparam") {
			continue
		}
		p, err := Declaration(f)
		if err != nil {
			return nil, err
		}
		if line, dup := seen[p.Name]; dup {
			return nil, &DeclError{Line: f.Line, Name: p.Name,
				Message: fmt.Sprintf("already declared on line %d", line)}
		}
		seen[p.Name] = f.Line
		params = append(params, p)
	}
	return params, nil
}

// Declaration parses a single (defparam ...) form.
func Declaration(f Form) (Param, error) {
	fail := func(name, format string, args ...any) (Param, error) {
		return Param{}, &DeclError{Line: f.Line, Name: name, Message: fmt.Sprintf(format, args...)}
	}
	if !f.IsCall("defparam") {
		return fail("", "not a defparam form")
	}
	args := f.Children[1:]
	if len(args) < 2 {
		return fail("", "requires a name and a default value")
	}
	if args[0].Kind != FormSymbol {
		return fail("", "name must be a symbol, got %s", args[0].Kind)
	}
	p := Param{Name: args[0].Text, Line: f.Line}

	switch d := args[1]; {
	case d.Kind == FormNumber && d.IsInt:
		p.Kind, p.Default = KindInteger, d.Num
	case d.Kind == FormNumber:
		p.Kind, p.Default = KindNumber, d.Num
	case d.Kind == FormString:
		p.Kind, p.Default = KindString, d.Text
	case d.Kind == FormSymbol && (d.Text == "true" || d.Text == "false"):
		p.Kind, p.Default = KindBoolean, d.Text == "true"
	default:
		return fail(p.Name, "default must be a literal number, string or boolean")
	}

	opts := args[2:]
	if len(opts)%2 != 0 {
		return fail(p.Name, "options must be :keyword value pairs")
	}
	for i := 0; i < len(opts); i += 2 {
		k, v := opts[i], opts[i+1]
		if k.Kind != FormKeyword {
			return fail(p.Name, "expected an option keyword, got %s", k.Kind)
		}
		switch k.Text {
		case "min", "max", "step":
			if v.Kind != FormNumber {
				return fail(p.Name, ":%s must be a number", k.Text)
			}
			n := v.Num
			switch k.Text {
			case "min":
				p.Min = &n
			case "max":
				p.Max = &n
			case "step":
				if n <= 0 {
					return fail(p.Name, ":step must be positive")
				}
				p.Step = &n
			}
		case "label":
			if v.Kind != FormString {
				return fail(p.Name, ":label must be a string")
			}
			p.Label = v.Text
		default:
			return fail(p.Name, "unknown option :%s", k.Text)
		}
	}

	if !p.IsNumeric() && (p.Min != nil || p.Max != nil || p.Step != nil) {
		return fail(p.Name, "range options apply only to numeric parameters")
	}
	if p.Kind == KindInteger && p.Step != nil && *p.Step != math.Trunc(*p.Step) {
		p.Kind = KindNumber
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return fail(p.Name, ":min %g exceeds :max %g", *p.Min, *p.Max)
	}
	if p.IsNumeric() {
		d := p.Default.(float64)
		if (p.Min != nil && d < *p.Min) || (p.Max != nil && d > *p.Max) {
			return fail(p.Name, "default %g outside [min, max]", d)
		}
	}
	return p, nil
}
