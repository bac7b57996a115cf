package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/chazu/cogwright/pkg/paramschema"
	"go.uber.org/zap"
)

// ModuleLoader resolves (include "url") forms. *modcache.Cache implements it.
type ModuleLoader interface {
	Load(ctx context.Context, url string) (string, error)
}

// maxIncludeDepth bounds nested includes.
const maxIncludeDepth = 8

// readErrors converts a reader or declaration failure into eval errors.
func readErrors(err error) []EvalError {
	var se *paramschema.SyntaxError
	if errors.As(err, &se) {
		return []EvalError{{Line: se.Line, Message: se.Message}}
	}
	var de *paramschema.DeclError
	if errors.As(err, &de) {
		msg := de.Message
		if de.Name != "" {
			msg = fmt.Sprintf("defparam %s: %s", de.Name, de.Message)
		}
		return []EvalError{{Line: de.Line, Message: msg}}
	}
	return []EvalError{{Message: err.Error()}}
}

// expandIncludes replaces every top-level (include "url") form with the
// text of the module it names, recursively. stack holds the URLs being
// expanded, for cycle detection.
func (e *Engine) expandIncludes(ctx context.Context, source string, stack []string) (string, []EvalError) {
	forms, err := paramschema.Read(source)
	if err != nil {
		return "", readErrors(err)
	}

	var b strings.Builder
	last := 0
	for _, f := range forms {
		if !f.IsCall("include") {
			continue
		}
		fail := func(format string, args ...any) (string, []EvalError) {
			return "", []EvalError{{Line: f.Line, Message: fmt.Sprintf(format, args...)}}
		}
		if len(f.Children) != 2 || f.Children[1].Kind != paramschema.FormString {
			return fail("include requires a single URL string")
		}
		url := f.Children[1].Text
		switch {
		case e.modules == nil:
			return fail("include %q: no module loader configured", url)
		case slices.Contains(stack, url):
			return fail("include %q: include cycle", url)
		case len(stack) >= maxIncludeDepth:
			return fail("include %q: nested deeper than %d modules", url, maxIncludeDepth)
		}

		text, err := e.modules.Load(ctx, url)
		if err != nil {
			return fail("include %q: %v", url, err)
		}
		expanded, errs := e.expandIncludes(ctx, text, append(stack, url))
		if len(errs) > 0 {
			return fail("include %q: %s", url, errs[0].Error())
		}
		e.log.Debug("module included", zap.String("url", url), zap.Int("bytes", len(expanded)))

		b.WriteString(source[last:f.Pos])
		b.WriteString(expanded)
		last = f.End
	}
	b.WriteString(source[last:])
	return b.String(), nil
}

// rewriteParams turns each top-level (defparam name default ...) into
// (def name (defparam "name" default ...)) so the declared symbol is bound
// to the parameter value. Line structure is preserved.
func rewriteParams(source string) (string, []paramschema.Param, []EvalError) {
	forms, err := paramschema.Read(source)
	if err != nil {
		return "", nil, readErrors(err)
	}
	params, err := paramschema.FromForms(forms)
	if err != nil {
		return "", nil, readErrors(err)
	}

	var b strings.Builder
	last := 0
	for _, f := range forms {
		if !f.IsCall("defparam") {
			continue
		}
		nameForm := f.Children[1]
		b.WriteString(source[last:f.Pos])
		b.WriteString("(def ")
		b.WriteString(nameForm.Text)
		b.WriteString(" (defparam ")
		b.WriteString(strconv.Quote(nameForm.Text))
		b.WriteString(source[nameForm.End : f.End-1])
		b.WriteString("))")
		last = f.End
	}
	b.WriteString(source[last:])
	return b.String(), params, nil
}
