// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package templates

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/choria-io/filedist/model"
)

// ExprEngine substitutes {{ expression }} placeholders using expr-lang,
// parameters are in scope directly and via the lookup() function
type ExprEngine struct{}

var placeholderRe = regexp.MustCompile(`{{\s*(.*?)\s*}}`)

func (e *ExprEngine) Name() string { return "expr" }

func (e *ExprEngine) Render(_ context.Context, source string, params map[string]any) (string, error) {
	tb, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}

	rendered, err := resolvePlaceholders(string(tb), params)
	if err != nil {
		return "", err
	}

	out, err := os.CreateTemp("", "filedist-render-*")
	if err != nil {
		return "", err
	}

	_, err = out.WriteString(rendered)
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}

	err = out.Close()
	if err != nil {
		os.Remove(out.Name())
		return "", err
	}

	return out.Name(), nil
}

// resolvePlaceholders evaluates every {{ expression }} in template against params
func resolvePlaceholders(template string, params map[string]any) (string, error) {
	env := &Env{Params: params}

	scope := map[string]any{
		"params": params,
	}
	for k, v := range params {
		scope[k] = v
	}

	var renderErr error

	res := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		if renderErr != nil {
			return match
		}

		inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))

		prog, err := expr.Compile(inner, expr.Env(scope), expr.AllowUndefinedVariables(), expr.Function("lookup", env.Lookup))
		if err != nil {
			renderErr = fmt.Errorf("%w: %q: %v", model.ErrRenderFailed, inner, err)
			return match
		}

		val, err := expr.Run(prog, scope)
		if err != nil {
			renderErr = fmt.Errorf("%w: %q: %v", model.ErrRenderFailed, inner, err)
			return match
		}

		return fmt.Sprintf("%v", val)
	})

	if renderErr != nil {
		return "", renderErr
	}

	return res, nil
}
