// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package templates

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/CloudyKit/jet/v6"

	"github.com/choria-io/filedist/model"
)

// JetEngine renders files with the jet template language, parameters are
// exposed as the params variable and via the lookup() function
type JetEngine struct{}

func init() {
	MustRegister(&JetEngine{})
	MustRegister(&ExprEngine{})
}

func (e *JetEngine) Name() string { return "jet" }

func (e *JetEngine) Render(_ context.Context, source string, params map[string]any) (string, error) {
	jb, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}

	set := jet.NewSet(jet.NewInMemLoader())
	tpl, err := set.Parse(source, string(jb))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrRenderFailed, err)
	}

	env := &Env{Params: params}

	variables := jet.VarMap{
		"params": reflect.ValueOf(params),
		"Params": reflect.ValueOf(params),
		"lookup": reflect.ValueOf(env.Lookup),
	}

	out, err := os.CreateTemp("", "filedist-render-*")
	if err != nil {
		return "", err
	}

	err = tpl.Execute(out, variables, env)
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("%w: %v", model.ErrRenderFailed, err)
	}

	err = out.Close()
	if err != nil {
		os.Remove(out.Name())
		return "", err
	}

	return out.Name(), nil
}
