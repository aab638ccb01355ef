// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package templates renders cached files through named template engines. An
// engine receives the cached source path and caller parameters and produces a
// temporary output file the client moves to its final destination.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/choria-io/filedist/model"
)

// Engine renders a source file into a temporary output file and returns its path
type Engine interface {
	Name() string
	Render(ctx context.Context, source string, params map[string]any) (string, error)
}

var (
	engines = make(map[string]Engine)
	mu      sync.Mutex
)

// Register registers a template engine by its name
func Register(e Engine) error {
	mu.Lock()
	defer mu.Unlock()

	_, ok := engines[e.Name()]
	if ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateEngine, e.Name())
	}

	engines[e.Name()] = e

	return nil
}

// MustRegister registers a template engine and panics if registration fails
func MustRegister(e Engine) {
	err := Register(e)
	if err != nil {
		panic(err)
	}
}

// Lookup finds a registered engine by name
func Lookup(name string) (Engine, bool) {
	mu.Lock()
	defer mu.Unlock()

	e, ok := engines[name]

	return e, ok
}

// Names lists all registered engine names
func Names() []string {
	mu.Lock()
	defer mu.Unlock()

	var res []string
	for k := range engines {
		res = append(res, k)
	}

	sort.Strings(res)

	return res
}

// Env is the render environment exposed to engines
type Env struct {
	Params map[string]any `json:"params" yaml:"params"`

	envJSON json.RawMessage
	mu      sync.Mutex
}

// Lookup resolves a gjson style key against the parameters, an optional
// second argument provides the default for missing keys
func (e *Env) Lookup(params ...any) (any, error) {
	var key string
	var defaultValue any
	var ok bool

	if len(params) == 0 || len(params) > 2 {
		return nil, fmt.Errorf("lookup requires 1 or 2 arguments")
	}

	key, ok = params[0].(string)
	if !ok {
		return nil, fmt.Errorf("lookup requires a string argument")
	}

	if len(params) == 2 {
		defaultValue = params[1]
	} else {
		defaultValue = ""
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.envJSON == nil {
		j, err := json.Marshal(e.Params)
		if err != nil {
			return "", err
		}
		e.envJSON = j
	}

	res := gjson.GetBytes(e.envJSON, key)
	if !res.Exists() {
		return defaultValue, nil
	}

	if res.Type == gjson.Number {
		if strings.Contains(res.Raw, ".") {
			return res.Float(), nil
		}

		return res.Int(), nil
	}

	return res.Value(), nil
}
