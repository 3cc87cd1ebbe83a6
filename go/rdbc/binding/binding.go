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

// Package binding holds the parameter values applied to one execution of a
// parameterized statement.
package binding

import (
	"reflect"
	"strings"

	"github.com/multigres/rdbc/go/common/mterrors"
	"github.com/multigres/rdbc/go/rdbc/client"
)

// Value is one bound parameter. A NULL value keeps the type it was bound
// with.
type Value struct {
	V    any
	Null bool
	Type reflect.Type
}

// Binding maps the declared parameters of a statement to their values.
// Parameters are addressed by position (in declaration order) or by name.
type Binding struct {
	names  []string
	index  map[string]int
	values []Value
	bound  []bool
}

var empty = &Binding{}

// Empty returns the binding of a statement that declares no parameters.
func Empty() *Binding {
	return empty
}

// New returns an unbound binding for the declared parameter names. Names
// carry their "$" prefix.
func New(names []string) *Binding {
	if len(names) == 0 {
		return empty
	}
	b := &Binding{
		names:  append([]string(nil), names...),
		index:  make(map[string]int, len(names)),
		values: make([]Value, len(names)),
		bound:  make([]bool, len(names)),
	}
	for i, name := range b.names {
		b.index[name] = i
	}
	return b
}

// Names returns the declared parameter names in order.
func (b *Binding) Names() []string {
	return append([]string(nil), b.names...)
}

// IsEmpty reports whether nothing is bound.
func (b *Binding) IsEmpty() bool {
	for _, ok := range b.bound {
		if ok {
			return false
		}
	}
	return true
}

// Bind sets the parameter at index. Use BindNull for NULL values.
func (b *Binding) Bind(index int, v any) error {
	if v == nil {
		return mterrors.NewValidationError("value for parameter %d must not be nil, use BindNull", index)
	}
	i, err := b.position(index)
	if err != nil {
		return err
	}
	b.set(i, Value{V: v, Type: reflect.TypeOf(v)})
	return nil
}

// BindName sets the named parameter. The "$" prefix is optional.
func (b *Binding) BindName(name string, v any) error {
	if v == nil {
		return mterrors.NewValidationError("value for parameter %s must not be nil, use BindNull", name)
	}
	i, err := b.lookup(name)
	if err != nil {
		return err
	}
	b.set(i, Value{V: v, Type: reflect.TypeOf(v)})
	return nil
}

// BindNull sets the parameter at index to NULL of type t.
func (b *Binding) BindNull(index int, t reflect.Type) error {
	i, err := b.position(index)
	if err != nil {
		return err
	}
	b.set(i, Value{Null: true, Type: t})
	return nil
}

// BindNullName sets the named parameter to NULL of type t.
func (b *Binding) BindNullName(name string, t reflect.Type) error {
	i, err := b.lookup(name)
	if err != nil {
		return err
	}
	b.set(i, Value{Null: true, Type: t})
	return nil
}

// Get returns the value bound to name.
func (b *Binding) Get(name string) (Value, bool) {
	i, err := b.lookup(name)
	if err != nil || !b.bound[i] {
		return Value{}, false
	}
	return b.values[i], true
}

// Validate fails when any declared parameter is unbound.
func (b *Binding) Validate() error {
	var missing []string
	for i, ok := range b.bound {
		if !ok {
			missing = append(missing, b.names[i])
		}
	}
	if len(missing) > 0 {
		return mterrors.NewValidationError("parameters not bound: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Params returns the bound values in declaration order. NULL values are
// passed as untyped nil.
func (b *Binding) Params() client.Params {
	if len(b.names) == 0 {
		return nil
	}
	params := make(client.Params, len(b.names))
	for i, name := range b.names {
		params[i] = client.Param{Name: name}
		if !b.values[i].Null {
			params[i].Value = b.values[i].V
		}
	}
	return params
}

func (b *Binding) set(i int, v Value) {
	b.values[i] = v
	b.bound[i] = true
}

func (b *Binding) position(index int) (int, error) {
	if index < 0 || index >= len(b.names) {
		return 0, mterrors.NewValidationError("parameter index %d out of range [0, %d)", index, len(b.names))
	}
	return index, nil
}

func (b *Binding) lookup(name string) (int, error) {
	if !strings.HasPrefix(name, "$") {
		name = "$" + name
	}
	i, ok := b.index[name]
	if !ok {
		return 0, mterrors.NewValidationError("parameter %s is not declared", name)
	}
	return i, nil
}

// Bindings is the batch of bindings of one statement. Bind calls target the
// current binding; Add finishes it and starts the next one.
type Bindings struct {
	names   []string
	added   []*Binding
	current *Binding
}

// NewBindings starts a batch for the declared parameter names.
func NewBindings(names []string) *Bindings {
	return &Bindings{names: names, current: New(names)}
}

// Current returns the binding that Bind calls target.
func (bs *Bindings) Current() *Binding {
	return bs.current
}

// Add validates the current binding, appends it to the batch and starts a
// new one.
func (bs *Bindings) Add() error {
	if err := bs.current.Validate(); err != nil {
		return err
	}
	bs.added = append(bs.added, bs.current)
	bs.current = New(bs.names)
	return nil
}

// All returns the bindings to execute in order: every added binding, then
// the current one if anything was bound to it or nothing was added.
func (bs *Bindings) All() []*Binding {
	all := append([]*Binding(nil), bs.added...)
	if len(all) == 0 || !bs.current.IsEmpty() {
		all = append(all, bs.current)
	}
	return all
}
