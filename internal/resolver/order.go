// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"github.com/layerbuild/layerbuild/internal/dag"
	"github.com/layerbuild/layerbuild/pkg/fragment"
	"github.com/layerbuild/layerbuild/pkg/types"
)

// evaluationOrder sorts modules so every evaluation_depends_on target comes
// first. A root-level entry applies to every module except itself; a module
// fragment's entries apply to that module. Unconstrained modules keep
// discovery order.
func evaluationOrder(root *fragment.Fragment, modules []*Module) ([]*Module, error) {
	byName := make(map[types.ModuleName]*Module, len(modules))
	g := dag.New[types.ModuleName]()
	for _, m := range modules {
		byName[m.Name] = m
		g.AddNode(m.Name)
	}

	for _, dep := range root.EvaluationDependsOn() {
		if !g.Has(dep) {
			return nil, &UnknownModuleError{Module: dep, Referrer: fragment.RootScope}
		}
		for _, m := range modules {
			if m.Name != dep {
				g.AddEdge(dep, m.Name)
			}
		}
	}

	for _, m := range modules {
		for _, dep := range m.fragment.EvaluationDependsOn() {
			if !g.Has(dep) {
				return nil, &UnknownModuleError{Module: dep, Referrer: m.fragment.Scope()}
			}
			g.AddEdge(dep, m.Name)
		}
	}

	names, err := g.Order()
	if err != nil {
		return nil, err
	}
	ordered := make([]*Module, len(names))
	for i, name := range names {
		ordered[i] = byName[name]
	}
	return ordered, nil
}
