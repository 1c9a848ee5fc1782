// SPDX-License-Identifier: MPL-2.0

// Package dag orders the nodes of a small directed graph so that every
// edge points forward, and names the loop when no such order exists.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError reports one loop found in the graph. Cycle starts and ends
	// with the same node, e.g. [a b c a].
	CycleError struct {
		Cycle []string
	}

	// Graph holds nodes in insertion order. An edge from A to B means A
	// must come before B.
	Graph[N ~string] struct {
		index map[N]int
		nodes []N
		// succ[i] lists the indices that must follow nodes[i].
		succ [][]int
		seen map[[2]int]struct{}
	}
)

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Cycle, " -> ")
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New[N ~string]() *Graph[N] {
	return &Graph[N]{
		index: make(map[N]int),
		seen:  make(map[[2]int]struct{}),
	}
}

// AddNode adds name if it is not already present.
func (g *Graph[N]) AddNode(name N) {
	g.add(name)
}

func (g *Graph[N]) add(name N) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[name] = i
	g.nodes = append(g.nodes, name)
	g.succ = append(g.succ, nil)
	return i
}

// AddEdge records that from comes before to, adding either node if needed.
// Repeated edges are stored once.
func (g *Graph[N]) AddEdge(from, to N) {
	f, t := g.add(from), g.add(to)
	if _, dup := g.seen[[2]int{f, t}]; dup {
		return
	}
	g.seen[[2]int{f, t}] = struct{}{}
	g.succ[f] = append(g.succ[f], t)
}

// Has reports whether name is a node of the graph.
func (g *Graph[N]) Has(name N) bool {
	_, ok := g.index[name]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[N]) Len() int { return len(g.nodes) }

// Order returns the nodes so that every edge points forward. Among the
// nodes that are free to go next, the one added first always wins, so an
// unconstrained graph comes back in insertion order.
func (g *Graph[N]) Order() ([]N, error) {
	pending := make([]int, len(g.nodes))
	for _, next := range g.succ {
		for _, t := range next {
			pending[t]++
		}
	}

	done := make([]bool, len(g.nodes))
	order := make([]N, 0, len(g.nodes))
	for len(order) < len(g.nodes) {
		pick := -1
		for i := range g.nodes {
			if !done[i] && pending[i] == 0 {
				pick = i
				break
			}
		}
		if pick < 0 {
			return nil, &CycleError{Cycle: g.findCycle(done)}
		}
		done[pick] = true
		order = append(order, g.nodes[pick])
		for _, t := range g.succ[pick] {
			pending[t]--
		}
	}
	return order, nil
}

// findCycle walks the nodes left over by Order. Each of them still has an
// unplaced predecessor, so a depth-first walk from the first one must loop.
func (g *Graph[N]) findCycle(done []bool) []string {
	const (
		unvisited = iota
		onPath
		finished
	)
	state := make([]int, len(g.nodes))
	var path []int

	var visit func(i int) []string
	visit = func(i int) []string {
		state[i] = onPath
		path = append(path, i)
		for _, t := range g.succ[i] {
			if done[t] {
				continue
			}
			switch state[t] {
			case onPath:
				return g.loopFrom(path, t)
			case unvisited:
				if loop := visit(t); loop != nil {
					return loop
				}
			}
		}
		path = path[:len(path)-1]
		state[i] = finished
		return nil
	}

	for i := range g.nodes {
		if !done[i] && state[i] == unvisited {
			if loop := visit(i); loop != nil {
				return loop
			}
		}
	}
	panic(fmt.Sprintf("dag: no cycle among %d unordered nodes", len(g.nodes)))
}

func (g *Graph[N]) loopFrom(path []int, start int) []string {
	var loop []string
	for j := len(path) - 1; j >= 0; j-- {
		if path[j] == start {
			for _, i := range path[j:] {
				loop = append(loop, string(g.nodes[i]))
			}
			break
		}
	}
	return append(loop, string(g.nodes[start]))
}
