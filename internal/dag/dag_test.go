// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"slices"
	"testing"

	"github.com/layerbuild/layerbuild/pkg/types"
)

type edge struct{ from, to string }

func TestOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges []edge
		want  []string
	}{
		{
			name: "empty",
			want: []string{},
		},
		{
			name:  "unconstrained keeps insertion order",
			nodes: []string{"app", "lib", "core"},
			want:  []string{"app", "lib", "core"},
		},
		{
			name:  "chain",
			edges: []edge{{"a", "b"}, {"b", "c"}},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "dependency moves ahead of earlier nodes",
			nodes: []string{"app", "lib", "core"},
			edges: []edge{{"core", "app"}},
			want:  []string{"lib", "core", "app"},
		},
		{
			name:  "diamond",
			edges: []edge{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}},
			want:  []string{"a", "b", "c", "d"},
		},
		{
			name:  "earliest free node wins",
			nodes: []string{"x", "y", "z"},
			edges: []edge{{"z", "x"}},
			want:  []string{"y", "z", "x"},
		},
		{
			name:  "duplicate edges",
			edges: []edge{{"a", "b"}, {"a", "b"}, {"a", "b"}},
			want:  []string{"a", "b"},
		},
		{
			name:  "disconnected components",
			edges: []edge{{"a", "b"}, {"c", "d"}},
			want:  []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New[string]()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e.from, e.to)
			}

			got, err := g.Order()
			if err != nil {
				t.Fatalf("Order() returned error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Order() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder_Cycles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nodes []string
		edges []edge
		want  []string
	}{
		{
			name:  "self loop",
			edges: []edge{{"a", "a"}},
			want:  []string{"a", "a"},
		},
		{
			name:  "two nodes",
			edges: []edge{{"a", "b"}, {"b", "a"}},
			want:  []string{"a", "b", "a"},
		},
		{
			name:  "loop behind a free prefix",
			nodes: []string{"root"},
			edges: []edge{{"root", "x"}, {"x", "y"}, {"y", "z"}, {"z", "x"}},
			want:  []string{"x", "y", "z", "x"},
		},
		{
			name:  "downstream node added first",
			nodes: []string{"tail"},
			edges: []edge{{"b", "tail"}, {"a", "b"}, {"b", "a"}},
			want:  []string{"b", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New[string]()
			for _, n := range tt.nodes {
				g.AddNode(n)
			}
			for _, e := range tt.edges {
				g.AddEdge(e.from, e.to)
			}

			order, err := g.Order()
			if !errors.Is(err, ErrCycle) {
				t.Fatalf("Order() = %v, %v; want ErrCycle", order, err)
			}
			var cycleErr *CycleError
			if !errors.As(err, &cycleErr) {
				t.Fatalf("error %T is not *CycleError", err)
			}
			if !slices.Equal(cycleErr.Cycle, tt.want) {
				t.Errorf("Cycle = %v, want %v", cycleErr.Cycle, tt.want)
			}
		})
	}
}

func TestCycleError_Message(t *testing.T) {
	t.Parallel()

	err := &CycleError{Cycle: []string{"app", "lib", "app"}}
	if got, want := err.Error(), "dependency cycle detected: app -> lib -> app"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestGraph_ModuleNames(t *testing.T) {
	t.Parallel()

	g := New[types.ModuleName]()
	g.AddEdge("core", "feature")
	g.AddNode("app")

	if !g.Has("app") || g.Has("ghost") {
		t.Error("Has() does not reflect added nodes")
	}
	if g.Len() != 3 {
		t.Errorf("Len() = %d, want 3", g.Len())
	}
	got, err := g.Order()
	if err != nil {
		t.Fatalf("Order() returned error: %v", err)
	}
	if want := []types.ModuleName{"core", "feature", "app"}; !slices.Equal(got, want) {
		t.Errorf("Order() = %v, want %v", got, want)
	}
}
