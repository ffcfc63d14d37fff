package variable

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
)

// Link validates every shadow declaration and assigns the global shadow
// order. It must succeed before the descriptor is used by a score director.
//
// Validation, in order:
//  1. no duplicate variable names per entity
//  2. every shadow variable has a listener factory and at least one source
//  3. every source belongs to an entity type of this solution
//  4. sources are either all list variables or all non-list variables, and
//     the listener implements the matching interface
//  5. the shadow dependency graph is acyclic
func (s *SolutionDescriptor) Link() error {
	s.linked = false
	known := make(map[*EntityDescriptor]bool, len(s.entities))
	for _, e := range s.entities {
		known[e] = true
	}

	for _, e := range s.entities {
		if len(e.dupes) > 0 {
			return newConfigError(ErrCodeDuplicateVariable, e.dupes[0],
				"variable %q is declared more than once on %s", e.dupes[0].name, e.name)
		}
	}

	shadows := make([]*Descriptor, 0)
	for _, e := range s.entities {
		shadows = append(shadows, e.shadows...)
	}

	for _, v := range shadows {
		if err := validateShadow(v, known); err != nil {
			return err
		}
	}

	graph := buildShadowGraph(shadows)
	for _, scc := range tarjanSCC(shadows, graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			path := reconstructCyclePath(scc, graph)
			names := make([]string, len(path))
			for i, p := range path {
				names[i] = p.String()
			}
			err := newConfigError(ErrCodeShadowCycle, scc[0],
				"shadow variables depend on each other: %s", strings.Join(names, " -> "))
			err.Path = names
			return err
		}
	}

	assignGlobalOrder(shadows)
	s.linked = true

	for _, v := range s.ShadowVariables() {
		slog.Debug("shadow variable linked",
			"variable", v.String(),
			"global_order", v.GlobalShadowOrder(),
			"sources", len(v.Sources()))
	}
	return nil
}

func validateShadow(v *Descriptor, known map[*EntityDescriptor]bool) error {
	if v.shadow.Listener == nil {
		return newConfigError(ErrCodeNoListener, v, "shadow variable has no listener")
	}
	if len(v.shadow.Sources) == 0 {
		return newConfigError(ErrCodeNoSources, v, "shadow variable has no source variables")
	}

	lists := 0
	for _, src := range v.shadow.Sources {
		if src == nil || src.entity == nil || !known[src.entity] {
			return newConfigError(ErrCodeUnknownSource, v,
				"source %v does not belong to an entity of this solution", src)
		}
		if src.IsList() {
			lists++
		}
	}
	if lists > 0 && lists != len(v.shadow.Sources) {
		return newConfigError(ErrCodeMixedSources, v,
			"shadow variable mixes list and non-list sources")
	}

	l := v.BuildListener()
	if l == nil {
		return newConfigError(ErrCodeNoListener, v, "listener factory returned nil")
	}
	defer l.Close()
	if lists > 0 {
		if _, ok := l.(ListVariableListener); !ok {
			return newConfigError(ErrCodeListenerKind, v,
				"listener %T is sourced on a list variable but is not a ListVariableListener", l)
		}
	} else if _, ok := l.(VariableListener); !ok {
		return newConfigError(ErrCodeListenerKind, v,
			"listener %T is not a VariableListener", l)
	}
	return nil
}

// shadowGraph maps a shadow variable to the shadow variables sourced on it.
type shadowGraph map[*Descriptor][]*Descriptor

func buildShadowGraph(shadows []*Descriptor) shadowGraph {
	graph := make(shadowGraph, len(shadows))
	for _, v := range shadows {
		if graph[v] == nil {
			graph[v] = []*Descriptor{}
		}
		for _, src := range v.shadow.Sources {
			if src.IsShadow() {
				graph[src] = append(graph[src], v)
			}
		}
	}
	return graph
}

func hasSelfLoop(v *Descriptor, graph shadowGraph) bool {
	for _, w := range graph[v] {
		if w == v {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of graph. Nodes are
// visited in declaration order so reported cycles are deterministic.
func tarjanSCC(nodes []*Descriptor, graph shadowGraph) [][]*Descriptor {
	var (
		index   = 0
		stack   []*Descriptor
		indices = make(map[*Descriptor]int)
		lowlink = make(map[*Descriptor]int)
		onStack = make(map[*Descriptor]bool)
		sccs    [][]*Descriptor
	)

	var strongConnect func(*Descriptor)
	strongConnect = func(v *Descriptor) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []*Descriptor
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Reverse(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, v := range nodes {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside scc from its first member back to
// itself.
func reconstructCyclePath(scc []*Descriptor, graph shadowGraph) []*Descriptor {
	if len(scc) == 1 {
		return []*Descriptor{scc[0], scc[0]}
	}
	members := make(map[*Descriptor]bool, len(scc))
	for _, v := range scc {
		members[v] = true
	}

	start := scc[0]
	current := start
	path := []*Descriptor{current}
	visited := make(map[*Descriptor]bool)
	for {
		visited[current] = true
		var next *Descriptor
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
				break
			}
		}
		if next == nil {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}

// assignGlobalOrder numbers an acyclic shadow graph topologically. Among the
// shadow variables whose shadow sources are all numbered, the earliest
// declared one goes next.
func assignGlobalOrder(shadows []*Descriptor) {
	for _, v := range shadows {
		v.shadow.globalOrder = -1
	}
	for order := 0; order < len(shadows); order++ {
		for _, v := range shadows {
			if v.shadow.globalOrder >= 0 || !shadowSourcesOrdered(v) {
				continue
			}
			v.shadow.globalOrder = order
			break
		}
	}
}

func shadowSourcesOrdered(v *Descriptor) bool {
	for _, src := range v.shadow.Sources {
		if src.IsShadow() && src.shadow.globalOrder < 0 {
			return false
		}
	}
	return true
}

func sortByGlobalOrder(vs []*Descriptor) {
	sort.SliceStable(vs, func(i, j int) bool {
		return vs[i].GlobalShadowOrder() < vs[j].GlobalShadowOrder()
	})
}

// GlobalShadowOrder renders the linked topology as "order: Entity.variable <-
// sources" lines. Shadows declared with RequiresUniqueEntityEvents are marked.
func (s *SolutionDescriptor) GlobalShadowOrder() []string {
	lines := make([]string, 0)
	for _, v := range s.ShadowVariables() {
		srcs := make([]string, len(v.Sources()))
		for i, src := range v.Sources() {
			srcs[i] = src.String()
		}
		line := fmt.Sprintf("%d: %s <- %s", v.GlobalShadowOrder(), v, strings.Join(srcs, ", "))
		if v.RequiresUniqueEntityEvents() {
			line += " [unique entity events]"
		}
		lines = append(lines, line)
	}
	return lines
}
