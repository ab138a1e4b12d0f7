package depend

import (
	"fmt"
	"slices"
	"strings"

	"tourcal/internal/model"
)

// FindCycles returns every distinct cycle in the graph whose edges are
// FromID -> ToID for each link. Each cycle is listed once, rotated to start
// at its smallest event ID.
//
// The search is an iterative depth-first walk over nodes in ID order, so the
// result does not depend on link order and deep graphs cannot exhaust the
// goroutine stack.
func FindCycles(links []Link) [][]string {
	adj := make(map[string][]string)
	for _, l := range links {
		if l.FromID == "" || l.ToID == "" {
			continue
		}
		adj[l.FromID] = append(adj[l.FromID], l.ToID)
		if _, ok := adj[l.ToID]; !ok {
			adj[l.ToID] = nil
		}
	}

	nodes := make([]string, 0, len(adj))
	for id, next := range adj {
		slices.Sort(next)
		adj[id] = slices.Compact(next)
		nodes = append(nodes, id)
	}
	slices.Sort(nodes)

	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(nodes))

	type frame struct {
		node string
		next int
	}

	var cycles [][]string
	seen := make(map[string]bool)

	for _, root := range nodes {
		if state[root] != unvisited {
			continue
		}
		state[root] = onStack
		stack := []frame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(adj[top.node]) {
				state[top.node] = done
				stack = stack[:len(stack)-1]
				continue
			}

			nb := adj[top.node][top.next]
			top.next++

			switch state[nb] {
			case unvisited:
				state[nb] = onStack
				stack = append(stack, frame{node: nb})
			case onStack:
				start := 0
				for i := range stack {
					if stack[i].node == nb {
						start = i
						break
					}
				}
				cycle := make([]string, 0, len(stack)-start)
				for _, f := range stack[start:] {
					cycle = append(cycle, f.node)
				}
				cycle = canonicalCycle(cycle)
				key := strings.Join(cycle, "\x00")
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, cycle)
				}
			}
		}
	}
	return cycles
}

// DetectCycles reports one circular conflict per cycle in the link graph.
// A cycle can never be satisfied by moving events, so it is always an error.
func DetectCycles(events []model.CalEvent, links []Link) []Conflict {
	return cycleConflicts(links, model.ByID(events))
}

// cycleConflicts ignores links to unknown events, like the per-link checks.
func cycleConflicts(links []Link, byID map[string]model.CalEvent) []Conflict {
	known := make([]Link, 0, len(links))
	for _, l := range links {
		_, okFrom := byID[l.FromID]
		_, okTo := byID[l.ToID]
		if okFrom && okTo {
			known = append(known, l)
		}
	}

	cycles := FindCycles(known)
	out := make([]Conflict, 0, len(cycles))
	for _, cycle := range cycles {
		names := make([]string, 0, len(cycle)+1)
		for _, id := range cycle {
			names = append(names, displayName(id, byID))
		}
		names = append(names, names[0])

		c := Conflict{
			ID:         "circular:" + strings.Join(cycle, ">"),
			Type:       ConflictCircular,
			Severity:   SeverityError,
			EventID:    cycle[0],
			Message:    fmt.Sprintf("Circular dependency: %s", strings.Join(names, " → ")),
			Suggestion: "Remove one of the links in this cycle; no set of dates can satisfy it",
		}
		if len(cycle) > 1 {
			c.LinkedEventID = cycle[1]
		}
		out = append(out, c)
	}
	return out
}

func displayName(id string, byID map[string]model.CalEvent) string {
	if ev, ok := byID[id]; ok {
		return title(ev)
	}
	return id
}

// canonicalCycle rotates cycle so that its smallest ID comes first.
func canonicalCycle(cycle []string) []string {
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	return append(append([]string(nil), cycle[minIdx:]...), cycle[:minIdx]...)
}
