/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: statistics.go
Description: On-demand graph analysis: depth, branching, cycle detection, reachability
and shortest paths. All traversals are iterative and guarded by visited sets.
*/

package graph

import "fmt"

// Statistics computes graph statistics from the current state of the store
func (s *Store) Statistics() GraphStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statisticsLocked()
}

func (s *Store) statisticsLocked() GraphStatistics {
	stats := GraphStatistics{
		TotalStates:      len(s.nodes),
		TotalTransitions: len(s.edges),
	}
	if len(s.nodes) == 0 {
		return stats
	}

	initial := s.initialLocked()
	stats.MaxDepth = s.maxDepthLocked(initial)
	stats.CycleCount = s.cycleCountLocked(initial)

	branching, withOutgoing := 0, 0
	for _, id := range s.order {
		st := &s.nodes[id].state
		if n := len(st.OutgoingEdgeIDs); n > 0 {
			branching += n
			withOutgoing++
		}
		if len(st.IncomingEdgeIDs) == 0 && id != initial {
			stats.UnreachableStates++
		}
		if st.IsTerminal {
			stats.TerminalStates++
		}
		if st.IsError {
			stats.ErrorStates++
		}
	}
	if withOutgoing > 0 {
		stats.AverageBranchingFactor = float64(branching) / float64(withOutgoing)
	}

	return stats
}

// maxDepthLocked returns the largest BFS distance from start
func (s *Store) maxDepthLocked(start string) int {
	if _, ok := s.nodes[start]; !ok {
		return 0
	}
	depth := map[string]int{start: 0}
	queue := []string{start}
	maxDepth := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range s.successorsLocked(current) {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[current] + 1
			if depth[next] > maxDepth {
				maxDepth = depth[next]
			}
			queue = append(queue, next)
		}
	}
	return maxDepth
}

// cycleCountLocked counts back edges found by an iterative DFS with an explicit
// on-stack set. Traversal starts at the initial state and then covers any states
// it could not reach. Self-loops count as one cycle each.
func (s *Store) cycleCountLocked(initial string) int {
	type frame struct {
		id   string
		next int // Index into the outgoing edge list
	}

	visited := make(map[string]bool, len(s.nodes))
	onStack := make(map[string]bool)
	cycles := 0

	roots := make([]string, 0, len(s.order)+1)
	if initial != "" {
		roots = append(roots, initial)
	}
	roots = append(roots, s.order...)

	for _, root := range roots {
		if visited[root] {
			continue
		}
		stack := []*frame{{id: root}}
		visited[root] = true
		onStack[root] = true

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			out := s.nodes[top.id].state.OutgoingEdgeIDs
			if top.next >= len(out) {
				onStack[top.id] = false
				stack = stack[:len(stack)-1]
				continue
			}
			edge := s.edges[out[top.next]]
			top.next++

			target := edge.ToStateID
			switch {
			case onStack[target]:
				cycles++
			case !visited[target]:
				visited[target] = true
				onStack[target] = true
				stack = append(stack, &frame{id: target})
			}
		}
	}
	return cycles
}

func (s *Store) successorsLocked(id string) []string {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.state.OutgoingEdgeIDs))
	for _, eid := range n.state.OutgoingEdgeIDs {
		out = append(out, s.edges[eid].ToStateID)
	}
	return out
}

// ShortestPath returns the state ids on a shortest directed path from -> to, inclusive
func (s *Store) ShortestPath(from, to string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[from]; !ok {
		return nil, fmt.Errorf("failed to find path from %s: %w", from, ErrStateNotFound)
	}
	if _, ok := s.nodes[to]; !ok {
		return nil, fmt.Errorf("failed to find path to %s: %w", to, ErrStateNotFound)
	}
	if from == to {
		return []string{from}, nil
	}

	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range s.successorsLocked(current) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == to {
				return buildPath(parent, from, to), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("failed to find path %s -> %s: %w", from, to, ErrNoPath)
}

// PathActions returns the transitions along a shortest path from -> to
func (s *Store) PathActions(from, to string) ([]*Transition, error) {
	path, err := s.ShortestPath(from, to)
	if err != nil {
		return nil, err
	}
	steps := make([]*Transition, 0, len(path)-1)
	for i := 0; i+1 < len(path); i++ {
		edge, ok := s.TransitionBetween(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("failed to resolve step %s -> %s: %w", path[i], path[i+1], ErrNoPath)
		}
		steps = append(steps, edge)
	}
	return steps, nil
}

func buildPath(parent map[string]string, from, to string) []string {
	var reversed []string
	for at := to; at != from; at = parent[at] {
		reversed = append(reversed, at)
	}
	reversed = append(reversed, from)

	path := make([]string, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}
