// Package dag computes scheduling decisions over the items of one queue:
// which items are ready, the dependency edges between them, and a
// conflict-aware plan of parallel batches.
//
// Batching is a greedy, order-preserving partition. Items are visited in
// dependency order (ascending execution_order among available items) and each
// joins the most recently opened batch unless it depends on an item there or
// shares a touched file with one; otherwise it opens a new batch. Batch count
// is not minimized.
package dag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

// Node is a queue item annotated with its readiness.
type Node struct {
	ItemID           string            `json:"item_id"`
	IssueID          string            `json:"issue_id"`
	SolutionID       string            `json:"solution_id"`
	Status           domain.ItemStatus `json:"status"`
	ExecutionOrder   int               `json:"execution_order"`
	ExecutionGroup   string            `json:"execution_group"`
	SemanticPriority float64           `json:"semantic_priority"`
	DependsOn        []string          `json:"depends_on"`
	FilesTouched     []string          `json:"files_touched"`

	// Ready is true for pending items whose dependencies all completed.
	Ready bool `json:"ready"`

	// BlockedBy lists unsatisfied dependencies of a pending item.
	BlockedBy []string `json:"blocked_by"`
}

// Edge is a dependency: From must complete before To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the scheduling view of a queue.
type Graph struct {
	QueueID         string     `json:"queue_id"`
	Nodes           []Node     `json:"nodes"`
	Edges           []Edge     `json:"edges"`
	ParallelBatches [][]string `json:"parallel_batches"`
	BatchesNeeded   int        `json:"batches_needed"`
}

// Compute builds the graph for queue. It fails with ErrDependencyCycle when
// the items' dependencies cannot be ordered.
func Compute(queue *domain.Queue) (*Graph, error) {
	items := queue.Items

	ordered, err := Order(items)
	if err != nil {
		return nil, fmt.Errorf("queue %s: %w", queue.ID, err)
	}

	blocked := Blockers(items)
	nodes := make([]Node, 0, len(items))
	edges := make([]Edge, 0)
	for _, item := range items {
		node := Node{
			ItemID:           item.ItemID,
			IssueID:          item.IssueID,
			SolutionID:       item.SolutionID,
			Status:           item.Status,
			ExecutionOrder:   item.ExecutionOrder,
			ExecutionGroup:   item.ExecutionGroup,
			SemanticPriority: item.SemanticPriority,
			DependsOn:        nonNil(item.DependsOn),
			FilesTouched:     nonNil(item.FilesTouched),
			BlockedBy:        []string{},
		}
		if item.Status == domain.ItemStatusPending {
			node.BlockedBy = nonNil(blocked[item.ItemID])
			node.Ready = len(node.BlockedBy) == 0
		}
		nodes = append(nodes, node)

		for _, dep := range item.DependsOn {
			edges = append(edges, Edge{From: dep, To: item.ItemID})
		}
	}

	batches := Batches(ordered)
	return &Graph{
		QueueID:         queue.ID,
		Nodes:           nodes,
		Edges:           edges,
		ParallelBatches: batches,
		BatchesNeeded:   len(batches),
	}, nil
}

// Blockers maps each item id to the dependencies that are not completed.
// Dependencies naming items absent from the queue count as unsatisfied.
func Blockers(items []domain.QueueItem) map[string][]string {
	status := make(map[string]domain.ItemStatus, len(items))
	for _, item := range items {
		status[item.ItemID] = item.Status
	}

	out := make(map[string][]string, len(items))
	for _, item := range items {
		var unmet []string
		for _, dep := range item.DependsOn {
			if s, ok := status[dep]; !ok || s != domain.ItemStatusCompleted {
				unmet = append(unmet, dep)
			}
		}
		out[item.ItemID] = unmet
	}
	return out
}

// Ready returns the pending items whose dependencies have all completed,
// best candidate first: lowest execution_order, then highest
// semantic_priority, then insertion order. Failed items are never ready.
func Ready(items []domain.QueueItem) []domain.QueueItem {
	blocked := Blockers(items)

	type candidate struct {
		item  domain.QueueItem
		index int
	}
	candidates := make([]candidate, 0)
	for i, item := range items {
		if item.Status == domain.ItemStatusPending && len(blocked[item.ItemID]) == 0 {
			candidates = append(candidates, candidate{item: item, index: i})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		ca, cb := candidates[a], candidates[b]
		if ca.item.ExecutionOrder != cb.item.ExecutionOrder {
			return ca.item.ExecutionOrder < cb.item.ExecutionOrder
		}
		if ca.item.SemanticPriority != cb.item.SemanticPriority {
			return ca.item.SemanticPriority > cb.item.SemanticPriority
		}
		return ca.index < cb.index
	})

	out := make([]domain.QueueItem, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}

// Order sorts items so every item follows the items it depends on. Among
// items whose dependencies are placed, the lowest execution_order goes first,
// with insertion order breaking ties. Unknown dependency ids are ignored.
func Order(items []domain.QueueItem) ([]domain.QueueItem, error) {
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ItemID] = i
	}

	inDegree := make([]int, len(items))
	forward := make([][]int, len(items))
	for i, item := range items {
		for _, dep := range item.DependsOn {
			j, ok := index[dep]
			if !ok {
				continue
			}
			inDegree[i]++
			forward[j] = append(forward[j], i)
		}
	}

	available := make([]int, 0)
	for i := range items {
		if inDegree[i] == 0 {
			available = append(available, i)
		}
	}

	ordered := make([]domain.QueueItem, 0, len(items))
	for len(available) > 0 {
		best := 0
		for k := 1; k < len(available); k++ {
			if before(items, available[k], available[best]) {
				best = k
			}
		}
		next := available[best]
		available = append(available[:best], available[best+1:]...)
		ordered = append(ordered, items[next])

		for _, dependent := range forward[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				available = append(available, dependent)
			}
		}
	}

	if len(ordered) != len(items) {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrDependencyCycle, strings.Join(cyclePath(items, index, inDegree), " -> "))
	}
	return ordered, nil
}

func before(items []domain.QueueItem, a, b int) bool {
	if items[a].ExecutionOrder != items[b].ExecutionOrder {
		return items[a].ExecutionOrder < items[b].ExecutionOrder
	}
	return a < b
}

// cyclePath reports one cycle among the items Kahn's algorithm could not
// place, written in edge direction (dependency first).
func cyclePath(items []domain.QueueItem, index map[string]int, inDegree []int) []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(items))
	parent := make([]int, len(items))
	var path []string

	var dfs func(n int) bool
	dfs = func(n int) bool {
		color[n] = gray
		for _, dep := range items[n].DependsOn {
			d, ok := index[dep]
			if !ok {
				continue
			}
			if color[d] == gray {
				path = []string{items[d].ItemID}
				for cur := n; cur != d; cur = parent[cur] {
					path = append(path, items[cur].ItemID)
				}
				path = append(path, items[d].ItemID)
				return true
			}
			if color[d] == white {
				parent[d] = n
				if dfs(d) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for i := range items {
		if inDegree[i] > 0 && color[i] == white && dfs(i) {
			return path
		}
	}
	return []string{"(cycle)"}
}

// Batches partitions the unfinished items of ordered into parallel batches.
// ordered must already respect dependencies (see Order). Completed and
// failed items are left out.
func Batches(ordered []domain.QueueItem) [][]string {
	batches := make([][]string, 0)
	var (
		lastIDs   map[string]struct{}
		lastFiles map[string]struct{}
	)

	for _, item := range ordered {
		if item.Status == domain.ItemStatusCompleted || item.Status == domain.ItemStatusFailed {
			continue
		}

		if len(batches) > 0 && fits(item, lastIDs, lastFiles) {
			last := len(batches) - 1
			batches[last] = append(batches[last], item.ItemID)
		} else {
			batches = append(batches, []string{item.ItemID})
			lastIDs = make(map[string]struct{})
			lastFiles = make(map[string]struct{})
		}

		lastIDs[item.ItemID] = struct{}{}
		for _, f := range item.FilesTouched {
			lastFiles[f] = struct{}{}
		}
	}
	return batches
}

func fits(item domain.QueueItem, ids, files map[string]struct{}) bool {
	for _, dep := range item.DependsOn {
		if _, ok := ids[dep]; ok {
			return false
		}
	}
	for _, f := range item.FilesTouched {
		if _, ok := files[f]; ok {
			return false
		}
	}
	return true
}

// Conflicts lists every file touched by more than one item, in first-seen
// order, with the items touching it in queue order.
func Conflicts(items []domain.QueueItem) []domain.Conflict {
	owners := make(map[string][]string)
	order := make([]string, 0)
	for _, item := range items {
		for _, f := range item.FilesTouched {
			if _, ok := owners[f]; !ok {
				order = append(order, f)
			}
			owners[f] = append(owners[f], item.ItemID)
		}
	}

	conflicts := make([]domain.Conflict, 0)
	for _, f := range order {
		if len(owners[f]) > 1 {
			conflicts = append(conflicts, domain.Conflict{File: f, ItemIDs: owners[f]})
		}
	}
	return conflicts
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
