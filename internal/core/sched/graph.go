package sched

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/crypto/blake2b"
)

// GraphTask is one node of the tick's task DAG. The root has no task.
type GraphTask struct {
	task     *Task
	name     string
	succ     []*GraphTask
	preds    int     // incoming edges, fixed once the graph is built
	priority float64 // chain priority, doubled for dedicated tasks
	seq      int     // creation order

	// runtime, guarded by Scheduler.mu in concurrent mode
	remaining int
	done      bool
}

func (n *GraphTask) Task() *Task              { return n.task }
func (n *GraphTask) Name() string             { return n.name }
func (n *GraphTask) Successors() []*GraphTask { return n.succ }
func (n *GraphTask) Predecessors() int        { return n.preds }
func (n *GraphTask) Priority() float64        { return n.priority }
func (n *GraphTask) IsRoot() bool             { return n.task == nil }

// Kind returns the task kind. The root reports Barrier: it precedes everything.
func (n *GraphTask) Kind() TaskKind {
	if n.task == nil {
		return Barrier
	}
	return n.task.kind
}

// addSuccessor links n → s once. Returns false if the edge already existed.
func (n *GraphTask) addSuccessor(s *GraphTask) bool {
	for _, x := range n.succ {
		if x == s {
			return false
		}
	}
	n.succ = append(n.succ, s)
	s.preds++
	return true
}

// Graph is the DAG built from one tick's chains.
type Graph struct {
	root     *GraphTask
	nodes    []*GraphTask // creation order, root first
	chains   []*Chain     // execution order after sorting and reordering
	edges    int
	dangling int
}

func (g *Graph) Root() *GraphTask    { return g.root }
func (g *Graph) Nodes() []*GraphTask { return g.nodes }
func (g *Graph) Chains() []*Chain    { return g.chains }
func (g *Graph) EdgeCount() int      { return g.edges }

// Dangling counts task nodes with no successor: chain tails that no later
// barrier joined. They only matter for completion counting, never ordering.
func (g *Graph) Dangling() int { return g.dangling }

// Edge is a directed edge between two node names.
type Edge struct {
	From, To string
}

// Edges returns every edge sorted by (From, To).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, n := range g.nodes {
		for _, s := range n.succ {
			out = append(out, Edge{From: n.name, To: s.name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Fingerprint hashes the sorted edge set. Two graphs built from the same
// registrations share a fingerprint.
func (g *Graph) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	for _, e := range g.Edges() {
		h.Write([]byte(e.From))
		h.Write([]byte{0})
		h.Write([]byte(e.To))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// sortChains orders by sort key, ties by registration order.
func sortChains(chains []*Chain) {
	sort.SliceStable(chains, func(i, j int) bool {
		if chains[i].sortKey != chains[j].sortKey {
			return chains[i].sortKey < chains[j].sortKey
		}
		return chains[i].order < chains[j].order
	})
}

// checkDeclarations reports every duplicate name, unknown dependency and
// self dependency at once.
func checkDeclarations(chains []*Chain) error {
	names := make(map[string]struct{}, len(chains))
	var err error
	for _, c := range chains {
		if _, dup := names[c.name]; dup {
			err = multierr.Append(err, graphErrorf(ErrDuplicateChain, "%q", c.name))
		}
		names[c.name] = struct{}{}
	}
	for _, c := range chains {
		for _, dep := range c.dependsOn {
			if dep == c.name {
				err = multierr.Append(err, graphErrorf(ErrDependencyCycle, "%q depends on itself", c.name))
				continue
			}
			if _, ok := names[dep]; !ok {
				err = multierr.Append(err, graphErrorf(ErrUnknownDependency, "%q depends on %q", c.name, dep))
			}
		}
	}
	return err
}

func indexChains(chains []*Chain) map[string]int {
	idx := make(map[string]int, len(chains))
	for i, c := range chains {
		idx[c.name] = i
	}
	return idx
}

// reorderChains moves every chain behind the latest of its dependencies,
// retrying the same slot after each move. Acyclic declarations settle in at
// most n² moves; hitting that ceiling means the declarations form a cycle.
func reorderChains(chains []*Chain) error {
	idx := indexChains(chains)
	limit := len(chains)*len(chains) + 1
	moves := 0
	for i := 0; i < len(chains); {
		latest := -1
		for _, dep := range chains[i].dependsOn {
			if j := idx[dep]; j > latest {
				latest = j
			}
		}
		if latest <= i {
			i++
			continue
		}
		moves++
		if moves > limit {
			return graphErrorf(ErrDependencyCycle, "%q cannot be placed after %s",
				chains[i].name, strings.Join(chains[i].dependsOn, ", "))
		}
		c := chains[i]
		copy(chains[i:latest], chains[i+1:latest+1])
		chains[latest] = c
		idx = indexChains(chains)
	}
	return nil
}

func (s *Scheduler) newNode(t *Task, priority float64) *GraphTask {
	n := s.nodes.alloc()
	n.task = t
	n.priority = priority
	n.seq = s.nodes.len() - 1
	if t == nil {
		n.name = "root"
	} else {
		n.name = fmt.Sprintf("%s#%d:%s", t.chain.name, t.index, t.kind)
		if t.kind == Dedicated {
			n.priority *= 2
		}
	}
	return n
}

// buildGraph turns the registered chains into the tick DAG.
func (s *Scheduler) buildGraph() (*Graph, error) {
	chains := append([]*Chain(nil), s.registered...)
	sortChains(chains)
	if err := checkDeclarations(chains); err != nil {
		return nil, err
	}
	if err := reorderChains(chains); err != nil {
		return nil, err
	}

	g := &Graph{chains: chains}
	g.root = s.newNode(nil, 0)
	g.nodes = append(g.nodes, g.root)

	link := func(from, to *GraphTask) {
		if from.addSuccessor(to) {
			g.edges++
		}
	}

	first := make(map[string]*GraphTask, len(chains))
	last := make(map[string]*GraphTask, len(chains))

	lastSync := g.root
	var open []*GraphTask // chain tails not yet joined by a barrier
	for _, c := range chains {
		prev := lastSync
		for t := c.first; t != nil; t = t.next {
			n := s.newNode(t, c.priority)
			g.nodes = append(g.nodes, n)
			link(prev, n)
			if t.kind == Barrier {
				for _, tail := range open {
					link(tail, n)
				}
				open = open[:0]
				lastSync = n
			}
			if t == c.first {
				first[c.name] = n
			}
			prev = n
		}
		if c.length > 0 {
			last[c.name] = prev
			if prev != lastSync {
				open = append(open, prev)
			}
		}
	}

	// Explicit chain dependencies. An empty chain forwards to whatever its
	// own dependencies ended on.
	byName := make(map[string]*Chain, len(chains))
	for _, c := range chains {
		byName[c.name] = c
	}
	var tails func(name string, seen map[string]bool) []*GraphTask
	tails = func(name string, seen map[string]bool) []*GraphTask {
		if n, ok := last[name]; ok {
			return []*GraphTask{n}
		}
		if seen[name] {
			return nil
		}
		seen[name] = true
		var out []*GraphTask
		for _, dep := range byName[name].dependsOn {
			out = append(out, tails(dep, seen)...)
		}
		return out
	}
	for _, c := range chains {
		head, ok := first[c.name]
		if !ok {
			continue
		}
		for _, dep := range c.dependsOn {
			for _, tail := range tails(dep, map[string]bool{}) {
				link(tail, head)
			}
		}
	}

	for _, n := range g.nodes[1:] {
		if len(n.succ) == 0 {
			g.dangling++
		}
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate proves the graph acyclic with Kahn's algorithm.
func (g *Graph) validate() error {
	indeg := make(map[*GraphTask]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = n.preds
	}
	queue := []*GraphTask{g.root}
	visited := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		visited++
		for _, s := range n.succ {
			indeg[s]--
			if indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	if visited != len(g.nodes) {
		var stuck []string
		for _, n := range g.nodes {
			if indeg[n] > 0 {
				stuck = append(stuck, n.name)
			}
		}
		return graphErrorf(ErrGraphCycle, "%d of %d nodes unreachable: %s",
			len(g.nodes)-visited, len(g.nodes), strings.Join(stuck, ", "))
	}
	return nil
}
