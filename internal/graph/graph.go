// Package graph builds the reachability forest over effect mappings and
// ranks actions by how much of the effect graph they set off.
package graph

import (
	"math"
	"sort"

	"github.com/agext/levenshtein"

	"github.com/phobologic/effectflow/internal/model"
)

// index maps each literal trigger to the mappings subscribed to it, in
// mapping discovery order, and remembers the order triggers were first seen.
type index struct {
	handlers map[string][]*model.EffectMapping
	order    []string
}

func newIndex(mappings []model.EffectMapping) *index {
	ix := &index{handlers: make(map[string][]*model.EffectMapping)}
	for i := range mappings {
		m := &mappings[i]
		for _, t := range m.InputTypes {
			if !t.IsLiteral() {
				continue
			}
			hs, seen := ix.handlers[t.Value]
			if !seen {
				ix.order = append(ix.order, t.Value)
			}
			if len(hs) > 0 && hs[len(hs)-1] == m {
				continue // same trigger listed twice on one handler
			}
			ix.handlers[t.Value] = append(hs, m)
		}
	}
	return ix
}

// BuildForest returns one tree per distinct trigger across mappings, ordered
// by first discovery. Expansion tracks the actions on the current
// root-to-node path and emits a cycle leaf instead of re-entering one.
func BuildForest(mappings []model.EffectMapping) []*model.EffectTreeNode {
	ix := newIndex(mappings)
	forest := make([]*model.EffectTreeNode, 0, len(ix.order))
	for _, t := range ix.order {
		path := map[string]struct{}{t: {}}
		forest = append(forest, &model.EffectTreeNode{
			Kind:           model.NodeRoot,
			TriggeringType: t,
			Children:       ix.expand(t, path),
		})
	}
	return forest
}

// expand returns the handler nodes triggered by action t, or an unhandled
// leaf when nothing subscribes to it. t must already be on path.
func (ix *index) expand(t string, path map[string]struct{}) []*model.EffectTreeNode {
	hs := ix.handlers[t]
	if len(hs) == 0 {
		return []*model.EffectTreeNode{{
			Kind:           model.NodeUnhandled,
			TriggeringType: t,
			OriginName:     model.NoFurtherEffect,
		}}
	}

	nodes := make([]*model.EffectTreeNode, 0, len(hs))
	for _, m := range hs {
		n := &model.EffectTreeNode{
			Kind:           model.NodeEffect,
			TriggeringType: t,
			OriginName:     m.Name,
			SourceLocation: m.Location.String(),
		}
		for _, r := range m.ReturnTypes {
			switch {
			case r == model.Void:
			case !r.IsLiteral():
				n.Children = append(n.Children, &model.EffectTreeNode{
					Kind:       model.NodeUnresolved,
					OriginName: model.UnknownOrigin,
				})
			default:
				if _, onPath := path[r.Value]; onPath {
					n.Children = append(n.Children, &model.EffectTreeNode{
						Kind:           model.NodeCycle,
						TriggeringType: r.Value,
						OriginName:     model.CycleOrigin,
					})
					continue
				}
				path[r.Value] = struct{}{}
				n.Children = append(n.Children, ix.expand(r.Value, path)...)
				delete(path, r.Value)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Unhandled returns the literal actions some handler dispatches but no
// handler subscribes to, in discovery order.
func Unhandled(mappings []model.EffectMapping) []Dispatch {
	ix := newIndex(mappings)
	seen := make(map[string]struct{})
	var out []Dispatch
	for i := range mappings {
		m := &mappings[i]
		for _, r := range m.ReturnTypes {
			if !r.IsLiteral() || r == model.Void {
				continue
			}
			if _, handled := ix.handlers[r.Value]; handled {
				continue
			}
			if _, dup := seen[r.Value]; dup {
				continue
			}
			seen[r.Value] = struct{}{}
			out = append(out, Dispatch{Action: r.Value, Origin: m.Name, Location: m.Location.String()})
		}
	}
	return out
}

// Dispatch is an action dispatched by a handler.
type Dispatch struct {
	Action   string `json:"action"`
	Origin   string `json:"origin"`
	Location string `json:"fileInfo"`
}

// MaxSuggestionDistance is the largest edit distance reported as a near miss.
const MaxSuggestionDistance = 2

// Suggest pairs each unhandled dispatched action with the closest handled
// trigger, when one lies within MaxSuggestionDistance edits. Ties go to the
// trigger discovered first.
func Suggest(mappings []model.EffectMapping) []model.Suggestion {
	ix := newIndex(mappings)
	var out []model.Suggestion
	for _, d := range Unhandled(mappings) {
		best, bestDist := "", MaxSuggestionDistance+1
		for _, t := range ix.order {
			if dist := levenshtein.Distance(d.Action, t, nil); dist < bestDist {
				best, bestDist = t, dist
			}
		}
		if best == "" {
			continue
		}
		out = append(out, model.Suggestion{
			Action:   d.Action,
			Nearest:  best,
			Distance: bestDist,
			Origin:   d.Origin,
		})
	}
	return out
}

// Rank applies PageRank over the action graph, where every handler adds an
// edge from each of its triggers to each action it dispatches. Actions that
// many chains lead into rank highest.
func Rank(mappings []model.EffectMapping) map[string]float64 {
	nodes := make(map[string]struct{})
	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)

	for i := range mappings {
		m := &mappings[i]
		for _, in := range m.InputTypes {
			if !in.IsLiteral() {
				continue
			}
			nodes[in.Value] = struct{}{}
			for _, r := range m.ReturnTypes {
				if !r.IsLiteral() || r == model.Void {
					continue
				}
				nodes[r.Value] = struct{}{}
				outEdges[in.Value] = append(outEdges[in.Value], r.Value)
				outDegree[in.Value]++
			}
		}
	}
	return pageRank(nodes, outEdges, outDegree, 0.85, 100, 1e-6)
}

func pageRank(
	nodes map[string]struct{},
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}

	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Terminal actions spread their rank uniformly.
		var danglingSum float64
		for node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for _, src := range sortedKeys(outEdges) {
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range outEdges[src] {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
