// Package ranking implements forest selection for focused output.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/effectflow/internal/model"
)

// Reach counts the handler nodes in the tree under n.
func Reach(n *model.EffectTreeNode) int {
	count := 0
	if n.Kind == model.NodeEffect {
		count++
	}
	for _, c := range n.Children {
		count += Reach(c)
	}
	return count
}

// SelectRoots returns the maxRoots roots that reach the most handlers. Ties
// are broken by the action's rank, then by discovery order. The selection
// keeps discovery order. If maxRoots is <= 0 or >= len(forest), forest is
// returned unchanged.
func SelectRoots(forest []*model.EffectTreeNode, ranks map[string]float64, maxRoots int) []*model.EffectTreeNode {
	if maxRoots <= 0 || maxRoots >= len(forest) {
		return forest
	}

	type scored struct {
		pos   int
		reach int
		rank  float64
	}
	scores := make([]scored, len(forest))
	for i, root := range forest {
		scores[i] = scored{pos: i, reach: Reach(root), rank: ranks[root.TriggeringType]}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].reach != scores[j].reach {
			return scores[i].reach > scores[j].reach
		}
		return scores[i].rank > scores[j].rank
	})

	keep := make([]int, 0, maxRoots)
	for _, s := range scores[:maxRoots] {
		keep = append(keep, s.pos)
	}
	sort.Ints(keep)

	selected := make([]*model.EffectTreeNode, 0, maxRoots)
	for _, i := range keep {
		selected = append(selected, forest[i])
	}
	return selected
}

// FilterByAction returns the roots whose tree mentions an action or handler
// whose name contains substr (case-insensitive).
func FilterByAction(forest []*model.EffectTreeNode, substr string) []*model.EffectTreeNode {
	lower := strings.ToLower(substr)
	out := []*model.EffectTreeNode{}
	for _, root := range forest {
		if mentions(root, lower) {
			out = append(out, root)
		}
	}
	return out
}

func mentions(n *model.EffectTreeNode, lower string) bool {
	if strings.Contains(strings.ToLower(n.TriggeringType), lower) {
		return true
	}
	if n.Kind == model.NodeEffect && strings.Contains(strings.ToLower(n.OriginName), lower) {
		return true
	}
	for _, c := range n.Children {
		if mentions(c, lower) {
			return true
		}
	}
	return false
}

// FilterMappings returns the mappings that trigger on or dispatch an action
// containing substr, or whose name contains it (case-insensitive).
func FilterMappings(mappings []model.EffectMapping, substr string) []model.EffectMapping {
	lower := strings.ToLower(substr)
	match := func(ts []model.Token) bool {
		for _, t := range ts {
			if t.IsLiteral() && strings.Contains(strings.ToLower(t.Value), lower) {
				return true
			}
		}
		return false
	}

	out := []model.EffectMapping{}
	for i := range mappings {
		m := &mappings[i]
		if strings.Contains(strings.ToLower(m.Name), lower) || match(m.InputTypes) || match(m.ReturnTypes) {
			out = append(out, *m)
		}
	}
	return out
}

// MappingsIn returns the mappings that appear as handler nodes anywhere in
// forest, in mapping order.
func MappingsIn(forest []*model.EffectTreeNode, mappings []model.EffectMapping) []model.EffectMapping {
	type handler struct{ name, loc string }
	seen := make(map[handler]struct{})
	var walk func(n *model.EffectTreeNode)
	walk = func(n *model.EffectTreeNode) {
		if n.Kind == model.NodeEffect {
			seen[handler{n.OriginName, n.SourceLocation}] = struct{}{}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range forest {
		walk(root)
	}

	out := []model.EffectMapping{}
	for i := range mappings {
		m := &mappings[i]
		if _, ok := seen[handler{m.Name, m.Location.String()}]; ok {
			out = append(out, *m)
		}
	}
	return out
}
