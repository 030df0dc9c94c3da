package domain

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/aretw0/ussdflow/pkg/flow"
)

// FlowDiff lists the changes between two versions of a flow. Ids are in
// sorted order.
type FlowDiff struct {
	AddedNodes   []string `json:"addedNodes,omitempty"`
	RemovedNodes []string `json:"removedNodes,omitempty"`
	ChangedNodes []string `json:"changedNodes,omitempty"`
	AddedEdges   []string `json:"addedEdges,omitempty"`
	RemovedEdges []string `json:"removedEdges,omitempty"`
	ChangedEdges []string `json:"changedEdges,omitempty"`
}

// Diff compares two flows. A nil old flow counts as empty. It returns nil
// when nothing changed; node positions and the viewport are ignored.
func Diff(old, next *flow.Graph) *FlowDiff {
	if old == nil {
		old = &flow.Graph{}
	}
	if next == nil {
		next = &flow.Graph{}
	}

	d := &FlowDiff{}
	d.AddedNodes, d.RemovedNodes, d.ChangedNodes = diffByID(old.Nodes, next.Nodes,
		func(n flow.Node) string { return n.ID },
		func(a, b flow.Node) bool { return a.Type == b.Type && sameJSON(a.Data, b.Data) })
	d.AddedEdges, d.RemovedEdges, d.ChangedEdges = diffByID(old.Edges, next.Edges,
		func(e flow.Edge) string { return e.ID },
		func(a, b flow.Edge) bool { return a == b })

	if d.Empty() {
		return nil
	}
	return d
}

// Empty reports whether the diff carries no change.
func (d *FlowDiff) Empty() bool {
	return d == nil || len(d.AddedNodes)+len(d.RemovedNodes)+len(d.ChangedNodes)+
		len(d.AddedEdges)+len(d.RemovedEdges)+len(d.ChangedEdges) == 0
}

func diffByID[T any](old, next []T, id func(T) string, same func(a, b T) bool) (added, removed, changed []string) {
	before := make(map[string]T, len(old))
	for _, v := range old {
		before[id(v)] = v
	}
	after := make(map[string]bool, len(next))
	for _, v := range next {
		k := id(v)
		after[k] = true
		prev, ok := before[k]
		switch {
		case !ok:
			added = append(added, k)
		case !same(prev, v):
			changed = append(changed, k)
		}
	}
	for k := range before {
		if !after[k] {
			removed = append(removed, k)
		}
	}
	slices.Sort(added)
	slices.Sort(removed)
	slices.Sort(changed)
	return added, removed, changed
}

// sameJSON compares by encoding, so 10 and 10.0 in a property bag are equal.
func sameJSON(a, b any) bool {
	x, errA := json.Marshal(a)
	y, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(x, y)
}
