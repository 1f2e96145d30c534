package payloads

// ReferenceGraph maintains forward and inverse item->item reference indices
// as two flat maps keyed by uuid, ("represent as two flat maps
// keyed by uuid; never as direct item-to-item links"). All traversals go
// through the maps so mutation is O(1) regardless of cycles.
type ReferenceGraph struct {
	forward map[string][]string
	inverse map[string][]string
}

// NewReferenceGraph returns an empty graph.
func NewReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{
		forward: make(map[string][]string),
		inverse: make(map[string][]string),
	}
}

// Forward returns the uuids that uuid directly references.
func (g *ReferenceGraph) Forward(uuid string) []string {
	return append([]string(nil), g.forward[uuid]...)
}

// Inverse returns the uuids that directly reference uuid.
func (g *ReferenceGraph) Inverse(uuid string) []string {
	return append([]string(nil), g.inverse[uuid]...)
}

// SetReferences replaces uuid's forward references with refs, updating the
// inverse index of every old and new referent so the symmetry invariant
// (A in inverse[B] iff B in forward[A]) always holds after the call
// returns.
func (g *ReferenceGraph) SetReferences(uuid string, refs []string) {
	old := g.forward[uuid]
	oldSet := toSet(old)
	newSet := toSet(refs)

	for _, referent := range old {
		if !newSet[referent] {
			g.removeInverse(referent, uuid)
		}
	}
	for _, referent := range refs {
		if !oldSet[referent] {
			g.addInverse(referent, uuid)
		}
	}

	if len(refs) == 0 {
		delete(g.forward, uuid)
	} else {
		g.forward[uuid] = append([]string(nil), refs...)
	}
}

// Remove detaches uuid from both indices entirely: it stops referencing
// anything, and anything that referenced it stops.
func (g *ReferenceGraph) Remove(uuid string) {
	for _, referent := range g.forward[uuid] {
		g.removeInverse(referent, uuid)
	}
	delete(g.forward, uuid)

	for _, referrer := range g.inverse[uuid] {
		g.forward[referrer] = removeString(g.forward[referrer], uuid)
		if len(g.forward[referrer]) == 0 {
			delete(g.forward, referrer)
		}
	}
	delete(g.inverse, uuid)
}

// Rekey moves all edges pointing at or from oldUUID onto newUUID, used by
// uuid alternation so referrers of the old uuid now reference
// the new one and vice versa.
func (g *ReferenceGraph) Rekey(oldUUID, newUUID string) (referrersToUpdate []string) {
	referrersToUpdate = append([]string(nil), g.inverse[oldUUID]...)
	forward := append([]string(nil), g.forward[oldUUID]...)
	rekeyed := make(map[string][]string, len(referrersToUpdate))
	for _, referrer := range referrersToUpdate {
		rekeyed[referrer] = replaceString(g.forward[referrer], oldUUID, newUUID)
	}

	g.Remove(oldUUID)
	g.SetReferences(newUUID, forward)
	for _, referrer := range referrersToUpdate {
		g.SetReferences(referrer, rekeyed[referrer])
	}
	return referrersToUpdate
}

func (g *ReferenceGraph) addInverse(referent, referrer string) {
	if !toSet(g.inverse[referent])[referrer] {
		g.inverse[referent] = append(g.inverse[referent], referrer)
	}
}

func (g *ReferenceGraph) removeInverse(referent, referrer string) {
	g.inverse[referent] = removeString(g.inverse[referent], referrer)
	if len(g.inverse[referent]) == 0 {
		delete(g.inverse, referent)
	}
}

func toSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[v] = true
	}
	return m
}

func removeString(s []string, v string) []string {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func replaceString(s []string, old, new string) []string {
	out := make([]string, len(s))
	for i, x := range s {
		if x == old {
			out[i] = new
		} else {
			out[i] = x
		}
	}
	return out
}
