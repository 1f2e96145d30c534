package payloads

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// assertSymmetric checks that for every pair (A,B), A references B iff B
// is in inverse[A].
func assertSymmetric(t *testing.T, g *ReferenceGraph, uuids []string) {
	t.Helper()
	for _, a := range uuids {
		for _, b := range g.Forward(a) {
			require.Contains(t, g.Inverse(b), a, "expected %s in inverse[%s]", a, b)
		}
		for _, referrer := range g.Inverse(a) {
			require.Contains(t, g.Forward(referrer), a, "expected %s in forward[%s]", a, referrer)
		}
	}
}

func TestReferenceGraph_SetReferences_MaintainsSymmetry(t *testing.T) {
	g := NewReferenceGraph()
	g.SetReferences("tag", []string{"note1", "note2"})
	assertSymmetric(t, g, []string{"tag", "note1", "note2"})
	require.ElementsMatch(t, []string{"note1", "note2"}, g.Forward("tag"))
	require.ElementsMatch(t, []string{"tag"}, g.Inverse("note1"))
}

func TestReferenceGraph_SetReferences_ToEmptyClearsInverse(t *testing.T) {
	g := NewReferenceGraph()
	g.SetReferences("tag", []string{"note1"})
	g.SetReferences("tag", nil)

	require.Empty(t, g.Forward("tag"))
	require.Empty(t, g.Inverse("note1"))
}

func TestReferenceGraph_Remove_DetachesBothDirections(t *testing.T) {
	g := NewReferenceGraph()
	g.SetReferences("tag", []string{"note1"})
	g.Remove("note1")

	require.Empty(t, g.Forward("tag"))
	assertSymmetric(t, g, []string{"tag", "note1"})
}

func TestReferenceGraph_Rekey_PreservesInverseRelationships(t *testing.T) {
	g := NewReferenceGraph()
	g.SetReferences("tag", []string{"noteA"})

	referrers := g.Rekey("noteA", "noteB")
	sort.Strings(referrers)
	require.Equal(t, []string{"tag"}, referrers)

	require.NotContains(t, g.Forward("tag"), "noteA")
	require.Contains(t, g.Forward("tag"), "noteB")
	require.Contains(t, g.Inverse("noteB"), "tag")
	require.Empty(t, g.Inverse("noteA"))
}

func TestReferenceGraph_CyclesDoNotBreakSymmetry(t *testing.T) {
	g := NewReferenceGraph()
	g.SetReferences("a", []string{"b"})
	g.SetReferences("b", []string{"a"})
	assertSymmetric(t, g, []string{"a", "b"})
}
