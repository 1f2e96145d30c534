package payloads

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_Observe_FiltersByContentTypeAndOrder(t *testing.T) {
	mgr := NewManager()

	var noteCalls, anyCalls int
	var order []string

	mgr.Observe(TypeNote, func(items []Item, source Source, sourceKey string, kind ObservationKind) {
		noteCalls++
		order = append(order, "note")
	})
	mgr.Observe(TypeAny, func(items []Item, source Source, sourceKey string, kind ObservationKind) {
		anyCalls++
		order = append(order, "any")
	})

	_, err := mgr.Emit([]Payload{notePayload("n1", "hi"), tagPayload("t1")}, SourceLocalChanged)
	require.NoError(t, err)

	require.Equal(t, 1, noteCalls)
	require.Equal(t, 1, anyCalls)
	require.Equal(t, []string{"note", "any"}, order)
}

func TestManager_Unobserve_StopsDelivery(t *testing.T) {
	mgr := NewManager()
	calls := 0
	key := mgr.Observe(TypeAny, func(items []Item, source Source, sourceKey string, kind ObservationKind) {
		calls++
	})

	_, err := mgr.Emit([]Payload{notePayload("n1", "hi")}, SourceLocalChanged)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	mgr.Unobserve(key)

	_, err = mgr.Emit([]Payload{notePayload("n2", "bye")}, SourceLocalChanged)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestManager_Emit_InsertedThenChangedKind(t *testing.T) {
	mgr := NewManager()
	var kinds []ObservationKind
	mgr.Observe(TypeNote, func(items []Item, source Source, sourceKey string, kind ObservationKind) {
		kinds = append(kinds, kind)
	})

	p := notePayload("n1", "v1")
	_, err := mgr.Emit([]Payload{p}, SourceLocalChanged)
	require.NoError(t, err)

	p.Content = map[string]any{"title": "v2", "text": "", "references": []any{}}
	_, err = mgr.Emit([]Payload{p}, SourceLocalChanged)
	require.NoError(t, err)

	require.Equal(t, []ObservationKind{Inserted, Changed}, kinds)
}

func TestDuplicate_AssignsFreshUUIDAndConflictOf(t *testing.T) {
	mgr := NewManager()
	_, err := mgr.Emit([]Payload{notePayload("n1", "hi")}, SourceLocalChanged)
	require.NoError(t, err)

	original, _ := mgr.Collection.Get("n1")
	dup := Duplicate(original)

	require.NotEqual(t, "n1", dup.UUID)
	require.Equal(t, "n1", dup.ConflictOf)
	require.True(t, dup.Dirty)
}

func TestManager_Emit_DirtyDeletedStaysQueuedUntilConfirmed(t *testing.T) {
	mgr := NewManager()
	_, err := mgr.Emit([]Payload{notePayload("n1", "hi")}, SourceLocalChanged)
	require.NoError(t, err)

	tombstone := notePayload("n1", "hi")
	tombstone.Deleted = true
	tombstone.Dirty = true
	tombstone.Content = nil
	_, err = mgr.Emit([]Payload{tombstone}, SourceLocalChanged)
	require.NoError(t, err)

	item, ok := mgr.Collection.Get("n1")
	require.True(t, ok, "a dirty tombstone must stay in the collection so DirtySet can find it")
	require.True(t, item.Payload().Deleted)

	confirmed := tombstone
	confirmed.Dirty = false
	_, err = mgr.Emit([]Payload{confirmed}, SourceRemoteSaved)
	require.NoError(t, err)

	_, ok = mgr.Collection.Get("n1")
	require.False(t, ok, "once the deletion is no longer dirty it is discardable")
}

func TestCollection_ByType_PreservesInsertionOrder(t *testing.T) {
	c := NewCollection()
	n1, _ := FromPayload(notePayload("n1", "a"))
	n2, _ := FromPayload(notePayload("n2", "b"))
	tag, _ := FromPayload(tagPayload("t1"))

	c.Upsert(n1)
	c.Upsert(tag)
	c.Upsert(n2)

	notes := c.ByType(TypeNote)
	require.Len(t, notes, 2)
	require.Equal(t, "n1", notes[0].UUID())
	require.Equal(t, "n2", notes[1].UUID())

	c.Remove("n1")
	require.Equal(t, 2, c.Len())
	_, ok := c.Get("n1")
	require.False(t, ok)
}
