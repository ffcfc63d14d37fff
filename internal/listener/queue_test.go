package listener

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ent struct{ name string }

func (e *ent) String() string { return e.name }

// =============================================================================
// Notification
// =============================================================================

func TestNotification_KeyIgnoresPayload(t *testing.T) {
	a := &ent{"a"}

	assert.Equal(t, NewListVariableChanged(a, 0, 1).Key(), NewListVariableChanged(a, 3, 9).Key())
	assert.Equal(t, NewElementAdded(a, 0).Key(), NewElementAdded(a, 5).Key())
	assert.NotEqual(t, NewVariableChanged(a).Key(), NewEntityAdded(a).Key())
	assert.NotEqual(t, NewListVariableChanged(a, 0, 1).Key(), NewSubListChanged(a, 0, 1).Key())
}

func TestNotification_KeyUsesIdentity(t *testing.T) {
	a1 := &ent{"a"}
	a2 := &ent{"a"}

	assert.NotEqual(t, NewVariableChanged(a1).Key(), NewVariableChanged(a2).Key())
}

func TestNotification_String(t *testing.T) {
	a, b := &ent{"a"}, &ent{"b"}

	assert.Equal(t, "variable_changed(a)", NewVariableChanged(a).String())
	assert.Equal(t, "element_added(a[2])", NewElementAdded(a, 2).String())
	assert.Equal(t, "list_variable_changed(a[1:3])", NewListVariableChanged(a, 1, 3).String())
	assert.Equal(t, "element_moved(a[0] -> b[4])", NewElementMoved(a, 0, b, 4).String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

// =============================================================================
// Queue
// =============================================================================

func TestQueue_AddDeduplicates(t *testing.T) {
	var q Queue
	a, b := &ent{"a"}, &ent{"b"}

	assert.True(t, q.Add(NewVariableChanged(a)))
	assert.True(t, q.Add(NewVariableChanged(b)))
	assert.False(t, q.Add(NewVariableChanged(a)))
	assert.True(t, q.Add(NewEntityAdded(a)))

	require.Equal(t, 3, q.Len())
	assert.Same(t, a, q.At(0).Entity())
	assert.Same(t, b, q.At(1).Entity())
	assert.Equal(t, EntityAdded, q.At(2).Kind())
}

func TestQueue_IndexedAboveThreshold(t *testing.T) {
	var q Queue
	ents := make([]*ent, 40)
	for i := range ents {
		ents[i] = &ent{fmt.Sprintf("e%d", i)}
		require.True(t, q.Add(NewVariableChanged(ents[i])))
	}
	require.NotNil(t, q.index)

	for i := range ents {
		assert.False(t, q.Add(NewVariableChanged(ents[i])), "e%d is already queued", i)
		assert.Same(t, ents[i], q.At(i).Entity(), "insertion order is kept")
	}
	assert.Equal(t, 40, q.Len())
}

func TestQueue_RemoveKeepsOrder(t *testing.T) {
	var q Queue
	ents := make([]*ent, 20)
	for i := range ents {
		ents[i] = &ent{fmt.Sprintf("e%d", i)}
		q.Add(NewVariableChanged(ents[i]))
	}

	assert.True(t, q.Remove(NewVariableChanged(ents[3])))
	assert.False(t, q.Remove(NewVariableChanged(ents[3])))
	assert.False(t, q.Contains(NewVariableChanged(ents[3])))
	assert.Same(t, ents[4], q.At(3).Entity())
	assert.True(t, q.Contains(NewVariableChanged(ents[19])))

	for i := 4; i < 10; i++ {
		q.Remove(NewVariableChanged(ents[i]))
	}
	assert.Nil(t, q.index, "index is dropped below the threshold")
	assert.True(t, q.Contains(NewVariableChanged(ents[12])))
}

func TestQueue_ClearEmpties(t *testing.T) {
	var q Queue
	for i := 0; i < 30; i++ {
		q.Add(NewVariableChanged(&ent{fmt.Sprintf("e%d", i)}))
	}

	q.Clear()

	assert.Equal(t, 0, q.Len())
	assert.Nil(t, q.index)
	assert.True(t, q.Add(NewVariableChanged(&ent{"x"})))
}

func TestQueue_MergeWidensRange(t *testing.T) {
	var q Queue
	a := &ent{"a"}
	q.Add(NewListVariableChanged(a, 2, 3))

	q.merge(NewListVariableChanged(a, 0, 1))
	q.merge(NewListVariableChanged(a, 1, 5))

	require.Equal(t, 1, q.Len())
	assert.Equal(t, 0, q.At(0).Index())
	assert.Equal(t, 5, q.At(0).ToIndex())
}

func TestQueue_MergeIgnoresOtherVariants(t *testing.T) {
	var q Queue
	a := &ent{"a"}
	q.Add(NewVariableChanged(a))

	q.merge(NewVariableChanged(a))
	q.merge(NewListVariableChanged(&ent{"b"}, 0, 1))

	assert.Equal(t, 1, q.Len())
}
