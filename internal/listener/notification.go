package listener

import "fmt"

// Kind identifies the notification variant.
type Kind int

const (
	EntityAdded Kind = iota + 1
	EntityRemoved
	VariableChanged
	ElementAdded
	ElementRemoved
	ElementMoved
	ListVariableChanged
	SubListChanged
)

var kindNames = map[Kind]string{
	EntityAdded:         "entity_added",
	EntityRemoved:       "entity_removed",
	VariableChanged:     "variable_changed",
	ElementAdded:        "element_added",
	ElementRemoved:      "element_removed",
	ElementMoved:        "element_moved",
	ListVariableChanged: "list_variable_changed",
	SubListChanged:      "sub_list_changed",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsRange reports whether the variant carries a [from, to) index range.
func (k Kind) IsRange() bool {
	return k == ListVariableChanged || k == SubListChanged
}

// IsElement reports whether the variant is a synchronous list element event.
func (k Kind) IsElement() bool {
	return k == ElementAdded || k == ElementRemoved || k == ElementMoved
}

// Notification describes one state change. It is a value; the zero value is
// not a valid notification.
type Notification struct {
	kind      Kind
	entity    any
	index     int
	toIndex   int
	dest      any
	destIndex int
	element   any
}

// Key is the deduplication identity of a notification inside a queue: the
// variant and the entity identity. Payload such as indices is ignored.
type Key struct {
	kind   Kind
	entity any
}

// NewEntityAdded builds an EntityAdded notification.
func NewEntityAdded(entity any) Notification {
	return Notification{kind: EntityAdded, entity: entity}
}

// NewEntityRemoved builds an EntityRemoved notification.
func NewEntityRemoved(entity any) Notification {
	return Notification{kind: EntityRemoved, entity: entity}
}

// NewVariableChanged builds a VariableChanged notification.
func NewVariableChanged(entity any) Notification {
	return Notification{kind: VariableChanged, entity: entity}
}

// NewElementAdded builds an ElementAdded notification.
func NewElementAdded(entity any, index int) Notification {
	return Notification{kind: ElementAdded, entity: entity, index: index}
}

// NewElementRemoved builds an ElementRemoved notification. element may be nil
// on the before side, when it is still in the list.
func NewElementRemoved(entity any, index int, element any) Notification {
	return Notification{kind: ElementRemoved, entity: entity, index: index, element: element}
}

// NewElementMoved builds an ElementMoved notification.
func NewElementMoved(source any, sourceIndex int, dest any, destIndex int) Notification {
	return Notification{kind: ElementMoved, entity: source, index: sourceIndex, dest: dest, destIndex: destIndex}
}

// NewListVariableChanged builds a ListVariableChanged notification for the
// range [fromIndex, toIndex).
func NewListVariableChanged(entity any, fromIndex, toIndex int) Notification {
	return Notification{kind: ListVariableChanged, entity: entity, index: fromIndex, toIndex: toIndex}
}

// NewSubListChanged builds a SubListChanged notification for the range
// [fromIndex, toIndex).
func NewSubListChanged(entity any, fromIndex, toIndex int) Notification {
	return Notification{kind: SubListChanged, entity: entity, index: fromIndex, toIndex: toIndex}
}

func (n Notification) Kind() Kind  { return n.kind }
func (n Notification) Entity() any { return n.entity }

// Index is the element index, or the source index of a move, or the start of
// a range.
func (n Notification) Index() int { return n.index }

// ToIndex is the exclusive end of a range notification.
func (n Notification) ToIndex() int { return n.toIndex }

// Dest is the destination entity of an ElementMoved notification.
func (n Notification) Dest() any { return n.dest }

// DestIndex is the destination index of an ElementMoved notification.
func (n Notification) DestIndex() int { return n.destIndex }

// Element is the removed element of an after-side ElementRemoved.
func (n Notification) Element() any { return n.element }

// Key returns the queue deduplication key. Entities are pointers, so two
// notifications share a key only when they concern the same entity instance.
func (n Notification) Key() Key {
	return Key{kind: n.kind, entity: n.entity}
}

// widen returns a range notification covering both n and other.
func (n Notification) widen(other Notification) Notification {
	n.index = min(n.index, other.index)
	n.toIndex = max(n.toIndex, other.toIndex)
	return n
}

func (n Notification) String() string {
	switch {
	case n.kind == ElementMoved:
		return fmt.Sprintf("%s(%v[%d] -> %v[%d])", n.kind, n.entity, n.index, n.dest, n.destIndex)
	case n.kind.IsRange():
		return fmt.Sprintf("%s(%v[%d:%d])", n.kind, n.entity, n.index, n.toIndex)
	case n.kind.IsElement():
		return fmt.Sprintf("%s(%v[%d])", n.kind, n.entity, n.index)
	default:
		return fmt.Sprintf("%s(%v)", n.kind, n.entity)
	}
}
