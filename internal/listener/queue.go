package listener

// indexThreshold is the size above which the queue maintains a key index
// instead of scanning.
const indexThreshold = 16

// Queue is an insertion-ordered set of notifications keyed by Key.
//
// Small queues are scanned linearly; once a queue grows past indexThreshold
// it also keeps a map from key to position. The index is dropped again when
// the queue is cleared.
//
// Bulk removal is deliberately not offered: the engine only adds, removes a
// single notification, clears and iterates.
type Queue struct {
	items []Notification
	index map[Key]int
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int { return len(q.items) }

// At returns the i-th notification in insertion order.
func (q *Queue) At(i int) Notification { return q.items[i] }

// Contains reports whether a notification with the same key is queued.
func (q *Queue) Contains(n Notification) bool {
	return q.position(n.Key()) >= 0
}

// Add appends n unless a notification with the same key is already queued.
// It reports whether n was added.
func (q *Queue) Add(n Notification) bool {
	key := n.Key()
	if q.position(key) >= 0 {
		return false
	}
	q.items = append(q.items, n)
	if q.index != nil {
		q.index[key] = len(q.items) - 1
	} else if len(q.items) > indexThreshold {
		q.buildIndex()
	}
	return true
}

// Remove deletes the notification with the same key as n, keeping the order
// of the others. It reports whether anything was removed.
func (q *Queue) Remove(n Notification) bool {
	pos := q.position(n.Key())
	if pos < 0 {
		return false
	}
	q.items = append(q.items[:pos], q.items[pos+1:]...)
	if q.index != nil {
		if len(q.items) > indexThreshold {
			q.buildIndex()
		} else {
			q.index = nil
		}
	}
	return true
}

// Clear empties the queue.
func (q *Queue) Clear() {
	clear(q.items)
	q.items = q.items[:0]
	q.index = nil
}

// merge widens the range of the queued notification with n's key. It is a
// no-op for non-range variants or when nothing is queued under the key.
func (q *Queue) merge(n Notification) {
	if !n.kind.IsRange() {
		return
	}
	if pos := q.position(n.Key()); pos >= 0 {
		q.items[pos] = q.items[pos].widen(n)
	}
}

func (q *Queue) position(key Key) int {
	if q.index != nil {
		if pos, ok := q.index[key]; ok {
			return pos
		}
		return -1
	}
	for i := range q.items {
		if q.items[i].Key() == key {
			return i
		}
	}
	return -1
}

func (q *Queue) buildIndex() {
	q.index = make(map[Key]int, len(q.items))
	for i := range q.items {
		q.index[q.items[i].Key()] = i
	}
}
