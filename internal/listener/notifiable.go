package listener

import (
	"fmt"

	"github.com/roach88/umbra/internal/variable"
)

// Notifiable pairs one listener instance with its pending notification
// queue. The two implementations are basicNotifiable (VariableListener) and
// listNotifiable (ListVariableListener); no others exist.
type Notifiable interface {
	// Listener returns the wrapped listener.
	Listener() variable.Listener
	// GlobalOrder is the rank used to sort notifiables before triggering.
	GlobalOrder() int
	// Name identifies the notifiable in traces and errors.
	Name() string
	// Pending returns the number of queued notifications.
	Pending() int

	notifyBefore(n Notification)
	notifyAfter(n Notification)
	triggerAll() int
	reset()
	close()
}

type firedFunc func(nf Notifiable, n Notification)

type notifiableBase struct {
	sd    variable.ScoreDirector
	name  string
	order int
	queue Queue
	fired firedFunc
}

func (b *notifiableBase) GlobalOrder() int { return b.order }
func (b *notifiableBase) Name() string     { return b.name }
func (b *notifiableBase) Pending() int     { return b.queue.Len() }

func (b *notifiableBase) report(self Notifiable, n Notification) {
	if b.fired != nil {
		b.fired(self, n)
	}
}

// newNotifiable wraps l in the variant matching its sources. List sources
// require a ListVariableListener, any other source a VariableListener.
func newNotifiable(sd variable.ScoreDirector, l variable.Listener, listSourced bool, order int, name string, fired firedFunc) (Notifiable, error) {
	base := notifiableBase{sd: sd, name: name, order: order, fired: fired}
	if listSourced {
		ll, ok := l.(variable.ListVariableListener)
		if !ok {
			return nil, &StateError{
				Code:     ErrCodeListenerKind,
				Listener: fmt.Sprintf("%T", l),
				Message:  "listener is sourced on a list variable but does not implement ListVariableListener",
			}
		}
		return &listNotifiable{notifiableBase: base, listener: ll}, nil
	}
	vl, ok := l.(variable.VariableListener)
	if !ok {
		return nil, &StateError{
			Code:     ErrCodeListenerKind,
			Listener: fmt.Sprintf("%T", l),
			Message:  "listener does not implement VariableListener",
		}
	}
	return &basicNotifiable{notifiableBase: base, listener: vl}, nil
}

// drain fires after for every queued notification in insertion order, then
// clears the queue. A queue that changes size while draining means an
// after-hook re-entered its own listener, which is unrecoverable.
func (b *notifiableBase) drain(self Notifiable, after func(Notification)) int {
	size := b.queue.Len()
	for i := 0; i < size; i++ {
		n := b.queue.At(i)
		after(n)
		b.report(self, n)
	}
	if b.queue.Len() != size {
		panic(&StateError{
			Code:     ErrCodeReentrantListener,
			Listener: fmt.Sprintf("%s (%T)", b.name, self.Listener()),
			Message: fmt.Sprintf("notification count changed from %d to %d while triggering;"+
				" an after-hook probably changed a variable this listener is sourced on", size, b.queue.Len()),
		})
	}
	b.queue.Clear()
	return size
}

type basicNotifiable struct {
	notifiableBase
	listener variable.VariableListener
}

func (b *basicNotifiable) Listener() variable.Listener { return b.listener }

func (b *basicNotifiable) notifyBefore(n Notification) {
	if !b.queue.Add(n) {
		return
	}
	switch n.kind {
	case EntityAdded:
		b.listener.BeforeEntityAdded(b.sd, n.entity)
	case EntityRemoved:
		b.listener.BeforeEntityRemoved(b.sd, n.entity)
	case VariableChanged:
		b.listener.BeforeVariableChanged(b.sd, n.entity)
	default:
		panic(fmt.Sprintf("notification %s cannot be sent to variable listener %s", n, b.name))
	}
}

// notifyAfter is a no-op: basic after-hooks are always deferred.
func (b *basicNotifiable) notifyAfter(Notification) {}

func (b *basicNotifiable) triggerAll() int {
	return b.drain(b, func(n Notification) {
		switch n.kind {
		case EntityAdded:
			b.listener.AfterEntityAdded(b.sd, n.entity)
		case EntityRemoved:
			b.listener.AfterEntityRemoved(b.sd, n.entity)
		case VariableChanged:
			b.listener.AfterVariableChanged(b.sd, n.entity)
		}
	})
}

func (b *basicNotifiable) reset() { b.listener.ResetWorkingSolution(b.sd) }
func (b *basicNotifiable) close() { b.listener.Close() }

type listNotifiable struct {
	notifiableBase
	listener variable.ListVariableListener
}

func (l *listNotifiable) Listener() variable.Listener { return l.listener }

func (l *listNotifiable) notifyBefore(n Notification) {
	switch n.kind {
	case ElementAdded:
		l.listener.BeforeElementAdded(l.sd, n.entity, n.index)
		return
	case ElementRemoved:
		l.listener.BeforeElementRemoved(l.sd, n.entity, n.index)
		return
	case ElementMoved:
		l.listener.BeforeElementMoved(l.sd, n.entity, n.index, n.dest, n.destIndex)
		return
	}

	if !l.queue.Add(n) {
		l.queue.merge(n)
		return
	}
	switch n.kind {
	case EntityAdded:
		l.listener.BeforeEntityAdded(l.sd, n.entity)
	case EntityRemoved:
		l.listener.BeforeEntityRemoved(l.sd, n.entity)
	case ListVariableChanged, SubListChanged:
		l.listener.BeforeListVariableChanged(l.sd, n.entity, n.index, n.toIndex)
	default:
		panic(fmt.Sprintf("notification %s cannot be sent to list variable listener %s", n, l.name))
	}
}

// notifyAfter fires element after-hooks immediately. Range and entity
// notifications wait for the next trigger.
func (l *listNotifiable) notifyAfter(n Notification) {
	switch n.kind {
	case ElementAdded:
		l.listener.AfterElementAdded(l.sd, n.entity, n.index)
	case ElementRemoved:
		l.listener.AfterElementRemoved(l.sd, n.entity, n.index, n.element)
	case ElementMoved:
		l.listener.AfterElementMoved(l.sd, n.entity, n.index, n.dest, n.destIndex)
	default:
		return
	}
	l.report(l, n)
}

func (l *listNotifiable) triggerAll() int {
	return l.drain(l, func(n Notification) {
		switch n.kind {
		case EntityAdded:
			l.listener.AfterEntityAdded(l.sd, n.entity)
		case EntityRemoved:
			l.listener.AfterEntityRemoved(l.sd, n.entity)
		case ListVariableChanged, SubListChanged:
			l.listener.AfterListVariableChanged(l.sd, n.entity, n.index, n.toIndex)
		}
	})
}

func (l *listNotifiable) reset() { l.listener.ResetWorkingSolution(l.sd) }
func (l *listNotifiable) close() { l.listener.Close() }
