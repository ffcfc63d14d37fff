package testutil

import (
	"fmt"

	"github.com/roach88/umbra/internal/variable"
)

// Log collects hook invocations from recording listeners in call order.
// Several listeners usually share one Log so tests can assert on the
// interleaving.
type Log struct {
	Calls []string
}

// add is a no-op on a nil Log, so listeners can be used without recording.
func (l *Log) add(name, hook string, args ...any) {
	if l == nil {
		return
	}
	s := name + "." + hook + "("
	for i, a := range args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(a)
	}
	l.Calls = append(l.Calls, s+")")
}

// Reset forgets every recorded call.
func (l *Log) Reset() { l.Calls = nil }

// Count returns how many recorded calls equal call.
func (l *Log) Count(call string) int {
	n := 0
	for _, c := range l.Calls {
		if c == call {
			n++
		}
	}
	return n
}

// IndexOf returns the position of the first call equal to call, or -1.
func (l *Log) IndexOf(call string) int {
	for i, c := range l.Calls {
		if c == call {
			return i
		}
	}
	return -1
}

// HookFunc runs inside a recorded after-hook, typically to update a shadow
// variable.
type HookFunc func(sd variable.ScoreDirector, entity any)

// RecordingListener is a VariableListener that logs every hook. OnAfter, if
// set, runs after AfterVariableChanged and AfterEntityAdded are logged.
type RecordingListener struct {
	Name    string
	Log     *Log
	OnAfter HookFunc
	Sources []*variable.Descriptor

	Resets int
	Closed bool
}

func (r *RecordingListener) BeforeEntityAdded(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "BeforeEntityAdded", entity)
}

func (r *RecordingListener) AfterEntityAdded(sd variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "AfterEntityAdded", entity)
	if r.OnAfter != nil {
		r.OnAfter(sd, entity)
	}
}

func (r *RecordingListener) BeforeEntityRemoved(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "BeforeEntityRemoved", entity)
}

func (r *RecordingListener) AfterEntityRemoved(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "AfterEntityRemoved", entity)
}

func (r *RecordingListener) BeforeVariableChanged(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "BeforeVariableChanged", entity)
}

func (r *RecordingListener) AfterVariableChanged(sd variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "AfterVariableChanged", entity)
	if r.OnAfter != nil {
		r.OnAfter(sd, entity)
	}
}

func (r *RecordingListener) ResetWorkingSolution(variable.ScoreDirector) { r.Resets++ }
func (r *RecordingListener) Close()                                      { r.Closed = true }

// SourceVariables makes the listener usable as a sourced supply.
func (r *RecordingListener) SourceVariables() []*variable.Descriptor { return r.Sources }

// RecordingListListener is a ListVariableListener that logs every hook.
type RecordingListListener struct {
	Name    string
	Log     *Log
	Sources []*variable.Descriptor

	Resets int
	Closed bool
}

func (r *RecordingListListener) BeforeEntityAdded(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "BeforeEntityAdded", entity)
}

func (r *RecordingListListener) AfterEntityAdded(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "AfterEntityAdded", entity)
}

func (r *RecordingListListener) BeforeEntityRemoved(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "BeforeEntityRemoved", entity)
}

func (r *RecordingListListener) AfterEntityRemoved(_ variable.ScoreDirector, entity any) {
	r.Log.add(r.Name, "AfterEntityRemoved", entity)
}

func (r *RecordingListListener) BeforeElementAdded(_ variable.ScoreDirector, entity any, index int) {
	r.Log.add(r.Name, "BeforeElementAdded", entity, index)
}

func (r *RecordingListListener) AfterElementAdded(_ variable.ScoreDirector, entity any, index int) {
	r.Log.add(r.Name, "AfterElementAdded", entity, index)
}

func (r *RecordingListListener) BeforeElementRemoved(_ variable.ScoreDirector, entity any, index int) {
	r.Log.add(r.Name, "BeforeElementRemoved", entity, index)
}

func (r *RecordingListListener) AfterElementRemoved(_ variable.ScoreDirector, entity any, index int, element any) {
	r.Log.add(r.Name, "AfterElementRemoved", entity, index, element)
}

func (r *RecordingListListener) BeforeElementMoved(_ variable.ScoreDirector, source any, sourceIndex int, dest any, destIndex int) {
	r.Log.add(r.Name, "BeforeElementMoved", source, sourceIndex, dest, destIndex)
}

func (r *RecordingListListener) AfterElementMoved(_ variable.ScoreDirector, source any, sourceIndex int, dest any, destIndex int) {
	r.Log.add(r.Name, "AfterElementMoved", source, sourceIndex, dest, destIndex)
}

func (r *RecordingListListener) BeforeListVariableChanged(_ variable.ScoreDirector, entity any, fromIndex, toIndex int) {
	r.Log.add(r.Name, "BeforeListVariableChanged", entity, fromIndex, toIndex)
}

func (r *RecordingListListener) AfterListVariableChanged(_ variable.ScoreDirector, entity any, fromIndex, toIndex int) {
	r.Log.add(r.Name, "AfterListVariableChanged", entity, fromIndex, toIndex)
}

func (r *RecordingListListener) ResetWorkingSolution(variable.ScoreDirector) { r.Resets++ }
func (r *RecordingListListener) Close()                                      { r.Closed = true }

// SourceVariables makes the listener usable as a sourced supply.
func (r *RecordingListListener) SourceVariables() []*variable.Descriptor { return r.Sources }
