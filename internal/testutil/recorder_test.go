package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/umbra/internal/variable"
)

var (
	_ variable.VariableListener     = (*RecordingListener)(nil)
	_ variable.SourcedListener      = (*RecordingListener)(nil)
	_ variable.ListVariableListener = (*RecordingListListener)(nil)
	_ variable.SourcedListener      = (*RecordingListListener)(nil)
)

func TestLog_FormatsArguments(t *testing.T) {
	log := &Log{}
	r := &RecordingListener{Name: "s", Log: log}
	l := &RecordingListListener{Name: "idx", Log: log}

	r.BeforeVariableChanged(nil, "a")
	l.AfterElementMoved(nil, "r1", 0, "r2", 3)

	assert.Equal(t, []string{
		"s.BeforeVariableChanged(a)",
		"idx.AfterElementMoved(r1, 0, r2, 3)",
	}, log.Calls)
	assert.Equal(t, 1, log.Count("s.BeforeVariableChanged(a)"))
	assert.Equal(t, 1, log.IndexOf("idx.AfterElementMoved(r1, 0, r2, 3)"))
	assert.Equal(t, -1, log.IndexOf("missing()"))

	log.Reset()
	assert.Empty(t, log.Calls)
}

func TestRecordingListener_OnAfterRunsAfterLogging(t *testing.T) {
	log := &Log{}
	var seen int
	r := &RecordingListener{Name: "s", Log: log, OnAfter: func(_ variable.ScoreDirector, _ any) {
		seen = len(log.Calls)
	}}

	r.AfterVariableChanged(nil, "a")
	assert.Equal(t, 1, seen)

	r.ResetWorkingSolution(nil)
	r.Close()
	assert.Equal(t, 1, r.Resets)
	assert.True(t, r.Closed)
}
