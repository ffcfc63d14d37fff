package shadow

import (
	"reflect"

	"github.com/roach88/umbra/internal/variable"
)

// isNil reports whether v is nil or a typed nil pointer, map, slice,
// channel, func or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// normalize turns typed nils into untyped nil.
func normalize(v any) any {
	if isNil(v) {
		return nil
	}
	return v
}

func sameShadowValue(a, b any) bool {
	return normalize(a) == normalize(b)
}

// assign writes value to target on entity through the score director's
// brackets, unless it already holds that value. It reports whether a write
// happened.
func assign(sd variable.ScoreDirector, target *variable.Descriptor, entity any, value any) bool {
	if sameShadowValue(target.Get(entity), value) {
		return false
	}
	sd.BeforeVariableChanged(target, entity)
	target.Set(entity, value)
	sd.AfterVariableChanged(target, entity)
	return true
}
