package observe

import "reflect"

// Equal provides type-appropriate equality checking.
// Uses == for comparable primitives, identity for pointers and
// reflect.DeepEqual for others.
func Equal[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return eq(av, b)
	case int8:
		return eq(av, b)
	case int16:
		return eq(av, b)
	case int32:
		return eq(av, b)
	case int64:
		return eq(av, b)
	case uint:
		return eq(av, b)
	case uint8:
		return eq(av, b)
	case uint16:
		return eq(av, b)
	case uint32:
		return eq(av, b)
	case uint64:
		return eq(av, b)
	case float32:
		return eq(av, b)
	case float64:
		return eq(av, b)
	case string:
		return eq(av, b)
	case bool:
		return eq(av, b)
	default:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		if va.Kind() == reflect.Pointer && vb.Kind() == reflect.Pointer {
			return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
		}
		return reflect.DeepEqual(a, b)
	}
}

// eq compares a with b when b holds the same dynamic type. T may be an
// interface type, so b's dynamic type can differ from a's.
func eq[C comparable](a C, b any) bool {
	bv, ok := b.(C)
	return ok && a == bv
}

// Same compares by identity. Collection owners use it so that replacing a
// container with an equal but distinct one is still reported.
func Same[P comparable](a, b P) bool {
	return a == b
}
