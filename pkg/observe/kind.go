package observe

// Kind identifies one of the five listener kinds. The numeric order is the
// order in which kinds are notified within a pass.
type Kind uint8

const (
	// KindInvalidation listeners learn that something changed, without a value.
	KindInvalidation Kind = iota

	// KindSubInvalidation listeners are invalidation listeners that also
	// learn whether the change came from a contained value.
	KindSubInvalidation

	// KindChange listeners receive old and new values of real changes.
	KindChange

	// KindCollection listeners receive structural deltas.
	KindCollection

	// KindSubChange listeners receive old and new values, including
	// sub-changes where both may be equal.
	KindSubChange

	kindCount
)

var kindNames = [kindCount]string{
	"invalidation",
	"sub_invalidation",
	"change",
	"collection",
	"sub_change",
}

// String returns the kind name used in logs and metric labels.
func (k Kind) String() string {
	if k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every listener kind in notification order.
func Kinds() []Kind {
	return []Kind{KindInvalidation, KindSubInvalidation, KindChange, KindCollection, KindSubChange}
}
