package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Engine Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryEngine,
		Message:  "Nil listener",
		Detail:   "A nil listener cannot be registered. Use one of the On* adapters to turn a function into a listener.",
	},
	"E102": {
		Category: CategoryEngine,
		Message:  "Listener panicked",
		Detail:   "A listener panicked during a notification pass. The panic was recovered and the remaining listeners were still notified.",
	},
	"E103": {
		Category: CategoryEngine,
		Message:  "Listener type mismatch",
		Detail:   "A listener registered for this kind does not accept the value type carried by the notification.",
	},
	"E104": {
		Category: CategoryEngine,
		Message:  "Nil observable",
		Detail:   "A listener adapter or subject was created without an observable.",
	},

	// ============================================
	// Binding Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryBinding,
		Message:  "Observable bound to itself",
		Detail:   "A bidirectional binding needs two distinct observables.",
	},
	"E202": {
		Category: CategoryBinding,
		Message:  "Nil binding endpoint",
		Detail:   "Both endpoints of a bidirectional binding must be non-nil.",
	},
	"E203": {
		Category: CategoryBinding,
		Message:  "Endpoints already bound",
		Detail:   "A bidirectional binding between these two observables already exists.",
	},
	"E204": {
		Category: CategoryBinding,
		Message:  "Bidirectional update failed",
		Detail:   "Pushing a value to the other endpoint failed. The source endpoint was restored to its previous value.",
	},
	"E205": {
		Category: CategoryBinding,
		Message:  "Bidirectional rollback failed",
		Detail:   "Pushing a value failed and restoring the source endpoint failed too. The binding was removed.",
	},
	"E206": {
		Category: CategoryBinding,
		Message:  "Property is bound",
		Detail:   "The property follows another observable and cannot be written directly.",
	},
	"E207": {
		Category: CategoryBinding,
		Message:  "Property follows itself",
		Detail:   "A property cannot be bound to follow its own value.",
	},
	"E208": {
		Category: CategoryBinding,
		Message:  "Nil follow source",
		Detail:   "A property can only follow a non-nil observable.",
	},
	"E209": {
		Category: CategoryBinding,
		Message:  "Incomplete converter",
		Detail:   "A bidirectional converter needs both the ToB and the FromB direction.",
	},
	"E210": {
		Category: CategoryBinding,
		Message:  "Content update failed",
		Detail:   "A source delta could not be applied to the bound target collection and resynchronizing it failed too. The target is out of step until its next successful update.",
	},

	// ============================================
	// Collection Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryCollections,
		Message:  "Collection is locked",
		Detail:   "A structural mutation was attempted while a read guard was held on a fail-fast collection.",
	},
	"E302": {
		Category: CategoryCollections,
		Message:  "Index out of range",
		Detail:   "The list index is outside the current bounds.",
	},
	"E303": {
		Category: CategoryCollections,
		Message:  "Malformed delta",
		Detail:   "A list can only replay ordered deltas whose permutation is a rearrangement of the span it covers.",
	},

	// ============================================
	// Config Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "propagate.json was not found in the given directory or any parent.",
	},
	"E402": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "propagate.json could not be parsed.",
	},
	"E403": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is outside its allowed range.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
