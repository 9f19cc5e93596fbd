package errors

// template defines a registered error code.
type template struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// codes maps stable error codes to their templates. Codes are grouped by
// category: B1xxx routes, B2xxx hydration, B3xxx config, B4xxx dev.
var codes = map[string]template{

	// Route tree building (B1xxx)

	"B1001": {
		Category: CategoryRoutes,
		Message:  "Malformed route segment",
		Detail:   "Segment names may be a literal, [name] for a dynamic parameter, or [...] / [...name] for a catch-all. Brackets must open at the start and close at the end of the name.",
		DocURL:   "https://braid.dev/docs/errors/B1001",
	},
	"B1002": {
		Category: CategoryRoutes,
		Message:  "Duplicate route",
		Detail:   "Two entries in the route directory resolve to the same path. Each path can have exactly one server module and one client module.",
		DocURL:   "https://braid.dev/docs/errors/B1002",
	},
	"B1003": {
		Category: CategoryRoutes,
		Message:  "Conflicting dynamic segments",
		Detail:   "A directory can hold at most one [name] child. Two dynamic siblings would be indistinguishable at match time.",
		DocURL:   "https://braid.dev/docs/errors/B1003",
	},
	"B1004": {
		Category: CategoryRoutes,
		Message:  "Catch-all conflict",
		Detail:   "A catch-all consumes every remaining segment, so it cannot have children and a directory cannot hold more than one.",
		DocURL:   "https://braid.dev/docs/errors/B1004",
	},
	"B1005": {
		Category: CategoryRoutes,
		Message:  "Registration has no matching route file",
		Detail:   "A module was registered for a path that the route directory does not contain. The path is probably misspelled, or the file was deleted without removing the registration.",
		DocURL:   "https://braid.dev/docs/errors/B1005",
	},
	"B1006": {
		Category: CategoryRoutes,
		Message:  "Route file has no registration",
		Detail:   "A module file exists in the route directory but no module was registered for its path, so requests to it would have nothing to run.",
		DocURL:   "https://braid.dev/docs/errors/B1006",
	},
	"B1007": {
		Category: CategoryRoutes,
		Message:  "Route parameter name reused",
		Detail:   "The same [name] appears twice on one path. Parameters share a flat namespace per request, so the inner value would silently overwrite the outer one.",
		DocURL:   "https://braid.dev/docs/errors/B1007",
	},
	"B1008": {
		Category: CategoryRoutes,
		Message:  "Reserved segment name",
		Detail:   "\"index\" names a directory's own handler and cannot be used as a subdirectory name.",
		DocURL:   "https://braid.dev/docs/errors/B1008",
	},

	// Context hydration (B2xxx)

	"B2001": {
		Category: CategoryHydration,
		Message:  "Duplicate context registration",
		Detail:   "Each context name may be registered once. A second registration under the same name would make payload field ownership ambiguous.",
		DocURL:   "https://braid.dev/docs/errors/B2001",
	},
	"B2002": {
		Category: CategoryHydration,
		Message:  "Context registry is frozen",
		Detail:   "Registrations must happen before the first request is served. Register contexts during startup, not inside handlers.",
		DocURL:   "https://braid.dev/docs/errors/B2002",
	},
	"B2003": {
		Category: CategoryHydration,
		Message:  "Context payload rejected",
		Detail:   "The hydration payload failed signature verification or could not be decoded.",
		DocURL:   "https://braid.dev/docs/errors/B2003",
	},

	// Project configuration (B3xxx)

	"B3001": {
		Category: CategoryConfig,
		Message:  "Invalid project configuration",
		Detail:   "braid.json could not be parsed or contains invalid values.",
		DocURL:   "https://braid.dev/docs/errors/B3001",
	},
	"B3002": {
		Category: CategoryConfig,
		Message:  "Route directory not found",
		Detail:   "The configured route directory does not exist in the project.",
		DocURL:   "https://braid.dev/docs/errors/B3002",
	},

	// Dev server (B4xxx)

	"B4001": {
		Category: CategoryDev,
		Message:  "Rebuild failed",
		Detail:   "The route tree could not be rebuilt after a file change. The previous tree keeps serving until the problem is fixed.",
		DocURL:   "https://braid.dev/docs/errors/B4001",
	},
}

// Lookup returns the registered template for a code.
func Lookup(code string) (Category, string, bool) {
	t, ok := codes[code]
	if !ok {
		return "", "", false
	}
	return t.Category, t.Message, true
}
