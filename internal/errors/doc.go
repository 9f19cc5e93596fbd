// Package errors provides structured, actionable error messages for Braid.
//
// Build failures are where a routing framework earns trust: a bad segment
// name or a conflicting route should point at the offending file and say how
// to fix it, not surface as a stack trace three layers away. Every error
// here carries:
//   - a stable code (e.g. "B1002") that maps to a registered template
//   - the category it belongs to (routes, hydration, config, ...)
//   - an optional source location with surrounding context lines
//   - a suggestion describing the fix
//
// # Usage
//
//	err := errors.New("B1002").
//	    WithLocation("app/routes/blog/create.go", 1, 0).
//	    WithSuggestion("Remove one of the files, or rename it")
//
//	fmt.Println(err.Format())
//	// ERROR B1002: Duplicate route
//	//
//	//   app/routes/blog/create.go:1
//	//   ...
//	//
//	//   Hint: Remove one of the files, or rename it
//
// Route building reports every problem it finds in one pass; List collects
// them and formats as a single failure.
package errors
