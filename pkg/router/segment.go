package router

import (
	"fmt"
	"strings"
)

// Kind classifies how a path segment participates in matching.
type Kind uint8

const (
	// KindStatic matches its literal text only.
	KindStatic Kind = iota

	// KindDynamic matches exactly one segment and binds it to a parameter.
	KindDynamic

	// KindCatchAll matches every remaining segment, including none.
	KindCatchAll

	// KindIndex is a directory's own handler ("index" or the empty name).
	// It never appears as a tree node; the builder folds it into the
	// enclosing directory.
	KindIndex
)

func (k Kind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	case KindCatchAll:
		return "catchAll"
	case KindIndex:
		return "index"
	}
	return "unknown"
}

// CatchAllKey is the parameter name a bare [...] segment binds under.
// Named catch-alls ([...rest]) bind under their own name instead.
const CatchAllKey = "*"

// Segment is the classification of a single route path component.
type Segment struct {
	// Kind is the match behavior of the segment.
	Kind Kind

	// Name is the literal text for static segments, or the parameter name
	// for dynamic and catch-all segments.
	Name string

	// Raw is the original component text, kept for patterns and errors.
	Raw string
}

// Classify determines how a single path component matches.
//
//	blog      → static "blog"
//	[id]      → dynamic, parameter "id"
//	[...]     → catch-all, parameter "*"
//	[...rest] → catch-all, parameter "rest"
//	index, "" → index (the directory's own handler)
//
// Classification is pure: the same input always yields the same result, and
// malformed names (unbalanced or embedded brackets, empty or non-identifier
// parameter names) return an error instead of guessing.
func Classify(name string) (Segment, error) {
	if name == "" || name == "index" {
		return Segment{Kind: KindIndex, Raw: name}, nil
	}

	hasOpen := strings.Contains(name, "[")
	hasClose := strings.Contains(name, "]")
	if !hasOpen && !hasClose {
		return Segment{Kind: KindStatic, Name: name, Raw: name}, nil
	}

	if !strings.HasPrefix(name, "[") || !strings.HasSuffix(name, "]") {
		return Segment{}, fmt.Errorf("brackets must wrap the whole segment: %q", name)
	}

	inner := name[1 : len(name)-1]
	if strings.ContainsAny(inner, "[]") {
		return Segment{}, fmt.Errorf("nested brackets in segment: %q", name)
	}

	if rest, ok := strings.CutPrefix(inner, "..."); ok {
		if rest == "" {
			return Segment{Kind: KindCatchAll, Name: CatchAllKey, Raw: name}, nil
		}
		if !isIdent(rest) {
			return Segment{}, fmt.Errorf("catch-all name must be an identifier: %q", name)
		}
		return Segment{Kind: KindCatchAll, Name: rest, Raw: name}, nil
	}

	if inner == "" {
		return Segment{}, fmt.Errorf("empty parameter name: %q", name)
	}
	if !isIdent(inner) {
		return Segment{}, fmt.Errorf("parameter name must be an identifier: %q", name)
	}
	return Segment{Kind: KindDynamic, Name: inner, Raw: name}, nil
}

// isIdent reports whether s is a letter-or-underscore led identifier.
func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}
