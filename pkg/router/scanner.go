package router

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// Reserved file names inside a route directory.
const (
	// ServerFile anchors the directory's server module.
	ServerFile = "route.go"

	// ClientFile anchors the directory's client module.
	ClientFile = "page.go"

	// IndexFile anchors both modules at once, mirroring layouts that keep
	// a single file per route.
	IndexFile = "index.go"
)

// Scan walks a route directory and returns its structure: one entry per
// directory and per colocated route file, parents before children.
//
// The walk ignores hidden and underscore-prefixed entries (private helper
// files live next to routes without becoming them), non-Go files, and test
// files. Reserved names (route.go, page.go, index.go) anchor modules on
// their directory instead of producing entries of their own; every other
// Go file becomes a literal child route.
//
// Scan records structure only. Classification and validation happen in
// Build, so a malformed name is reported once with full context rather
// than failing the walk.
func Scan(fsys fs.FS) ([]ScannedRoute, error) {
	byPath := make(map[string]*ScannedRoute)
	var order []string

	add := func(routePath string, entry *ScannedRoute) *ScannedRoute {
		if existing, ok := byPath[routePath]; ok {
			return existing
		}
		byPath[routePath] = entry
		order = append(order, routePath)
		return entry
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()

		if p != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			add(routePathOf(p), &ScannedRoute{
				Path:  routePathOf(p),
				File:  p,
				IsDir: true,
			})
			return nil
		}

		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}

		parent := byPath[routePathOf(path.Dir(p))]
		if parent == nil {
			return fmt.Errorf("route file %s outside scanned directory", p)
		}

		switch name {
		case ServerFile:
			parent.ServerFiles = append(parent.ServerFiles, p)
		case ClientFile:
			parent.ClientFiles = append(parent.ClientFiles, p)
		case IndexFile:
			parent.ServerFiles = append(parent.ServerFiles, p)
			parent.ClientFiles = append(parent.ClientFiles, p)
		default:
			base := strings.TrimSuffix(name, ".go")
			routePath := routePathOf(path.Join(path.Dir(p), base))
			entry := add(routePath, &ScannedRoute{
				Path: routePath,
				File: p,
			})
			// A sibling directory with the same name may already own this
			// path; the anchors merge and Build reports the duplicate.
			entry.ServerFiles = append(entry.ServerFiles, p)
			entry.ClientFiles = append(entry.ClientFiles, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	routes := make([]ScannedRoute, 0, len(order))
	for _, rp := range order {
		routes = append(routes, *byPath[rp])
	}
	return routes, nil
}

// routePathOf converts an fs path inside the route directory to a route
// path: "." → "/", "blog/[id]" → "/blog/[id]".
func routePathOf(fsPath string) string {
	if fsPath == "." || fsPath == "" {
		return "/"
	}
	return "/" + fsPath
}
