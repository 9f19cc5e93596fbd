package router

import (
	"testing"
	"testing/fstest"
)

// routesFS builds an in-memory route directory from a list of file paths.
func routesFS(paths ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, p := range paths {
		fsys[p] = &fstest.MapFile{Data: []byte("package routes\n")}
	}
	return fsys
}

func findScanned(t *testing.T, routes []ScannedRoute, path string) ScannedRoute {
	t.Helper()
	for _, r := range routes {
		if r.Path == path {
			return r
		}
	}
	t.Fatalf("no scanned entry for %s in %+v", path, routes)
	return ScannedRoute{}
}

func TestScanBasicLayout(t *testing.T) {
	fsys := routesFS(
		"route.go",
		"page.go",
		"blog/route.go",
		"blog/page.go",
		"blog/create.go",
		"blog/[id]/route.go",
		"blog/[id]/page.go",
	)

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	root := findScanned(t, routes, "/")
	if !root.IsDir || !root.HasServerFile() || !root.HasClientFile() {
		t.Errorf("root entry = %+v, want dir with both modules", root)
	}

	blog := findScanned(t, routes, "/blog")
	if !blog.HasServerFile() || !blog.HasClientFile() {
		t.Errorf("/blog = %+v, want both module files", blog)
	}

	create := findScanned(t, routes, "/blog/create")
	if create.IsDir {
		t.Error("/blog/create should be file-backed")
	}
	if !create.HasServerFile() || !create.HasClientFile() {
		t.Error("colocated files anchor both module kinds")
	}

	post := findScanned(t, routes, "/blog/[id]")
	if !post.IsDir {
		t.Error("/blog/[id] should be a directory")
	}
}

func TestScanParentsBeforeChildren(t *testing.T) {
	fsys := routesFS(
		"a/b/c/route.go",
		"a/route.go",
	)

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]int{}
	for i, r := range routes {
		seen[r.Path] = i
	}
	for child, parent := range map[string]string{
		"/a":     "/",
		"/a/b":   "/a",
		"/a/b/c": "/a/b",
	} {
		ci, ok := seen[child]
		if !ok {
			t.Fatalf("missing entry %s", child)
		}
		if pi := seen[parent]; pi > ci {
			t.Errorf("%s scanned before its parent %s", child, parent)
		}
	}
}

func TestScanIndexFileAnchorsBoth(t *testing.T) {
	fsys := routesFS("docs/index.go")

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	docs := findScanned(t, routes, "/docs")
	if !docs.HasServerFile() || !docs.HasClientFile() {
		t.Errorf("index.go should anchor both modules, got %+v", docs)
	}

	// index.go must not become a child route named "index".
	for _, r := range routes {
		if r.Path == "/docs/index" {
			t.Error("index.go leaked into a child entry")
		}
	}
}

func TestScanDuplicateAnchorsSurvive(t *testing.T) {
	// Build reports these as duplicates; Scan just records them all.
	fsys := routesFS(
		"shop/route.go",
		"shop/index.go",
	)

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	shop := findScanned(t, routes, "/shop")
	if len(shop.ServerFiles) != 2 {
		t.Errorf("ServerFiles = %v, want route.go and index.go", shop.ServerFiles)
	}
}

func TestScanFileMergesIntoSiblingDir(t *testing.T) {
	fsys := routesFS(
		"blog/admin/route.go",
		"blog/admin.go",
	)

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	admin := findScanned(t, routes, "/blog/admin")
	if !admin.IsDir {
		t.Error("directory entry should own the merged path")
	}
	if len(admin.ServerFiles) != 2 {
		t.Errorf("ServerFiles = %v, want the dir's route.go plus admin.go", admin.ServerFiles)
	}
}

func TestScanSkipsPrivateAndForeignFiles(t *testing.T) {
	fsys := routesFS(
		"route.go",
		"_helpers.go",
		"_shared/util.go",
		".hidden/route.go",
		"notes.txt",
		"styles.css",
		"route_test.go",
		"blog/page.go",
	)

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range routes {
		switch r.Path {
		case "/_helpers", "/_shared", "/.hidden", "/notes", "/styles", "/route_test":
			t.Errorf("entry %s should have been skipped", r.Path)
		}
	}
	if got := len(findScanned(t, routes, "/").ServerFiles); got != 1 {
		t.Errorf("root ServerFiles count = %d, want just route.go", got)
	}
}

func TestScanEmptyDirectoriesStillAppear(t *testing.T) {
	fsys := routesFS("api/v1/users/route.go")

	routes, err := Scan(fsys)
	if err != nil {
		t.Fatal(err)
	}

	api := findScanned(t, routes, "/api")
	if api.HasServerFile() || api.HasClientFile() {
		t.Error("/api has no module files")
	}
	v1 := findScanned(t, routes, "/api/v1")
	if !v1.IsDir {
		t.Error("/api/v1 should be a directory entry")
	}
}
