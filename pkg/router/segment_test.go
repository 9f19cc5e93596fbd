package router

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantKind Kind
		wantName string
	}{
		{name: "literal", in: "blog", wantKind: KindStatic, wantName: "blog"},
		{name: "literal with dash", in: "my-page", wantKind: KindStatic, wantName: "my-page"},
		{name: "literal with dot", in: "v1.2", wantKind: KindStatic, wantName: "v1.2"},
		{name: "dynamic", in: "[id]", wantKind: KindDynamic, wantName: "id"},
		{name: "dynamic underscore", in: "[user_id]", wantKind: KindDynamic, wantName: "user_id"},
		{name: "bare catch-all", in: "[...]", wantKind: KindCatchAll, wantName: CatchAllKey},
		{name: "named catch-all", in: "[...rest]", wantKind: KindCatchAll, wantName: "rest"},
		{name: "index", in: "index", wantKind: KindIndex},
		{name: "empty", in: "", wantKind: KindIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, err := Classify(tt.in)
			if err != nil {
				t.Fatalf("Classify(%q) error: %v", tt.in, err)
			}
			if seg.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", seg.Kind, tt.wantKind)
			}
			if seg.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", seg.Name, tt.wantName)
			}
			if seg.Raw != tt.in {
				t.Errorf("Raw = %q, want %q", seg.Raw, tt.in)
			}
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	malformed := []string{
		"[",
		"]",
		"[]",
		"[id",
		"id]",
		"[id]x",
		"x[id]",
		"[a[b]]",
		"[a]b[c]",
		"[id name]",
		"[9id]",
		"[...9rest]",
		"[id/slug]",
	}

	for _, in := range malformed {
		t.Run(in, func(t *testing.T) {
			if _, err := Classify(in); err == nil {
				t.Errorf("Classify(%q) should fail", in)
			}
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	// Same input, same output, no state between calls.
	for i := 0; i < 3; i++ {
		seg, err := Classify("[id]")
		if err != nil || seg.Kind != KindDynamic || seg.Name != "id" {
			t.Fatalf("call %d: got %+v, %v", i, seg, err)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindStatic, "static"},
		{KindDynamic, "dynamic"},
		{KindCatchAll, "catchAll"},
		{KindIndex, "index"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
