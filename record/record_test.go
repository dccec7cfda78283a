package record

import "testing"

func TestRecordResolve(t *testing.T) {
	rec := Record{
		"name": String("alice"),
		"a.b":  String("literal"),
		"profile": Object(map[string]Value{
			"age": Int(30),
			"address": Object(map[string]Value{
				"city": String("berlin"),
			}),
		}),
	}

	tests := []struct {
		name string
		path string
		want Value
	}{
		{name: "top-level field", path: "name", want: String("alice")},
		{name: "literal dotted name wins", path: "a.b", want: String("literal")},
		{name: "one hop", path: "profile.age", want: Int(30)},
		{name: "two hops", path: "profile.address.city", want: String("berlin")},
		{name: "missing top-level", path: "missing", want: Null()},
		{name: "missing nested", path: "profile.missing", want: Null()},
		{name: "non-object intermediate", path: "name.sub", want: Null()},
		{name: "path past leaf", path: "profile.age.extra", want: Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rec.Resolve(tt.path)
			if !got.Equal(tt.want) {
				t.Errorf("Resolve(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestRecordProject(t *testing.T) {
	rec := Record{
		"name":    String("alice"),
		"age":     Int(30),
		"profile": Object(map[string]Value{"city": String("berlin")}),
	}

	got := rec.Project([]string{"name", "profile.city", "missing"})

	if len(got) != 3 {
		t.Fatalf("projected %d fields, want 3", len(got))
	}
	if !got["name"].Equal(String("alice")) {
		t.Errorf("name = %v", got["name"])
	}
	if !got["profile.city"].Equal(String("berlin")) {
		t.Errorf("profile.city = %v", got["profile.city"])
	}
	if !got["missing"].IsNull() {
		t.Errorf("missing = %v, want null", got["missing"])
	}
}

func TestRecordKey(t *testing.T) {
	a := Record{"x": Int(1), "y": String("s")}
	b := Record{"y": String("s"), "x": Int(1)}
	c := Record{"x": Int(2), "y": String("s")}

	if a.Key() != b.Key() {
		t.Error("equal records must produce equal keys")
	}
	if a.Key() == c.Key() {
		t.Error("different records must produce different keys")
	}
	if (Record{}).Key() != "" {
		t.Error("empty record key must be empty")
	}
}

func TestRecordClone(t *testing.T) {
	orig := Record{
		"tags":    Array([]Value{String("a"), String("b")}),
		"profile": Object(map[string]Value{"city": String("berlin")}),
	}

	clone := orig.Clone()
	clone["tags"].A[0] = String("mutated")
	clone.Resolve("profile").O["city"] = String("mutated")

	if orig["tags"].A[0].StringValue() != "a" {
		t.Error("clone shares array backing with original")
	}
	if orig.Resolve("profile.city").StringValue() != "berlin" {
		t.Error("clone shares object backing with original")
	}

	if (Record)(nil).Clone() != nil {
		t.Error("nil record clones to nil")
	}
	if CloneIfNeeded(Record{}) != nil {
		t.Error("empty record clones to nil via CloneIfNeeded")
	}
}
