package analyzer

import (
	"reflect"
	"testing"
)

func TestNormalizeDependency(t *testing.T) {
	tests := map[string]string{
		"zlib":                 "zlib",
		"Zlib>=1.2":            "zlib",
		"glibc<3":              "glibc",
		"python=3.12":          "python",
		"bash: for completion": "bash",
		"  qt6-base  ":         "qt6-base",
		">=1.0":                "",
		"":                     "",
	}

	for in, want := range tests {
		if got := NormalizeDependency(in); got != want {
			t.Errorf("NormalizeDependency(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDependencyQuery(t *testing.T) {
	q := ParseDependencyQuery("+Qt6-Base -electron cmake - + gtk3>=3")

	wantWants := []string{"qt6-base", "cmake", "gtk3"}
	wantExcludes := []string{"electron"}

	if !reflect.DeepEqual(q.Wants, wantWants) {
		t.Errorf("Wants = %v, want %v", q.Wants, wantWants)
	}
	if !reflect.DeepEqual(q.Excludes, wantExcludes) {
		t.Errorf("Excludes = %v, want %v", q.Excludes, wantExcludes)
	}
	if q.Empty() {
		t.Error("Empty() = true, want false")
	}
	if !ParseDependencyQuery("   ").Empty() {
		t.Error("blank query should be empty")
	}
}
