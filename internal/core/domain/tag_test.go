package domain

import (
	"strings"
	"testing"
)

func TestDeriveTagPlainBranch(t *testing.T) {
	tag := DeriveTag("myservice", "main")
	if tag.Repository != "myservice" {
		t.Fatalf("repository = %q, want myservice", tag.Repository)
	}
	if tag.Tag != "main" {
		t.Fatalf("tag = %q, want main", tag.Tag)
	}
	if tag.String() != "myservice:main" {
		t.Fatalf("String() = %q, want myservice:main", tag.String())
	}
}

func TestDeriveTagDeterministic(t *testing.T) {
	a := DeriveTag("repo", "feature/login-form")
	b := DeriveTag("repo", "feature/login-form")
	if a != b {
		t.Fatalf("same branch produced different tags: %v vs %v", a, b)
	}
}

func TestDeriveTagSanitizes(t *testing.T) {
	tests := []struct {
		branch string
	}{
		{"feature/login"},
		{"hotfix/CVE-2024"},
		{"release candidate"},
		{"weird!!chars##"},
		{"///"},
		{""},
	}

	for _, tt := range tests {
		tag := DeriveTag("repo", tt.branch)
		if tag.Tag == "" {
			t.Fatalf("branch %q produced empty tag", tt.branch)
		}
		for _, r := range tag.Tag {
			valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || r == '_' || r == '.' || r == '-'
			if !valid {
				t.Fatalf("branch %q produced invalid tag character %q in %q", tt.branch, r, tag.Tag)
			}
		}
		if strings.HasPrefix(tag.Tag, ".") || strings.HasPrefix(tag.Tag, "-") {
			t.Fatalf("branch %q produced tag with invalid leading separator: %q", tt.branch, tag.Tag)
		}
	}
}

// Branches that sanitize to the same string must still get distinct tags.
func TestDeriveTagNoCollisions(t *testing.T) {
	branches := []string{
		"main",
		"Main",
		"feat/x",
		"feat-x",
		"feat_x",
		"feat x",
		"feat/x/",
		"a/b/c",
		"a-b-c",
		"a-b/c",
	}

	seen := make(map[string]string)
	for _, branch := range branches {
		tag := DeriveTag("repo", branch)
		if other, ok := seen[tag.Tag]; ok {
			t.Fatalf("branches %q and %q collided on tag %q", branch, other, tag.Tag)
		}
		seen[tag.Tag] = branch
	}
}

func TestDeriveTagLongBranch(t *testing.T) {
	branch := strings.Repeat("very-long-branch-name/", 20)
	tag := DeriveTag("repo", branch)
	if len(tag.Tag) > 128 {
		t.Fatalf("tag length = %d, exceeds OCI limit", len(tag.Tag))
	}
}

func TestWithTag(t *testing.T) {
	tag := ImageTag{Repository: "repo", Tag: "main"}
	latest := tag.WithTag("latest")
	if latest.Repository != "repo" {
		t.Fatalf("repository = %q, want repo", latest.Repository)
	}
	if latest.Tag != "latest" {
		t.Fatalf("tag = %q, want latest", latest.Tag)
	}
	if tag.Tag != "main" {
		t.Fatalf("original tag mutated to %q", tag.Tag)
	}
}

func TestIsZero(t *testing.T) {
	if !(ImageTag{}).IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	if (ImageTag{Repository: "r", Tag: "t"}).IsZero() {
		t.Fatal("assigned tag should not report IsZero")
	}
}
