package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Maximum length of the branch-derived portion of a tag. OCI tags are capped
// at 128 characters; leaving headroom for the hash suffix keeps the result
// valid for any input.
const maxTagLen = 96

// ImageTag identifies a container image as repository plus tag.
type ImageTag struct {
	Repository string `json:"repository"`
	Tag        string `json:"tag"`
}

// IsZero reports whether the tag has not been assigned.
func (t ImageTag) IsZero() bool {
	return t.Repository == "" && t.Tag == ""
}

// String returns the full image reference, e.g. "myservice:main".
func (t ImageTag) String() string {
	return t.Repository + ":" + t.Tag
}

// WithTag returns a copy of t pointing at a different tag in the same
// repository.
func (t ImageTag) WithTag(tag string) ImageTag {
	return ImageTag{Repository: t.Repository, Tag: tag}
}

// DeriveTag computes the image tag for a branch identifier.
//
// The derivation is deterministic: the same branch always maps to the same
// tag, so re-running a build overwrites the previous images for that branch.
// Branch names that are already valid OCI tags are used verbatim ("main"
// becomes "repo:main"). Names containing characters a tag cannot hold are
// sanitized and suffixed with a short hash of the raw name, which keeps
// distinct branches from ever colliding after sanitization ("feat/x" and
// "feat-x" get different tags).
func DeriveTag(repository, branch string) ImageTag {
	sanitized := sanitizeTag(branch)
	if sanitized == branch && sanitized != "" {
		return ImageTag{Repository: repository, Tag: sanitized}
	}

	sum := sha256.Sum256([]byte(branch))
	suffix := hex.EncodeToString(sum[:4])
	if sanitized == "" {
		return ImageTag{Repository: repository, Tag: "build-" + suffix}
	}
	return ImageTag{Repository: repository, Tag: sanitized + "-" + suffix}
}

// Rewrites a branch name into the OCI tag character set.
//
// Valid tag characters are [A-Za-z0-9_.-]; anything else becomes a dash.
// Leading separators are trimmed because a tag must start with a letter,
// digit, or underscore.
func sanitizeTag(branch string) string {
	var b strings.Builder
	for _, r := range branch {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	s := strings.TrimLeft(b.String(), ".-")
	if len(s) > maxTagLen {
		s = s[:maxTagLen]
	}
	return s
}
