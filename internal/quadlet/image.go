package quadlet

import "strings"

// ImageRef is the decomposed form of an image reference:
// [registry/][namespace/]name[:tag][@digest].
type ImageRef struct {
	Registry string
	Name     string
	Tag      string
	Digest   string
}

// ParseImageRef tokenizes a reference in three phases, each peeling off a
// suffix: split at the last '@' for the digest, then at the last ':' after
// the last '/' for the tag (so a registry port like "localhost:5000" is
// never misread as a tag), then at the first '/' for the registry -- but
// only when that prefix looks like a host (contains '.' or ':'); otherwise
// it is folded into Name as a namespace, matching Docker's own
// registry-vs-namespace heuristic.
func ParseImageRef(s string) (ImageRef, error) {
	if s == "" {
		return ImageRef{}, NewFieldError("image", "empty image reference")
	}

	rest := s
	var ref ImageRef

	if i := strings.LastIndex(rest, "@"); i >= 0 {
		ref.Digest = rest[i+1:]
		rest = rest[:i]
	}

	lastSlash := strings.LastIndex(rest, "/")
	tagSearchFrom := 0
	if lastSlash >= 0 {
		tagSearchFrom = lastSlash + 1
	}
	if i := strings.LastIndex(rest[tagSearchFrom:], ":"); i >= 0 {
		tagIdx := tagSearchFrom + i
		ref.Tag = rest[tagIdx+1:]
		rest = rest[:tagIdx]
	}

	if i := strings.Index(rest, "/"); i >= 0 {
		prefix := rest[:i]
		if strings.ContainsAny(prefix, ".:") {
			ref.Registry = prefix
			ref.Name = rest[i+1:]
		} else {
			ref.Name = rest
		}
	} else {
		ref.Name = rest
	}

	if ref.Name == "" {
		return ImageRef{}, NewFieldError("image", "empty image name")
	}

	return ref, nil
}

// BuildImageRef is the inverse of ParseImageRef: for any reference produced
// by parsing a syntactically valid string, Build(Parse(s)) == s.
func BuildImageRef(ref ImageRef) string {
	var b strings.Builder
	if ref.Registry != "" {
		b.WriteString(ref.Registry)
		b.WriteString("/")
	}
	b.WriteString(ref.Name)
	if ref.Tag != "" {
		b.WriteString(":")
		b.WriteString(ref.Tag)
	}
	if ref.Digest != "" {
		b.WriteString("@")
		b.WriteString(ref.Digest)
	}
	return b.String()
}

// ImageValue computes the compiled Image= value: image@digest when a digest
// is present, else the image reference verbatim.
func ImageValue(image, digest string) string {
	if digest != "" {
		return image + "@" + digest
	}
	return image
}
