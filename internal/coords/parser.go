// internal/coords/parser.go
package coords

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrMalformed is returned (wrapped) for any string that does not follow
// the coordinate or key grammar.
var ErrMalformed = errors.New("malformed artifact coordinates")

// ParseKey parses `groupId:artifactId[:classifier[:type]]`.
func ParseKey(raw string) (ArtifactKey, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 4 {
		return ArtifactKey{}, fmt.Errorf("%w: %q must be groupId:artifactId[:classifier[:type]]", ErrMalformed, raw)
	}
	if parts[0] == "" || parts[1] == "" {
		return ArtifactKey{}, fmt.Errorf("%w: %q has an empty groupId or artifactId", ErrMalformed, raw)
	}

	key := NewKey(parts[0], parts[1], DefaultClassifier, TypeJar)
	if len(parts) > 2 {
		key.Classifier = parts[2]
	}
	if len(parts) > 3 && parts[3] != "" {
		key.Type = parts[3]
	}
	return key, nil
}

// Parse parses `groupId:artifactId[:classifier[:type]]:version`. The
// version is always the last segment.
func Parse(raw string) (ArtifactCoords, error) {
	trimmed := strings.TrimSpace(raw)
	sep := strings.LastIndex(trimmed, ":")
	if sep <= 0 || sep == len(trimmed)-1 {
		return ArtifactCoords{}, fmt.Errorf("%w: %q is missing a version", ErrMalformed, raw)
	}

	key, err := ParseKey(trimmed[:sep])
	if err != nil {
		return ArtifactCoords{}, fmt.Errorf("%w: %q must be groupId:artifactId[:classifier[:type]]:version", ErrMalformed, raw)
	}
	return key.WithVersion(trimmed[sep+1:]), nil
}

// MustParse is like Parse but panics on error. It is meant for literals.
func MustParse(raw string) ArtifactCoords {
	c, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// MustParseKey is like ParseKey but panics on error.
func MustParseKey(raw string) ArtifactKey {
	k, err := ParseKey(raw)
	if err != nil {
		panic(err)
	}
	return k
}

// SplitByWhitespace splits a descriptor value into its tokens. Empty input
// yields an empty slice.
func SplitByWhitespace(s string) []string {
	return strings.FieldsFunc(s, unicode.IsSpace)
}

// ParseDependencyCondition parses a whitespace-separated list of keys.
func ParseDependencyCondition(raw string) ([]ArtifactKey, error) {
	tokens := SplitByWhitespace(raw)
	keys := make([]ArtifactKey, 0, len(tokens))
	for _, token := range tokens {
		key, err := ParseKey(token)
		if err != nil {
			return nil, fmt.Errorf("dependency condition %q: %w", raw, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParseList parses every token of a whitespace-separated coordinates list,
// preserving declaration order.
func ParseList(raw string) ([]ArtifactCoords, error) {
	tokens := SplitByWhitespace(raw)
	out := make([]ArtifactCoords, 0, len(tokens))
	for _, token := range tokens {
		c, err := Parse(token)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
