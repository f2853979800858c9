// internal/coords/coords.go
package coords

import "strings"

// Key drops the version.
func (c ArtifactCoords) Key() ArtifactKey {
	return ArtifactKey{GroupID: c.GroupID, ArtifactID: c.ArtifactID, Classifier: c.Classifier, Type: c.Type}
}

// WithVersion returns a copy of the coordinates carrying another version.
func (c ArtifactCoords) WithVersion(version string) ArtifactCoords {
	c.Version = version
	return c
}

// GAV returns the group:artifact:version notation used by build tools for
// external module references. Classifier and type are not part of it.
func (c ArtifactCoords) GAV() string {
	return c.GroupID + ":" + c.ArtifactID + ":" + c.Version
}

// SameGAV reports whether both coordinates share group, artifact and
// version, ignoring classifier and type.
func (c ArtifactCoords) SameGAV(other ArtifactCoords) bool {
	return c.GroupID == other.GroupID && c.ArtifactID == other.ArtifactID && c.Version == other.Version
}

// IsZero reports whether the coordinates are unset.
func (c ArtifactCoords) IsZero() bool {
	return c == ArtifactCoords{}
}

// String serializes the coordinates into their canonical form. The
// classifier and type segments are only written when they differ from the
// defaults.
func (c ArtifactCoords) String() string {
	var sb strings.Builder
	writeKey(&sb, c.GroupID, c.ArtifactID, c.Classifier, c.Type)
	sb.WriteRune(':')
	sb.WriteString(c.Version)
	return sb.String()
}

// String serializes the key into its canonical form.
func (k ArtifactKey) String() string {
	var sb strings.Builder
	writeKey(&sb, k.GroupID, k.ArtifactID, k.Classifier, k.Type)
	return sb.String()
}

// WithVersion turns the key into full coordinates.
func (k ArtifactKey) WithVersion(version string) ArtifactCoords {
	return ArtifactCoords{
		GroupID:    k.GroupID,
		ArtifactID: k.ArtifactID,
		Classifier: k.Classifier,
		Type:       k.Type,
		Version:    version,
	}
}

func writeKey(sb *strings.Builder, group, artifact, classifier, typ string) {
	sb.WriteString(group)
	sb.WriteRune(':')
	sb.WriteString(artifact)
	if typ != "" && typ != TypeJar {
		sb.WriteRune(':')
		sb.WriteString(classifier)
		sb.WriteRune(':')
		sb.WriteString(typ)
	} else if classifier != "" {
		sb.WriteRune(':')
		sb.WriteString(classifier)
	}
}
