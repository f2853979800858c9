// internal/coords/types.go
package coords

const (
	// DefaultClassifier is the classifier of an artifact that declares none.
	DefaultClassifier = ""
	// TypeJar is the packaging type assumed when none is declared.
	TypeJar = "jar"
	// TypePom identifies a pom-only artifact.
	TypePom = "pom"
)

// ArtifactKey identifies an artifact independently of its version.
type ArtifactKey struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Type       string
}

// ArtifactCoords identifies a specific version of an artifact.
type ArtifactCoords struct {
	GroupID    string
	ArtifactID string
	Classifier string
	Type       string
	Version    string
}

// NewKey creates a key, filling in the default type when it is empty.
func NewKey(groupID, artifactID, classifier, typ string) ArtifactKey {
	if typ == "" {
		typ = TypeJar
	}
	return ArtifactKey{GroupID: groupID, ArtifactID: artifactID, Classifier: classifier, Type: typ}
}

// New creates coordinates, filling in the default type when it is empty.
func New(groupID, artifactID, classifier, typ, version string) ArtifactCoords {
	if typ == "" {
		typ = TypeJar
	}
	return ArtifactCoords{
		GroupID:    groupID,
		ArtifactID: artifactID,
		Classifier: classifier,
		Type:       typ,
		Version:    version,
	}
}

// NewJar is shorthand for a classifier-less jar artifact.
func NewJar(groupID, artifactID, version string) ArtifactCoords {
	return New(groupID, artifactID, DefaultClassifier, TypeJar, version)
}
