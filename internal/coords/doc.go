// Package coords defines the immutable identity values used throughout the
// extension model: ArtifactCoords (a fully versioned artifact) and
// ArtifactKey (the same identity without a version).
//
// Both types are comparable structs, so they can be used directly as map
// keys. Two coordinates that differ only by version share an ArtifactKey
// and are treated as the same dependency for deduplication and for
// dependency-condition matching.
//
// # String Grammar
//
//	ArtifactCoords: groupId:artifactId[:classifier[:type]]:version
//	ArtifactKey:    groupId:artifactId[:classifier[:type]]
//
// An omitted classifier is the empty DefaultClassifier and an omitted type
// is TypeJar.
package coords
