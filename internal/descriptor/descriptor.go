// Package descriptor reads the extension descriptor resource: a Java
// properties file at a fixed path inside an extension's runtime artifact,
// either in an exploded directory or inside a packaged archive.
package descriptor

import (
	"fmt"

	"github.com/magiconair/properties"
	"github.com/specialistvlad/extforge/internal/coords"
)

// Path is the location of the descriptor relative to an artifact root.
const Path = "META-INF/quarkus-extension.properties"

// Recognized descriptor keys.
const (
	PropDeploymentArtifact         = "deployment-artifact"
	PropDependencyCondition        = "dependency-condition"
	PropConditionalDependencies    = "conditional-dependencies"
	PropConditionalDevDependencies = "conditional-dev-dependencies"
)

// Descriptor is a parsed extension descriptor. It is read-only after
// parsing and can be shared between goroutines.
type Descriptor struct {
	// Source is the file (or archive!entry) the descriptor was read from.
	Source string
	props  *properties.Properties
}

// Parse reads properties-format data. Values are taken literally: no
// ${...} expansion is performed, and a repeated key keeps its last value.
func Parse(data []byte, source string) (*Descriptor, error) {
	loader := &properties.Loader{Encoding: properties.ISO_8859_1, DisableExpansion: true}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extension descriptor %s: %w", source, err)
	}
	return &Descriptor{Source: source, props: props}, nil
}

// Get returns the raw value of a key.
func (d *Descriptor) Get(key string) (string, bool) {
	return d.props.Get(key)
}

// Has reports whether the key is present, even with an empty value.
func (d *Descriptor) Has(key string) bool {
	_, ok := d.props.Get(key)
	return ok
}

// Keys returns all keys in the order they first appeared.
func (d *Descriptor) Keys() []string {
	return d.props.Keys()
}

// DeploymentArtifact returns the deployment artifact coordinates. The
// boolean is false when the key is absent.
func (d *Descriptor) DeploymentArtifact() (coords.ArtifactCoords, bool, error) {
	raw, ok := d.props.Get(PropDeploymentArtifact)
	if !ok {
		return coords.ArtifactCoords{}, false, nil
	}
	c, err := coords.Parse(raw)
	if err != nil {
		return coords.ArtifactCoords{}, true, fmt.Errorf("%s in %s: %w", PropDeploymentArtifact, d.Source, err)
	}
	return c, true, nil
}

// DependencyConditions returns the condition keys in declaration order.
func (d *Descriptor) DependencyConditions() ([]coords.ArtifactKey, error) {
	raw, ok := d.props.Get(PropDependencyCondition)
	if !ok {
		return nil, nil
	}
	keys, err := coords.ParseDependencyCondition(raw)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", PropDependencyCondition, d.Source, err)
	}
	return keys, nil
}

// ConditionalDependencies returns the conditional runtime dependencies.
func (d *Descriptor) ConditionalDependencies() ([]coords.ArtifactCoords, error) {
	return d.coordsList(PropConditionalDependencies)
}

// ConditionalDevDependencies returns the conditional dev-mode dependencies.
func (d *Descriptor) ConditionalDevDependencies() ([]coords.ArtifactCoords, error) {
	return d.coordsList(PropConditionalDevDependencies)
}

func (d *Descriptor) coordsList(key string) ([]coords.ArtifactCoords, error) {
	raw, ok := d.props.Get(key)
	if !ok {
		return nil, nil
	}
	list, err := coords.ParseList(raw)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", key, d.Source, err)
	}
	return list, nil
}
