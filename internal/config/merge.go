package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyLogging = "logging"
	keyStore   = "store"
	keyCache   = "cache"
	keyBatch   = "batch"
	keyTargets = "targets"
	keyQuality = "quality"
	keyOutput  = "output"
)

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay, and unknown keys, are left alone.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, node := range overlay {
		if err = decodeSection(target, key, &node); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// decodeSection decodes node into a fresh zero value of the section type so
// the overlay replaces the section rather than merging into its maps/slices.
func decodeSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keyLogging:
		return replace(node, &target.Logging)
	case keyStore:
		return replace(node, &target.Store)
	case keyCache:
		return replace(node, &target.Cache)
	case keyBatch:
		return replace(node, &target.Batch)
	case keyTargets:
		return replace(node, &target.Targets)
	case keyQuality:
		return replace(node, &target.Quality)
	case keyOutput:
		return replace(node, &target.Output)
	default:
		return nil
	}
}

func replace[T any](node *yaml.Node, dst *T) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*dst = v
	return nil
}
