package assets

import (
	_ "embed"
)

// DefaultConfigYAML is the annotated document written by `nlsh init-config`.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte
