package assets

import (
	_ "embed"
)

// DefaultConfigYAML is the commented default configuration written on first run
// and by the init-config command.
//
//go:embed config.default.yaml
var DefaultConfigYAML []byte
