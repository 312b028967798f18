package store

import "embed"

// migrations holds the run-history schema.
//
//go:embed migrations/*.sql
var migrations embed.FS
