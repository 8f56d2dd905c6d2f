package db

import "embed"

// EmbedMigrations holds the gateway's schema migrations, compiled into
// the binary.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
