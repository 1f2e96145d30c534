// Package migrations embeds the goose schema for the local vault database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
