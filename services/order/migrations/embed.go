// Package migrations содержит SQL миграции goose сервиса order
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
