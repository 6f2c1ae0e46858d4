// Package migrations содержит SQL миграции goose сервиса user
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
