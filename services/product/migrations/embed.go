// Package migrations содержит SQL миграции goose сервиса product
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
