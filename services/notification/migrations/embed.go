// Package migrations содержит SQL миграции goose сервиса notification
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
