// Package migrations содержит SQL миграции goose сервиса booking
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
