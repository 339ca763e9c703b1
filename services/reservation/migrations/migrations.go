// Package migrations содержит SQL миграции reservation сервиса (goose)
package migrations

import "embed"

// FS миграции, встроенные в бинарник
//
//go:embed *.sql
var FS embed.FS
