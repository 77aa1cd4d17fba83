package migrations

import "embed"

// FS contém as migrações SQLite embutidas do log de requisições.
//
//go:embed *.sql
var FS embed.FS
