// Package migrations embeds the SQL schema for every supported driver.
package migrations

import "embed"

// FS holds one directory per database driver, named after the driver
//
//go:embed sqlite3/*.sql mysql/*.sql
var FS embed.FS
