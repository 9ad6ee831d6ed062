// Package migrations embeds the SQL migrations for each supported backend.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
