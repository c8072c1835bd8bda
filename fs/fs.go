// Package appfs embeds the files shipped with the binaries: SQL migrations and the seed catalog.
package appfs

import "embed"

//go:embed migrations/*.sql seed/*.yaml
var FS embed.FS
