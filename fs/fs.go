// Package appfs embeds the files shipped with the binaries: SQL migrations, templates & assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates assets
var FS embed.FS
