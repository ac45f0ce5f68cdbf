// Package appfs exposes the repo's embedded static assets:
// SQL migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
