// Package appfs exposes files embedded in the binary: database migrations
// and anything else the running app needs without a full checkout.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
