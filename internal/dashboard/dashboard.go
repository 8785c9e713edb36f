// Package dashboard embeds the admin dashboard templates and styles.
package dashboard

import "embed"

//go:embed templates/*.html
var Templates embed.FS

//go:embed assets/style.css
var Assets embed.FS
