// Package assets embeds files shipped inside the binary.
package assets

import (
	"embed"
	"io"
)

// Migrations holds the SQLite schema scripts, applied in lexical order.
//
//go:embed sql/*.sql
var Migrations embed.FS

//go:embed words.txt
var words embed.FS

// WordList opens the bundled starter dictionary (one word per line, optional
// tab-separated definition). Callers close it.
func WordList() (io.ReadCloser, error) {
	return words.Open("words.txt")
}
