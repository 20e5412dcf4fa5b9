package page

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed static
var embedded embed.FS

// Assets returns the stylesheet and client script. An empty dir selects the
// copy compiled into the binary.
func Assets(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
