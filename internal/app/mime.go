package app

import (
	"log"
	"mime"
)

// Minimal container images often ship without /etc/mime.types, which
// leaves the embedded stylesheet served as text/plain and ignored by
// browsers. Register the type ourselves when the table comes up empty.
func init() {
	registerMime(".css", "text/css; charset=utf-8")
}

func registerMime(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: register mime type %s: %v", ext, err)
	}
}
