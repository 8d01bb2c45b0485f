// Command gen-config-schema regenerates config/schema.json, the JSON schema
// of ftbundle configuration files. The schema is reflected from the bundle
// target types in internal/config, so a target gaining a field only needs
// a go generate run in the config package.
package main

import (
	"log"
	"os"

	"github.com/foldingtext/ftbundle/internal/config"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalf("usage: %s path/to/schema.json", os.Args[0])
	}
	bs, err := config.ReflectSchema()
	if err != nil {
		log.Fatalf("reflect bundle target schema: %v", err)
	}
	if err := os.WriteFile(os.Args[1], append(bs, '\n'), 0o644); err != nil {
		log.Fatalf("write %s: %v", os.Args[1], err)
	}
}
