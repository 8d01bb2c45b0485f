package bundler

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/google/renameio/v2"
)

// WriteOutputs writes the files of a bundling pass. Each file is replaced
// atomically, so readers never see a partially written bundle.
func WriteOutputs(files []api.OutputFile) error {
	for _, f := range files {
		if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := writeFile(f.Path, f.Contents); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", path, err)
	}
	defer pendingFile.Cleanup() // nolint:errcheck

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
