package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pithomlabs/cb2docs/types"
	restate "github.com/restatedev/sdk-go"
)

// FileWriterService writes the generated documentation to disk
type FileWriterService struct{}

// ServiceName returns the service name for registration
func (s FileWriterService) ServiceName() string {
	return "FileWriter"
}

// WriteDocs persists the index and chapters under <root>/<project_name>.
func (s FileWriterService) WriteDocs(ctx restate.Context, input types.WriteDocsInput) (types.WriteDocsOutput, error) {
	written, err := WriteDocumentation(input.Docs)
	if err != nil {
		return types.WriteDocsOutput{}, err
	}
	ctx.Log().Info("documentation written", "dir", input.Docs.OutputDir(), "files", len(written))
	return types.WriteDocsOutput{OutputPath: input.Docs.OutputDir(), FilesWritten: written}, nil
}

// WriteDocumentation creates the output directory and writes index.md
// followed by every chapter. It returns the paths written.
func WriteDocumentation(docs types.Documentation) ([]string, error) {
	if docs.ProjectName == "" {
		return nil, fmt.Errorf("project_name is required")
	}
	dir := docs.OutputDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := append([]types.ChapterFile{{FileName: "index.md", Content: docs.Index}}, docs.Chapters...)
	written := make([]string, 0, len(files))
	for _, f := range files {
		if f.FileName != filepath.Base(f.FileName) {
			return written, fmt.Errorf("refusing to write %q outside %s", f.FileName, dir)
		}
		path := filepath.Join(dir, f.FileName)
		if err := os.WriteFile(path, []byte(f.Content), 0644); err != nil {
			return written, fmt.Errorf("failed to write file %s: %w", f.FileName, err)
		}
		written = append(written, path)
	}
	return written, nil
}
