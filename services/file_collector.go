package services

import (
	"fmt"
	"log/slog"

	"github.com/pithomlabs/cb2docs/types"
	"github.com/pithomlabs/cb2docs/utils"
	restate "github.com/restatedev/sdk-go"
)

// FileCollectorService reads source files from a local directory
type FileCollectorService struct{}

// ServiceName returns the service name for registration
func (s FileCollectorService) ServiceName() string {
	return "FileCollector"
}

// Collect traverses the local repository and returns the indexed file list
func (s FileCollectorService) Collect(ctx restate.Context, input types.CollectFilesInput) (types.CollectFilesOutput, error) {
	out, err := CollectFiles(input, ctx.Log())
	if err != nil {
		return types.CollectFilesOutput{}, restate.TerminalError(err)
	}
	return out, nil
}

// CollectFiles walks input.RepoPath and indexes the files in walk order.
func CollectFiles(input types.CollectFilesInput, logger *slog.Logger) (types.CollectFilesOutput, error) {
	if input.RepoPath == "" {
		return types.CollectFilesOutput{}, fmt.Errorf("repo_path is required")
	}

	fileInfos, err := utils.WalkDirectory(utils.WalkDirectoryOptions{
		RootPath:        input.RepoPath,
		IncludePatterns: input.IncludePatterns,
		ExcludePatterns: input.ExcludePatterns,
		IgnoreFile:      input.IgnoreFile,
		MaxFileSize:     input.MaxFileSize,
		MaxFiles:        input.MaxFiles,
		Logger:          logger,
	})
	if err != nil {
		return types.CollectFilesOutput{}, fmt.Errorf("failed to walk directory: %w", err)
	}
	if len(fileInfos) == 0 {
		return types.CollectFilesOutput{}, fmt.Errorf("no files matched in %s", input.RepoPath)
	}

	files := make([]types.FileContent, len(fileInfos))
	for i, info := range fileInfos {
		files[i] = types.FileContent{
			Index:   i,
			Path:    info.RelativePath,
			Content: info.Content,
		}
	}
	return types.CollectFilesOutput{Files: files}, nil
}
