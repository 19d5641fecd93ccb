package types

import "path/filepath"

// FileContent represents a source code file with indexed reference
type FileContent struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Component is a core abstraction discovered in the codebase
type Component struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Files       []FileRef `json:"files"` // References to FileContent by index
}

// Relationship is a directed, labeled edge between two components
type Relationship struct {
	From  ComponentRef `json:"from_component"`
	To    ComponentRef `json:"to_component"`
	Label string       `json:"label"`
}

// ===== Inference Schemas =====

// ComponentDraft is one component as returned by the model, before its
// file indices are checked against the input file list.
type ComponentDraft struct {
	Name        string `json:"name" yaml:"name" jsonschema_description:"concise name for the component"`
	Description string `json:"description" yaml:"description" jsonschema_description:"beginner friendly description of the component"`
	Files       []int  `json:"files" yaml:"files" jsonschema_description:"list of relevant file indices of the component"`
}

// ComponentList is the segregation schema
type ComponentList struct {
	Components []ComponentDraft `json:"components" yaml:"components" jsonschema_description:"list of components"`
}

// RelationshipDraft is one relationship as returned by the model
type RelationshipDraft struct {
	FromComponent int    `json:"from_component" yaml:"from_component" jsonschema_description:"index of the source component"`
	ToComponent   int    `json:"to_component" yaml:"to_component" jsonschema_description:"index of the target component"`
	Label         string `json:"label" yaml:"label" jsonschema_description:"brief label for the interaction in just a few words"`
}

// RelationshipAnalysis is the relationship-analysis schema: a project
// overview plus the relationship list.
type RelationshipAnalysis struct {
	Overview      string              `json:"overview" yaml:"overview" jsonschema_description:"high-level beginner friendly overview of the project in markdown"`
	Relationships []RelationshipDraft `json:"relationships" yaml:"relationships" jsonschema_description:"list of relationships between the components"`
}

// Ordering is the ordering schema
type Ordering struct {
	OrderedComponents []int `json:"ordered_components" yaml:"ordered_components" jsonschema_description:"ordered, non-repeating list of all component indices"`
}

// ===== Planning and Output =====

// ChapterLink is the title and file name of a chapter
type ChapterLink struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	FileName string `json:"file_name"`
}

// PagePlan is the metadata for one chapter before its content exists
type PagePlan struct {
	Number         int          `json:"number"`
	ComponentIndex int          `json:"component_index"`
	Title          string       `json:"title"`
	FileName       string       `json:"file_name"`
	Listing        string       `json:"listing"` // every chapter as a numbered markdown link
	Prev           *ChapterLink `json:"prev,omitempty"`
	Next           *ChapterLink `json:"next,omitempty"`
}

// ChapterFile is one persisted chapter
type ChapterFile struct {
	FileName string `json:"file_name"`
	Content  string `json:"content"`
}

// Documentation is the rendered output handed to the writer
type Documentation struct {
	Root        string        `json:"root"`
	ProjectName string        `json:"project_name"`
	Index       string        `json:"index"`
	Chapters    []ChapterFile `json:"chapters"`
}

// OutputDir returns <root>/<project_name>
func (d Documentation) OutputDir() string {
	return filepath.Join(d.Root, d.ProjectName)
}

// ===== Service Input/Output Types =====

// CollectFilesInput configures file collection from a local directory
type CollectFilesInput struct {
	RepoPath        string   `json:"repo_path"`
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	IgnoreFile      string   `json:"ignore_file,omitempty"`
	MaxFileSize     int64    `json:"max_file_size"`
	MaxFiles        int      `json:"max_files"`
}

// CollectFilesOutput returns indexed file list
type CollectFilesOutput struct {
	Files []FileContent `json:"files"`
}

// WriteDocsInput specifies the documentation to persist
type WriteDocsInput struct {
	Docs Documentation `json:"docs"`
}

// WriteDocsOutput returns paths of created files
type WriteDocsOutput struct {
	OutputPath   string   `json:"output_path"`
	FilesWritten []string `json:"files_written"`
}

// TutorialWorkflowInput configures the entire tutorial generation workflow
type TutorialWorkflowInput struct {
	LocalRepoPath   string   `json:"local_repo_path"`
	ProjectName     string   `json:"project_name,omitempty"` // Optional, derived from path if empty
	MaxComponents   int      `json:"max_components"`
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`
	IgnoreFile      string   `json:"ignore_file,omitempty"`
	MaxFileSize     int64    `json:"max_file_size,omitempty"`
	MaxFiles        int      `json:"max_files,omitempty"`
	DocsRoot        string   `json:"docs_root,omitempty"`
	StrictCoverage  bool     `json:"strict_coverage,omitempty"`
}

// RunSummary is what a completed run reports
type RunSummary struct {
	OutputPath   string   `json:"output_path"`
	Components   int      `json:"components"`
	Chapters     int      `json:"chapters"`
	FilesWritten []string `json:"files_written"`
}
