package workflow

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/pithomlabs/cb2docs/types"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BrokenLink is a relative markdown link whose target is not a file of the run.
type BrokenLink struct {
	Document string
	Target   string
}

// CheckLinks parses the index and every chapter and reports relative .md
// links that point at no generated file. Each one is logged as a warning.
func CheckLinks(docs types.Documentation, logger *slog.Logger) []BrokenLink {
	if logger == nil {
		logger = slog.Default()
	}

	known := map[string]bool{"index.md": true}
	for _, ch := range docs.Chapters {
		known[ch.FileName] = true
	}

	md := goldmark.New()
	var broken []BrokenLink
	check := func(name, content string) {
		src := []byte(content)
		doc := md.Parser().Parse(text.NewReader(src))
		_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			link, ok := n.(*ast.Link)
			if !ok {
				return ast.WalkContinue, nil
			}
			target, ok := localMarkdownTarget(string(link.Destination))
			if ok && !known[target] {
				broken = append(broken, BrokenLink{Document: name, Target: target})
				logger.Warn("chapter links to a file that was not generated", "document", name, "target", target)
			}
			return ast.WalkContinue, nil
		})
	}

	check("index.md", docs.Index)
	for _, ch := range docs.Chapters {
		check(ch.FileName, ch.Content)
	}
	return broken
}

// localMarkdownTarget returns the cleaned file name of a relative link to a
// .md file.
func localMarkdownTarget(dest string) (string, bool) {
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	p := path.Clean(u.Path)
	if !strings.HasSuffix(strings.ToLower(p), ".md") {
		return "", false
	}
	return strings.TrimPrefix(p, "./"), true
}
