package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// IgnoreMatcher applies gitignore-style rules. Supported: comments, blank
// lines, "!" negation, trailing "/" for directories, leading "/" anchoring,
// and "**". The last matching rule wins.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	globs    []glob.Glob
	negate   bool
	dirOnly  bool
	basename bool // no slash in the pattern: match the last path element
}

// LoadIgnoreFile reads an ignore file. A missing file yields a nil matcher
// and no error.
func LoadIgnoreFile(filename string) (*IgnoreMatcher, error) {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseIgnore(f)
}

// ParseIgnore compiles ignore rules from r.
func ParseIgnore(r io.Reader) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseIgnoreRule(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		m.rules = append(m.rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseIgnoreRule(line string) (ignoreRule, error) {
	var rule ignoreRule
	if strings.HasPrefix(line, "!") {
		rule.negate = true
		line = line[1:]
	}
	line = strings.TrimPrefix(line, `\`)
	if strings.HasSuffix(line, "/") {
		rule.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	anchored := strings.HasPrefix(line, "/")
	line = strings.TrimPrefix(line, "/")
	rule.basename = !anchored && !strings.Contains(line, "/")

	patterns := []string{line}
	if rest, ok := strings.CutPrefix(line, "**/"); ok {
		patterns = append(patterns, rest)
	}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return ignoreRule{}, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		rule.globs = append(rule.globs, g)
	}
	return rule, nil
}

// Len returns the number of rules.
func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Match reports whether rel (slash separated, relative to the ignore file's
// directory) is ignored. A path under an ignored directory is ignored.
func (m *IgnoreMatcher) Match(rel string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	parts := strings.Split(rel, "/")
	for i := 1; i < len(parts); i++ {
		if m.match(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.match(rel, isDir)
}

func (m *IgnoreMatcher) match(rel string, isDir bool) bool {
	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		target := rel
		if r.basename {
			target = path.Base(rel)
		}
		for _, g := range r.globs {
			if g.Match(target) {
				ignored = !r.negate
				break
			}
		}
	}
	return ignored
}
