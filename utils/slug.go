package utils

import (
	"fmt"
	"strings"
	"unicode"
)

// Slugify lowercases name and maps every rune that is not a letter or digit
// to an underscore. Runs of underscores are kept so that the mapping stays
// one rune to one rune.
func Slugify(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, name)
}

// ChapterFileName returns the file name of chapter n for a component name,
// e.g. ChapterFileName(3, "File I/O!") == "03_file_i_o_.md".
func ChapterFileName(n int, name string) string {
	return fmt.Sprintf("%02d_%s.md", n, Slugify(name))
}
