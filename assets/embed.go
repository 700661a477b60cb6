// assets/embed.go
//
// Embedded secret word lists, one file per language.
// Lines are trimmed and upper-cased; blank lines and "#" comments are skipped.

package assets

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed words_it.txt words_en.txt
var FS embed.FS

func readLines(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, strings.ToUpper(s))
	}
	return out, sc.Err()
}

// ItalianWords returns the embedded Italian secret list.
func ItalianWords() ([]string, error) {
	return readLines("words_it.txt")
}

// EnglishWords returns the embedded English secret list.
func EnglishWords() ([]string, error) {
	return readLines("words_en.txt")
}
