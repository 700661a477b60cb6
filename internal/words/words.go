// internal/words/words.go
//
// WordBank: per-language immutable lists of secret words.
//
// Responsibilities:
//   - Load the Italian and English lists from environment-provided files or
//     fall back to the embedded defaults in the assets package.
//   - Pick a uniformly random secret for a language.
//
// Initialization behavior (Load):
//   - WORDS_IT_FILE / WORDS_EN_FILE override the embedded list of that
//     language independently; an unset path keeps the embedded list.
//
// Constraints:
//   • Words are exactly Length letters.
//   • Lists are normalized to uppercase and de-duplicated.
//   • A Bank is never mutated after construction, so it is safe for
//     concurrent use.

package words

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robalobadob/wordduel/assets"
)

// Length is the fixed number of letters in every secret word.
const Length = 5

// Language selects a word list.
type Language string

const (
	Italian Language = "it"
	English Language = "en"
)

// Languages lists every supported language in a stable order.
var Languages = []Language{Italian, English}

// ErrUnknownLanguage is returned when a language has no list.
var ErrUnknownLanguage = errors.New("words: unknown language")

// ParseLanguage maps a client-supplied language tag to a Language.
// Matching is case-insensitive; the second return value is false for
// anything that is not a supported language.
func ParseLanguage(s string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case Italian:
		return Italian, true
	case English:
		return English, true
	}
	return "", false
}

// Bank holds the secret lists.
type Bank struct {
	lists map[Language][]string
}

// Files points at optional on-disk overrides, one per language.
type Files struct {
	Italian string
	English string
}

// Load builds a Bank from the embedded lists, replacing a language's list
// with the file named in f when set.
func Load(f Files) (*Bank, error) {
	lists := make(map[Language][]string, len(Languages))
	for _, src := range []struct {
		lang     Language
		path     string
		embedded func() ([]string, error)
	}{
		{Italian, f.Italian, assets.ItalianWords},
		{English, f.English, assets.EnglishWords},
	} {
		var (
			list []string
			err  error
		)
		if src.path != "" {
			list, err = readWordFile(src.path)
		} else {
			list, err = src.embedded()
		}
		if err != nil {
			return nil, fmt.Errorf("words: load %s: %w", src.lang, err)
		}
		lists[src.lang] = list
	}
	return NewBank(lists)
}

// NewBank validates and normalizes lists into a Bank.
// Entries that are not Length letters are dropped; a language that ends up
// empty is an error.
func NewBank(lists map[Language][]string) (*Bank, error) {
	b := &Bank{lists: make(map[Language][]string, len(lists))}
	for lang, list := range lists {
		clean := normalize(list)
		if len(clean) == 0 {
			return nil, fmt.Errorf("words: %s list is empty", lang)
		}
		b.lists[lang] = clean
	}
	return b, nil
}

// Pick returns a uniformly random secret for lang.
// Consecutive picks may repeat.
func (b *Bank) Pick(lang Language) (string, error) {
	list, ok := b.lists[lang]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return "", fmt.Errorf("words: random index: %w", err)
	}
	return list[n.Int64()], nil
}

// Contains reports whether w is a secret word of lang.
func (b *Bank) Contains(lang Language, w string) bool {
	w = strings.ToUpper(w)
	for _, x := range b.lists[lang] {
		if x == w {
			return true
		}
	}
	return false
}

// Stats returns the number of words loaded per language.
func (b *Bank) Stats() map[Language]int {
	out := make(map[Language]int, len(b.lists))
	for lang, list := range b.lists {
		out[lang] = len(list)
	}
	return out
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

// normalize trims, upper-cases, filters to valid words, and removes duplicates.
func normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, line := range list {
		w := strings.ToUpper(strings.TrimSpace(line))
		if utf8.RuneCountInString(w) != Length || !isAlpha(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// isAlpha reports whether s is all letters.
func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
