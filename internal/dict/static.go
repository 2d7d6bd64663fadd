// apps/go-server/internal/dict/static.go
//
// Offline validator backed by a word list file, for development and tests
// without a dictionary API key.
//
// File format:
//   • one word per line, optionally followed by a TAB and a definition;
//   • blank lines and lines starting with '#' are ignored;
//   • surrounding whitespace is trimmed.

package dict

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robalobadob/chosung/apps/go-server/internal/game"
)

// StaticList answers lookups from an in-memory word set.
type StaticList struct {
	words map[string]string // word → definition (may be empty)
}

// LoadFile reads a word list from path.
func LoadFile(path string) (*StaticList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a word list from r.
func Load(r io.Reader) (*StaticList, error) {
	words := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word, def, _ := strings.Cut(line, "\t")
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		words[word] = strings.TrimSpace(def)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return &StaticList{words: words}, nil
}

// Lookup implements game.Validator.
func (l *StaticList) Lookup(_ context.Context, word string) (game.Lookup, error) {
	def, ok := l.words[word]
	return game.Lookup{Exists: ok, Definition: def}, nil
}

// Len reports how many words were loaded.
func (l *StaticList) Len() int { return len(l.words) }
