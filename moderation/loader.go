package moderation

import (
	"bufio"
	"bytes"
	"chat-hub/errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// WordList is what LoadWordLists found in a dictionary folder.
type WordList struct {
	Words     []string
	Languages []string
}

// LoadWordLists reads every *.txt file at the root of fsys, one word per line.
// The file name without extension is reported as the language ("fr.txt" -> "fr").
func LoadWordLists(fsys fs.FS) (WordList, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return WordList{}, fmt.Errorf("cannot list dictionaries: %w", err)
	}

	var languages []string
	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return WordList{}, fmt.Errorf("cannot read %s: %w", entry.Name(), err)
		}
		// Scanner copes with both \n and \r\n
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				unique[line] = struct{}{}
			}
		}
		if err = scanner.Err(); err != nil {
			return WordList{}, fmt.Errorf("cannot parse %s: %w", entry.Name(), err)
		}
	}

	if len(unique) == 0 {
		return WordList{}, errors.ErrEmptyWords
	}
	words := lo.Keys(unique)
	sort.Strings(words)
	return WordList{Words: words, Languages: languages}, nil
}
