package moderation

import (
	"chat-hub/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadWordLists(t *testing.T) {
	req := require.New(t)

	// Given two dictionaries sharing a word, with mixed line endings
	fsys := fstest.MapFS{
		"en.txt":       {Data: []byte("darn\r\nheck\n\n")},
		"fr.txt":       {Data: []byte("zut\n  heck  \n")},
		"README.md":    {Data: []byte("ignored")},
		"nested/x.txt": {Data: []byte("ignored")},
	}

	// When loading the folder
	list, err := LoadWordLists(fsys)

	// Then words are merged without duplicates
	req.NoError(err)
	req.Equal([]string{"darn", "heck", "zut"}, list.Words)
	req.ElementsMatch([]string{"en", "fr"}, list.Languages)
}

func TestLoadWordLists_Empty_Folder(t *testing.T) {
	req := require.New(t)
	_, err := LoadWordLists(fstest.MapFS{"en.txt": {Data: []byte("\n\n")}})
	req.ErrorIs(err, errors.ErrEmptyWords)
}
