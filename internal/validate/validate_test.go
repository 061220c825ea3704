package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"taverntapesd/internal/model"
)

func TestSessionName(t *testing.T) {
	require.NoError(t, SessionName("Friday Session_1"))
	require.ErrorIs(t, SessionName(""), model.ErrSessionNameInvalid)
	require.ErrorIs(t, SessionName(strings.Repeat("a", 101)), model.ErrSessionNameInvalid)
	require.ErrorIs(t, SessionName("bad/name"), model.ErrSessionNameInvalid)
}

func TestNote(t *testing.T) {
	require.NoError(t, Note(strings.Repeat("a", 1000)))
	require.ErrorIs(t, Note(strings.Repeat("a", 1001)), model.ErrNoteTooLong)
}

func TestTag(t *testing.T) {
	require.NoError(t, Tag("one-shot_2"))
	require.ErrorIs(t, Tag("has space"), model.ErrTagInvalid)
	require.ErrorIs(t, Tag(""), model.ErrTagInvalid)
}

func TestTagSetCap(t *testing.T) {
	existing := make([]string, 19)
	for i := range existing {
		existing[i] = "t"
	}
	// distinct names so the cap check can't be satisfied by de-duplication
	for i := range existing {
		existing[i] = existing[i] + string(rune('a'+i))
	}
	require.NoError(t, TagSet(existing, []string{"one-more"}))
	require.ErrorIs(t, TagSet(existing, []string{"one-more", "two-more"}), model.ErrTooManyTags)
}

func TestTagSetRejectsInvalidNewTag(t *testing.T) {
	require.ErrorIs(t, TagSet(nil, []string{"bad tag"}), model.ErrTagInvalid)
}
