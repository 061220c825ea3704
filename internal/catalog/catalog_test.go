package catalog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taverntapesd/internal/ids"
	"taverntapesd/internal/model"
	"taverntapesd/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putSession(t *testing.T, s *store.Store, name string, createdAt time.Time, notes, tags []string) *model.Session {
	t.Helper()
	sess := &model.Session{
		ID:        ids.NewSessionId(),
		CreatedAt: createdAt,
		Metadata:  model.SessionMetadata{SessionName: name, Format: model.FormatWAV},
		Notes:     notes,
		Tags:      tags,
	}
	require.NoError(t, s.PutSession(sess))
	return sess
}

func TestListSessionsOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	older := putSession(t, s, "Older", time.Unix(100, 0), nil, nil)
	newer := putSession(t, s, "Newer", time.Unix(200, 0), nil, nil)

	got, err := c.ListSessions()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.ID, got[0].ID)
	require.Equal(t, older.ID, got[1].ID)
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	putSession(t, s, "One", time.Unix(1, 0), nil, nil)
	putSession(t, s, "Two", time.Unix(2, 0), nil, nil)

	got, err := c.Search("   ")
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestSearchAndSemanticsAcrossFields(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	putSession(t, s, "Friday Jam", time.Unix(1, 0), []string{"great bass solo"}, []string{"rock"})
	putSession(t, s, "Friday Jam", time.Unix(2, 0), nil, []string{"jazz"})
	putSession(t, s, "Monday Rehearsal", time.Unix(3, 0), nil, []string{"rock"})

	got, err := c.Search("friday rock")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"rock"}, got[0].Tags)
}

func TestSearchIsCaseInsensitiveOverNameNoteTag(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	putSession(t, s, "Ensemble", time.Unix(1, 0), []string{"BASS SOLO"}, []string{"Rock"})

	got, err := c.Search("bass solo rock")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestAddNoteAppendsAndValidates(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	sess := putSession(t, s, "N", time.Now(), nil, nil)

	require.NoError(t, c.AddNote(sess.ID, "a note"))
	got, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"a note"}, got.Notes)

	err = c.AddNote(sess.ID, string(make([]byte, 1001)))
	require.ErrorIs(t, err, model.ErrNoteTooLong)
}

func TestAddNoteOnMissingSessionFails(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	err := c.AddNote(ids.NewSessionId(), "note")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestAddTagsDedupesAndEnforcesCap(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	sess := putSession(t, s, "T", time.Now(), nil, []string{"existing"})

	require.NoError(t, c.AddTags(sess.ID, []string{"existing", "new"}))
	got, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"existing", "new"}, got.Tags)

	many := make([]string, 25)
	for i := range many {
		many[i] = "tag" + string(rune('a'+i))
	}
	err = c.AddTags(sess.ID, many)
	require.ErrorIs(t, err, model.ErrTooManyTags)
}

func TestRemoveTagIsNoOpIfAbsent(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	sess := putSession(t, s, "R", time.Now(), nil, []string{"keep"})

	require.NoError(t, c.RemoveTag(sess.ID, "missing"))
	got, err := s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"keep"}, got.Tags)

	require.NoError(t, c.RemoveTag(sess.ID, "keep"))
	got, err = s.GetSession(sess.ID)
	require.NoError(t, err)
	require.Empty(t, got.Tags)
}

func TestExportConcatenatesSegmentsInSequenceOrder(t *testing.T) {
	s := openTestStore(t)
	c := New(s)

	id1, id2 := ids.NewSegmentId(), ids.NewSegmentId()
	_, err := s.SaveBlob(id2, []byte("second"), model.SessionMetadata{}, 2)
	require.NoError(t, err)
	_, err = s.SaveBlob(id1, []byte("first-"), model.SessionMetadata{}, 1)
	require.NoError(t, err)

	sess := &model.Session{
		ID:       ids.NewSessionId(),
		Metadata: model.SessionMetadata{Format: model.FormatWAV},
		Segments: []model.SegmentRef{
			{ID: id2, SequenceIndex: 2},
			{ID: id1, SequenceIndex: 1},
		},
	}
	require.NoError(t, s.PutSession(sess))

	out, err := c.Export(sess.ID, "")
	require.NoError(t, err)
	require.Equal(t, "first-second", string(out))
}

func TestExportRejectsMismatchedTargetFormat(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	sess := putSession(t, s, "E", time.Now(), nil, nil)

	_, err := c.Export(sess.ID, model.FormatCompressed)
	require.ErrorIs(t, err, model.ErrFormatConversionUnsupported)
}

func TestExportAllowsMatchingTargetFormat(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	sess := putSession(t, s, "E", time.Now(), nil, nil)

	out, err := c.Export(sess.ID, model.FormatWAV)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestDeleteSessionRemovesItAndItsBlobs(t *testing.T) {
	s := openTestStore(t)
	c := New(s)
	segID := ids.NewSegmentId()
	_, err := s.SaveBlob(segID, []byte("x"), model.SessionMetadata{}, 0)
	require.NoError(t, err)
	sess := &model.Session{ID: ids.NewSessionId(), Segments: []model.SegmentRef{{ID: segID}}}
	require.NoError(t, s.PutSession(sess))

	require.NoError(t, c.DeleteSession(sess.ID))
	_, err = s.GetSession(sess.ID)
	require.ErrorIs(t, err, model.ErrSessionNotFound)
	_, err = s.LoadBlob(segID)
	require.ErrorIs(t, err, model.ErrBlobNotFound)
}
