// Package catalog is the read-side view over persisted sessions: listing,
// search, annotation and export (spec §4.7). It never touches the
// Recording Engine and holds no in-memory session cache of its own --
// adapted from the teacher's session/manager.go ListSessions/SaveSessionMeta
// pattern, but re-targeted onto Session Store transactions instead of an
// in-memory map plus flat JSON files.
package catalog

import (
	"bytes"
	"sort"
	"strings"

	"taverntapesd/internal/ids"
	"taverntapesd/internal/model"
	"taverntapesd/internal/store"
	"taverntapesd/internal/validate"
)

// Catalog is the read-side API over a Store.
type Catalog struct {
	store *store.Store
}

// New constructs a Catalog backed by store.
func New(s *store.Store) *Catalog {
	return &Catalog{store: s}
}

// ListSessions returns every session, newest first.
func (c *Catalog) ListSessions() ([]*model.Session, error) {
	sessions, err := c.store.GetAllSessions()
	if err != nil {
		return nil, err
	}
	store.SortSessionsByCreatedAtDesc(sessions)
	return sessions, nil
}

// Search returns sessions matching query with AND semantics across
// whitespace-separated tokens: each token must match (case-insensitively,
// as a substring) the session name, a note, or a tag. An empty query
// behaves as ListSessions.
func (c *Catalog) Search(query string) ([]*model.Session, error) {
	sessions, err := c.ListSessions()
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return sessions, nil
	}

	matches := make([]*model.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sessionMatchesAllTokens(sess, tokens) {
			matches = append(matches, sess)
		}
	}
	return matches, nil
}

func sessionMatchesAllTokens(sess *model.Session, tokens []string) bool {
	for _, tok := range tokens {
		if !sessionMatchesToken(sess, tok) {
			return false
		}
	}
	return true
}

func sessionMatchesToken(sess *model.Session, token string) bool {
	token = strings.ToLower(token)
	if strings.Contains(strings.ToLower(sess.Metadata.SessionName), token) {
		return true
	}
	for _, note := range sess.Notes {
		if strings.Contains(strings.ToLower(note), token) {
			return true
		}
	}
	for _, tag := range sess.Tags {
		if strings.Contains(strings.ToLower(tag), token) {
			return true
		}
	}
	return false
}

// AddNote validates and appends note to session's notes list. The
// read-modify-write happens inside a single store transaction (spec §5),
// so a concurrent annotate call can't silently clobber this one.
func (c *Catalog) AddNote(id ids.SessionId, note string) error {
	if err := validate.Note(note); err != nil {
		return err
	}
	_, err := c.store.UpdateSession(id, func(sess *model.Session) error {
		sess.Notes = append(sess.Notes, note)
		return nil
	})
	return err
}

// AddTags validates tags and set-unions them onto the session's tag list,
// re-reading the session inside the same transaction it writes to.
func (c *Catalog) AddTags(id ids.SessionId, tags []string) error {
	_, err := c.store.UpdateSession(id, func(sess *model.Session) error {
		if err := validate.TagSet(sess.Tags, tags); err != nil {
			return err
		}
		existing := make(map[string]struct{}, len(sess.Tags))
		for _, t := range sess.Tags {
			existing[t] = struct{}{}
		}
		for _, t := range tags {
			if _, ok := existing[t]; !ok {
				sess.Tags = append(sess.Tags, t)
				existing[t] = struct{}{}
			}
		}
		return nil
	})
	return err
}

// RemoveTag removes tag from the session's tag list. No-op if absent.
func (c *Catalog) RemoveTag(id ids.SessionId, tag string) error {
	_, err := c.store.UpdateSession(id, func(sess *model.Session) error {
		out := sess.Tags[:0]
		for _, t := range sess.Tags {
			if t != tag {
				out = append(out, t)
			}
		}
		sess.Tags = out
		return nil
	})
	return err
}

// Export concatenates a session's segment blobs in sequence order. If
// targetFormat is the zero value or matches the session's own recording
// format, the concatenated bytes are returned unchanged; any other target
// format is rejected, since no transcoder port exists (spec §4.7,
// §9 open question: export format conversion not implemented).
func (c *Catalog) Export(id ids.SessionId, targetFormat model.Format) ([]byte, error) {
	sess, err := c.store.GetSession(id)
	if err != nil {
		return nil, err
	}
	if targetFormat != "" && targetFormat != sess.Metadata.Format {
		return nil, model.ErrFormatConversionUnsupported
	}

	segments := make([]model.SegmentRef, len(sess.Segments))
	copy(segments, sess.Segments)
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].SequenceIndex < segments[j].SequenceIndex
	})

	var buf bytes.Buffer
	for _, seg := range segments {
		b, err := c.store.LoadBlob(seg.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}

// DeleteSession removes a session's metadata and every segment blob it
// references.
func (c *Catalog) DeleteSession(id ids.SessionId) error {
	return c.store.DeleteSession(id)
}
