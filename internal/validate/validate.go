// Package validate holds the input-validation rules for session names,
// notes and tags (spec §7 "Input validation" error kinds).
package validate

import (
	"fmt"
	"regexp"

	"taverntapesd/internal/model"
)

var sessionNameRe = regexp.MustCompile(`^[A-Za-z0-9 _\-.]+$`)
var tagRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

const (
	maxSessionNameLen = 100
	maxNoteLen        = 1000
	maxTagsPerSession = 20
)

// SessionName reports whether x is 1..100 chars and matches
// [A-Za-z0-9 _\-.]+.
func SessionName(x string) error {
	if len(x) < 1 || len(x) > maxSessionNameLen {
		return fmt.Errorf("%w: length %d out of range [1,%d]", model.ErrSessionNameInvalid, len(x), maxSessionNameLen)
	}
	if !sessionNameRe.MatchString(x) {
		return fmt.Errorf("%w: %q contains disallowed characters", model.ErrSessionNameInvalid, x)
	}
	return nil
}

// Note reports whether note is <= 1000 chars.
func Note(note string) error {
	if len(note) > maxNoteLen {
		return fmt.Errorf("%w: length %d exceeds %d", model.ErrNoteTooLong, len(note), maxNoteLen)
	}
	return nil
}

// Tag reports whether tag matches [A-Za-z0-9_-]{1,50}.
func Tag(tag string) error {
	if !tagRe.MatchString(tag) {
		return fmt.Errorf("%w: %q", model.ErrTagInvalid, tag)
	}
	return nil
}

// TagSet validates a proposed union of existing and new tags against the
// per-session cap.
func TagSet(existing []string, adding []string) error {
	seen := make(map[string]struct{}, len(existing)+len(adding))
	for _, t := range existing {
		seen[t] = struct{}{}
	}
	for _, t := range adding {
		if err := Tag(t); err != nil {
			return err
		}
		seen[t] = struct{}{}
	}
	if len(seen) > maxTagsPerSession {
		return fmt.Errorf("%w: %d exceeds %d", model.ErrTooManyTags, len(seen), maxTagsPerSession)
	}
	return nil
}
