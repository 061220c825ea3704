// Package store implements the Blob, Session and Recovery stores as three
// key-prefixed collections in a single badger database, grounded on
// ManuGH-xg2g's internal/v3/store/badger_store.go (prefixed-key
// transactional put/get over JSON values).
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"taverntapesd/internal/ids"
	"taverntapesd/internal/model"
)

const (
	prefixSession  = "sess:"
	prefixBlob     = "blob:"
	prefixSetting  = "setting:"
	keyRecovery    = "recovery:current"
	schemaVersionSessions = 1
	schemaVersionSettings = 1
	schemaVersionBlobs    = 2
)

// Store owns the badger database backing the Blob, Session and Recovery
// stores (spec §§4.4-4.6).
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) the badger database at path and records
// the current schema versions (spec §4.5) for any collection that has none
// yet. An already-recorded version is left as is: it is not compared with
// the current one, nothing is logged, and there is no migration path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Store{db: db}
	if err := s.checkSchemaVersions(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) checkSchemaVersions() error {
	versions := map[string]int{
		"meta:schema_version:sessions": schemaVersionSessions,
		"meta:schema_version:settings": schemaVersionSettings,
		"meta:schema_version:blobs":    schemaVersionBlobs,
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for key, want := range versions {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				if setErr := txn.Set([]byte(key), []byte(fmt.Sprintf("%d", want))); setErr != nil {
					return setErr
				}
				continue
			}
			if err != nil {
				return err
			}
			_ = item // an existing version is kept without comparison; no migrator exists.
		}
		return nil
	})
}

func (s *Store) Close() error { return s.db.Close() }

// --- Session Store (spec §4.5) ---

func sessionKey(id ids.SessionId) []byte {
	return []byte(prefixSession + id.String())
}

// PutSession writes a session record transactionally.
func (s *Store) PutSession(sess *model.Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: marshal session: %v", model.ErrSessionStoreFailed, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(sess.ID), buf)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSessionStoreFailed, err)
	}
	return nil
}

// GetSession returns the session, or (nil, model.ErrSessionNotFound) if
// absent.
func (s *Store) GetSession(id ids.SessionId) (*model.Session, error) {
	var out model.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSessionStoreFailed, err)
	}
	return &out, nil
}

// GetAllSessions returns every session, unordered; callers sort.
func (s *Store) GetAllSessions() ([]*model.Session, error) {
	var out []*model.Session
	prefix := []byte(prefixSession)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var sess model.Session
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sess)
			}); err != nil {
				return err
			}
			out = append(out, &sess)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSessionStoreFailed, err)
	}
	return out, nil
}

// UpdateSession performs an atomic read-modify-write of one session: it
// re-reads the record inside the same badger transaction fn runs under,
// so concurrent annotate calls cannot silently drop each other's writes
// (spec §5: the Catalog's read-modify-write for notes/tags re-reads inside
// the transaction), grounded on ManuGH-xg2g's
// internal/v3/store/badger_store.go UpdateSession.
func (s *Store) UpdateSession(id ids.SessionId, fn func(*model.Session) error) (*model.Session, error) {
	key := sessionKey(id)
	var out model.Session
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		}); err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes the session record and cascades to all referenced
// blobs.
func (s *Store) DeleteSession(id ids.SessionId) error {
	sess, err := s.GetSession(id)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, seg := range sess.Segments {
			if delErr := txn.Delete(blobKey(seg.ID)); delErr != nil && !errors.Is(delErr, badger.ErrKeyNotFound) {
				return delErr
			}
		}
		return txn.Delete(sessionKey(id))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrSessionStoreFailed, err)
	}
	return nil
}

// --- Settings (the Session Store's separate `setting:` collection, spec §4.5) ---

func settingKey(name string) []byte { return []byte(prefixSetting + name) }

// settingAliases maps each key of an aliased settings pair onto its twin
// (spec §6.1: format/audio_format, quality/audio_quality).
var settingAliases = map[string]string{
	"format":         "audio_format",
	"audio_format":   "format",
	"quality":        "audio_quality",
	"audio_quality":  "quality",
}

// PutSetting writes a single setting key transactionally. Writing either
// key of an aliased pair (format/audio_format, quality/audio_quality) also
// writes its twin, so both names observe the same value.
func (s *Store) PutSetting(key, value string) error {
	twin, isAlias := settingAliases[key]
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(settingKey(key), []byte(value)); err != nil {
			return err
		}
		if isAlias {
			if err := txn.Set(settingKey(twin), []byte(value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateSettings commits a batch of key/value writes in a single
// transaction (spec §5's `update_settings` atomic-multi-key entry point).
func (s *Store) UpdateSettings(kv map[string]string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for k, v := range kv {
			if err := txn.Set(settingKey(k), []byte(v)); err != nil {
				return err
			}
			if twin, isAlias := settingAliases[k]; isAlias {
				if err := txn.Set(settingKey(twin), []byte(v)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetSettings returns the full settings snapshot, with defaults applied
// for any missing recognized key and unknown keys preserved verbatim.
func (s *Store) GetSettings() (model.Settings, error) {
	out := model.DefaultSettings()
	prefix := []byte(prefixSetting)
	unknown := map[string]string{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), prefixSetting)
			var value string
			if err := item.Value(func(val []byte) error {
				value = string(val)
				return nil
			}); err != nil {
				return err
			}
			applySetting(&out, unknown, key, value)
		}
		return nil
	})
	if err != nil {
		return model.Settings{}, fmt.Errorf("%w: %v", model.ErrSessionStoreFailed, err)
	}
	if len(unknown) > 0 {
		out.Unknown = unknown
	}
	return out, nil
}

// ClearSettings removes every stored setting, reverting subsequent reads
// to defaults.
func (s *Store) ClearSettings() error {
	prefix := []byte(prefixSetting)
	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := append([]byte(nil), it.Item().Key()...)
			keys = append(keys, k)
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func applySetting(out *model.Settings, unknown map[string]string, key, value string) {
	switch key {
	case "theme":
		out.Theme = value
	case "audio_format", "format":
		out.Format = model.Format(value)
	case "audio_quality", "quality":
		fmt.Sscanf(value, "%d", &out.QualityKbps)
	case "auto_split_enabled":
		out.AutoSplitEnabled = value == "true"
	case "split_interval_minutes":
		fmt.Sscanf(value, "%d", &out.SplitIntervalMinutes)
	case "split_size_mb":
		fmt.Sscanf(value, "%d", &out.SplitSizeMB)
	case "storage_location":
		out.StorageLocation = value
	case "input_device_id":
		out.InputDeviceID = value
	default:
		unknown[key] = value
	}
}

// --- Blob Store (spec §4.4) ---

func blobKey(id ids.SegmentId) []byte { return []byte(prefixBlob + id.String()) }

// blobRecord is the on-disk shape for a blob: bytes plus the path
// convention, transactionally coupled at save/load granularity.
type blobRecord struct {
	Bytes []byte `json:"bytes"`
	Path  string `json:"path"`
}

func blobPath(id ids.SegmentId) string { return "recordings/" + id.String() }

// SaveBlob atomically stores bytes under id, returning a SegmentRef.
func (s *Store) SaveBlob(id ids.SegmentId, bytes []byte, metadata model.SessionMetadata, sequenceIndex int) (model.SegmentRef, error) {
	rec := blobRecord{Bytes: bytes, Path: blobPath(id)}
	buf, err := json.Marshal(rec)
	if err != nil {
		return model.SegmentRef{}, fmt.Errorf("%w: marshal blob: %v", model.ErrBlobWriteFailed, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blobKey(id), buf)
	})
	if err != nil {
		return model.SegmentRef{}, fmt.Errorf("%w: %v", model.ErrBlobWriteFailed, err)
	}
	return model.SegmentRef{
		ID:            id,
		Path:          rec.Path,
		Metadata:      metadata,
		SequenceIndex: sequenceIndex,
	}, nil
}

// LoadBlob returns the bytes stored under id, or
// model.ErrBlobNotFound.
func (s *Store) LoadBlob(id ids.SegmentId) ([]byte, error) {
	var rec blobRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blobKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, model.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBlobWriteFailed, err)
	}
	return rec.Bytes, nil
}

// DeleteBlob removes bytes and metadata together.
func (s *Store) DeleteBlob(id ids.SegmentId) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(blobKey(id))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %v", model.ErrBlobWriteFailed, err)
	}
	return nil
}

// ListOrphans returns every stored blob id not present in referenced (the
// segment ids that sessions point at) -- used for the startup purge (spec §3 "orphan blobs
// MUST be purged on startup").
func (s *Store) ListOrphans(referenced map[ids.SegmentId]struct{}) ([]ids.SegmentId, error) {
	var orphans []ids.SegmentId
	prefix := []byte(prefixBlob)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := strings.TrimPrefix(string(it.Item().Key()), prefixBlob)
			segID, err := ids.ParseSegmentId(key)
			if err != nil {
				continue
			}
			if _, ok := referenced[segID]; !ok {
				orphans = append(orphans, segID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBlobWriteFailed, err)
	}
	return orphans, nil
}

// ReferencedBlobIDs scans all sessions and collects every segment id they
// reference, for use with ListOrphans.
func (s *Store) ReferencedBlobIDs() (map[ids.SegmentId]struct{}, error) {
	sessions, err := s.GetAllSessions()
	if err != nil {
		return nil, err
	}
	out := make(map[ids.SegmentId]struct{})
	for _, sess := range sessions {
		for _, seg := range sess.Segments {
			out[seg.ID] = struct{}{}
		}
	}
	return out, nil
}

// --- Recovery Store (spec §4.6) ---

// PutRecoveryCheckpoint overwrites the single recovery slot.
func (s *Store) PutRecoveryCheckpoint(cp model.RecoveryCheckpoint) error {
	buf, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("%w: marshal checkpoint: %v", model.ErrRecoveryStoreFailed, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyRecovery), buf)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrRecoveryStoreFailed, err)
	}
	return nil
}

// GetRecoveryCheckpoint returns the checkpoint, or (nil, nil) if absent.
func (s *Store) GetRecoveryCheckpoint() (*model.RecoveryCheckpoint, error) {
	var out model.RecoveryCheckpoint
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyRecovery))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrRecoveryStoreFailed, err)
	}
	return &out, nil
}

// DeleteRecoveryCheckpoint clears the single slot.
func (s *Store) DeleteRecoveryCheckpoint() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyRecovery))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %v", model.ErrRecoveryStoreFailed, err)
	}
	return nil
}

// SortSessionsByCreatedAtDesc sorts in place, newest first (spec §4.7
// list_sessions ordering), adapted from the teacher's ListSessions sort.
func SortSessionsByCreatedAtDesc(sessions []*model.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
