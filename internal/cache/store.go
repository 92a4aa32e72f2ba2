// Package cache persists upstream market data on disk, one file per data kind,
// in a versioned msgpack envelope with age-based expiry.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	apperrors "TailHedge/internal/errors"
)

// Kind names one of the cached data sets.
type Kind string

const (
	Historical Kind = "historical"
	PutOptions Kind = "put_options"
	Volatility Kind = "vix"
)

// Version is written into every envelope. Records carrying any other version
// are treated as a miss.
const Version = "1.0"

// DefaultTTL matches a daily refresh.
const DefaultTTL = 24 * time.Hour

var errMiss = errors.New("cache miss")

type envelope struct {
	Version string             `msgpack:"version"`
	Data    msgpack.RawMessage `msgpack:"data"`
}

// Files maps each kind to its file name inside the store directory.
type Files map[Kind]string

// DefaultFiles returns the standard file name per kind.
func DefaultFiles() Files {
	return Files{
		Historical: "price_cache.msgpack",
		PutOptions: "put_options_cache.msgpack",
		Volatility: "vix_cache.msgpack",
	}
}

// Store reads and writes cache envelopes. It holds no payloads in memory, so
// two stores over the same directory see each other's writes.
type Store struct {
	dir   string
	files Files
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

// NewStore creates a Store rooted at dir. Missing kinds in files fall back to
// DefaultFiles; a non-positive ttl falls back to DefaultTTL.
func NewStore(dir string, files Files, ttl time.Duration, logger zerolog.Logger) *Store {
	merged := DefaultFiles()
	for k, v := range files {
		if v != "" {
			merged[k] = v
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		dir:   dir,
		files: merged,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.With().Str("component", "cache").Logger(),
	}
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration { return s.ttl }

// Path returns the backing file of kind.
func (s *Store) Path(kind Kind) string {
	return filepath.Join(s.dir, s.files[kind])
}

// Get decodes the cached payload of kind into out. It returns false when the
// file is missing, stale, corrupt or written by another cache version.
func (s *Store) Get(kind Kind, out any) bool {
	err := s.load(kind, out)
	switch {
	case err == nil:
		return true
	case errors.Is(err, errMiss):
		s.log.Debug().Str("kind", string(kind)).Err(err).Msg("cache miss")
	default:
		s.log.Debug().Str("kind", string(kind)).Err(err).Msg("ignoring unusable cache file")
	}
	return false
}

// Age returns how long ago kind was last written.
func (s *Store) Age(kind Kind) (time.Duration, bool) {
	info, err := os.Stat(s.Path(kind))
	if err != nil {
		return 0, false
	}
	return s.now().Sub(info.ModTime()), true
}

// Put writes payload under the current version. Failures are logged and
// swallowed: a cache that cannot be written only costs a refetch later.
func (s *Store) Put(kind Kind, payload any) {
	if err := s.put(kind, payload); err != nil {
		s.log.Warn().Str("kind", string(kind)).Str("path", s.Path(kind)).Err(err).Msg("failed to save cache")
	}
}

func (s *Store) put(kind Kind, payload any) error {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return s.writeEnvelope(kind, data)
}

func (s *Store) load(kind Kind, out any) error {
	path := s.Path(kind)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, errMiss)
		}
		return fmt.Errorf("stat %s: %w", path, apperrors.ErrCacheCorruption)
	}
	if age := s.now().Sub(info.ModTime()); age >= s.ttl {
		return fmt.Errorf("%s is %s old: %w", path, age.Round(time.Second), errMiss)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, apperrors.ErrCacheCorruption)
	}

	data, legacy, err := unwrap(raw)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", kind, err, apperrors.ErrCacheCorruption)
	}
	if legacy {
		s.migrate(kind, data, info.ModTime())
	}
	return nil
}

// unwrap extracts the payload bytes. A bare payload or an envelope without a
// version is reported as legacy.
func unwrap(raw []byte) (data []byte, legacy bool, err error) {
	var fields map[string]msgpack.RawMessage
	if msgpack.Unmarshal(raw, &fields) == nil {
		if payload, ok := fields["data"]; ok {
			v, versioned := fields["version"]
			if !versioned {
				return payload, true, nil
			}
			var version string
			if err := msgpack.Unmarshal(v, &version); err != nil || version != Version {
				return nil, false, fmt.Errorf("cache version %q, want %q: %w", version, Version, apperrors.ErrCacheCorruption)
			}
			return payload, false, nil
		}
	}
	return raw, true, nil
}

// migrate rewrites a legacy record in the current envelope, keeping the
// original modification time so the TTL is not extended.
func (s *Store) migrate(kind Kind, data []byte, modTime time.Time) {
	if err := s.writeEnvelope(kind, data); err != nil {
		s.log.Warn().Str("kind", string(kind)).Err(err).Msg("failed to migrate legacy cache")
		return
	}
	if err := os.Chtimes(s.Path(kind), modTime, modTime); err != nil {
		s.log.Debug().Str("kind", string(kind)).Err(err).Msg("failed to restore cache mtime")
	}
	s.log.Info().Str("kind", string(kind)).Msg("migrated legacy cache record")
}

func (s *Store) writeEnvelope(kind Kind, data []byte) error {
	buf, err := msgpack.Marshal(envelope{Version: Version, Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	path := s.Path(kind)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
