package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/purell"
	"gopkg.in/yaml.v3"

	"github.com/use-agent/scrubber/models"
)

// DefaultDir is the cache root used when none is configured.
const DefaultDir = "scrubber_cache"

// derivedExt is appended to a key to name its derived slot.
const derivedExt = ".yaml"

// ErrNotFound is returned when a slot has not been written for a key.
// It is not a failure: a missing raw slot means the document must be fetched.
var ErrNotFound = errors.New("cache: slot not found")

// KeyMode selects how a resource path is turned into a file name.
type KeyMode string

const (
	// KeySanitize drops the leading "/" and replaces "&" and "?" with "-".
	// Distinct paths such as "/a?b" and "/a&b" collide.
	KeySanitize KeyMode = "sanitize"

	// KeyHash uses the hex sha256 of the normalized path. Paths differing
	// only in query parameter order share a key.
	KeyHash KeyMode = "hash"
)

// Store keeps two slots per resource path on disk: the raw fetched document
// and the derived RestaurantRecord. Distinct keys may be used concurrently;
// the same key must not be written by two processes at once.
type Store struct {
	dir  string
	mode KeyMode
}

// NewStore creates the cache root (and any missing parents) and returns a
// Store rooted there. An empty mode defaults to KeySanitize.
func NewStore(dir string, mode KeyMode) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	switch mode {
	case "":
		mode = KeySanitize
	case KeySanitize, KeyHash:
	default:
		return nil, fmt.Errorf("cache: unknown key mode %q", mode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root %s: %w", dir, err)
	}
	return &Store{dir: dir, mode: mode}, nil
}

// Dir returns the cache root.
func (s *Store) Dir() string { return s.dir }

// SanitizeKey derives the file-safe key of a resource path.
func SanitizeKey(path string) string {
	key := strings.TrimPrefix(path, "/")
	key = strings.ReplaceAll(key, "&", "-")
	key = strings.ReplaceAll(key, "?", "-")
	return key
}

// hashFlags normalize a path without changing the resource it names.
const hashFlags = purell.FlagsSafe |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveFragment |
	purell.FlagSortQuery

// HashKey derives a collision-resistant key of a resource path.
func HashKey(path string) string {
	if normalized, err := purell.NormalizeURLString(path, hashFlags); err == nil {
		path = normalized
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Key returns the cache key of path under the store's key mode.
func (s *Store) Key(path string) string {
	if s.mode == KeyHash {
		return HashKey(path)
	}
	return SanitizeKey(path)
}

// ErrInvalidKey is returned for keys that are empty or would resolve
// outside the cache root.
var ErrInvalidKey = errors.New("cache: invalid key")

// CheckKey reports whether key can name a slot under the cache root.
func (s *Store) CheckKey(key string) error {
	_, err := s.rawPath(key)
	return err
}

func (s *Store) rawPath(key string) (string, error) {
	local := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, local), nil
}

func (s *Store) derivedPath(key string) (string, error) {
	p, err := s.rawPath(key)
	if err != nil {
		return "", err
	}
	return p + derivedExt, nil
}

// Exists reports whether the raw slot of key holds a document.
func (s *Store) Exists(key string) bool {
	p, err := s.rawPath(key)
	return err == nil && isFile(p)
}

// ExistsDerived reports whether the derived slot of key holds a record.
func (s *Store) ExistsDerived(key string) bool {
	p, err := s.derivedPath(key)
	return err == nil && isFile(p)
}

// ReadRaw returns the cached document of key, or ErrNotFound.
func (s *Store) ReadRaw(key string) (string, error) {
	p, err := s.rawPath(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache: read raw %s: %w", key, err)
	}
	return string(data), nil
}

// WriteRaw stores the fetched document of key.
func (s *Store) WriteRaw(key, text string) error {
	p, err := s.rawPath(key)
	if err != nil {
		return err
	}
	if err := writeAtomic(p, []byte(text)); err != nil {
		return fmt.Errorf("cache: write raw %s: %w", key, err)
	}
	return nil
}

// DeleteRaw removes the raw slot of key. Deleting a missing slot is a no-op.
func (s *Store) DeleteRaw(key string) error {
	p, err := s.rawPath(key)
	if err != nil {
		return err
	}
	return remove(p)
}

// ReadDerived decodes the record stored for key, or returns ErrNotFound.
func (s *Store) ReadDerived(key string) (*models.RestaurantRecord, error) {
	p, err := s.derivedPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read derived %s: %w", key, err)
	}

	var rec models.RestaurantRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("cache: decode derived %s: %w", key, err)
	}
	return &rec, nil
}

// WriteDerived serializes rec into the derived slot of key.
func (s *Store) WriteDerived(key string, rec *models.RestaurantRecord) error {
	p, err := s.derivedPath(key)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: encode derived %s: %w", key, err)
	}
	if err := writeAtomic(p, data); err != nil {
		return fmt.Errorf("cache: write derived %s: %w", key, err)
	}
	return nil
}

// DeleteDerived removes the derived slot of key. Deleting a missing slot is a no-op.
func (s *Store) DeleteDerived(key string) error {
	p, err := s.derivedPath(key)
	if err != nil {
		return err
	}
	return remove(p)
}

// Clear recursively deletes the whole cache root, every key included.
// Later writes recreate the root on demand.
func (s *Store) Clear() error {
	return Clear(s.dir)
}

// Clear recursively deletes the cache root at dir.
func Clear(dir string) error {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("cache: clear %s: %w", dir, err)
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func remove(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("cache: delete %s: %w", filepath.Base(path), err)
}

// writeAtomic writes data next to path and renames it into place, so a
// reader never observes a partially written slot.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
