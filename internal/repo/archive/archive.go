// Package archive stores finished sessions on disk, one zstd-compressed
// msgpack file per session.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/steveyiyo/pitchcoach-backend/internal/repo/memory"
)

var (
	ErrNotFound  = errors.New("archive: session not found")
	ErrInvalidID = errors.New("archive: invalid session id")
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) (string, error) {
	if !validID.MatchString(id) {
		return "", ErrInvalidID
	}
	return filepath.Join(s.dir, id+".msgpack.zst"), nil
}

// Put writes sess, replacing any earlier archive of the same id.
func (s *Store) Put(sess *memory.Session) error {
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, ".tmp-"+sess.ID+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(sess); err != nil {
		zw.Close()
		return fmt.Errorf("encode %s: %w", sess.ID, err)
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func (s *Store) Get(id string) (*memory.Session, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var sess memory.Session
	if err := msgpack.NewDecoder(zr).Decode(&sess); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return &sess, nil
}
