package buybox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no buy box has the requested ID.
var ErrNotFound = errors.New("buy box not found")

// ErrExists is returned when creating a buy box whose ID is taken.
var ErrExists = errors.New("buy box already exists")

const fileExt = ".yaml"

// DefaultDir returns the default buy box directory: ~/.config/bb/buyboxes
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bb", "buyboxes"), nil
}

// Store keeps one YAML document per buy box in a directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the directory the store reads and writes.
func (s *Store) Dir() string {
	return s.dir
}

// Create saves a new buy box. An ID is derived from the name when b has
// none.
func (s *Store) Create(b *BuyBox) (*BuyBox, error) {
	if b.ID == "" {
		b.ID = Slug(b.Name)
	}
	if err := checkID(b.ID); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	b.CreatedAt = now
	b.UpdatedAt = now

	err := s.withLock(func() error {
		if _, err := os.Stat(s.path(b.ID)); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, b.ID)
		}
		return s.write(b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Update replaces an existing buy box, keeping its creation time.
func (s *Store) Update(b *BuyBox) (*BuyBox, error) {
	if err := checkID(b.ID); err != nil {
		return nil, err
	}

	err := s.withLock(func() error {
		existing, err := s.Get(b.ID)
		if err != nil {
			return err
		}
		b.CreatedAt = existing.CreatedAt
		b.UpdatedAt = s.now().UTC().Truncate(time.Second)
		return s.write(b)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns the buy box with the given ID.
func (s *Store) Get(id string) (*BuyBox, error) {
	if err := checkID(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	b, err := LoadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = id
	}
	return b, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	ActiveOnly bool
}

// List returns every buy box sorted by name, then ID.
func (s *Store) List(opts ListOptions) ([]*BuyBox, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading buy box directory: %w", err)
	}

	var boxes []*BuyBox
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		b, err := s.Get(strings.TrimSuffix(e.Name(), fileExt))
		if err != nil {
			return nil, err
		}
		if opts.ActiveOnly && !b.IsActive {
			continue
		}
		boxes = append(boxes, b)
	}

	sort.Slice(boxes, func(i, j int) bool {
		if boxes[i].Name != boxes[j].Name {
			return boxes[i].Name < boxes[j].Name
		}
		return boxes[i].ID < boxes[j].ID
	})
	return boxes, nil
}

// Remove deletes a buy box.
func (s *Store) Remove(id string) error {
	if err := checkID(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.withLock(func() error {
		err := os.Remove(s.path(id))
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("removing buy box: %w", err)
		}
		return nil
	})
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// withLock runs fn while holding the directory's lock file so concurrent
// CLI invocations don't interleave writes.
func (s *Store) withLock(fn func() error) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating buy box directory %s: %w", s.dir, err)
	}

	lock := flock.New(filepath.Join(s.dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking buy box directory: %w", err)
	}
	defer func() {
		if uerr := lock.Unlock(); uerr != nil && err == nil {
			err = fmt.Errorf("unlocking buy box directory: %w", uerr)
		}
	}()

	return fn()
}

// write stores b through a temp file and rename so readers never see a
// partial document.
func (s *Store) write(b *BuyBox) error {
	data, err := Encode(b)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+b.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing buy box: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(b.ID)); err != nil {
		return fmt.Errorf("saving buy box: %w", err)
	}
	return nil
}

// Slug derives a file-safe ID from a buy box name, falling back to a random
// short ID when the name has no usable characters.
func Slug(name string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			dash = false
		case sb.Len() > 0 && !dash:
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "bb-" + uuid.NewString()[:8]
	}
	return slug
}

func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("buy box id is required")
	}
	if strings.ContainsAny(id, `/\.`) || strings.HasPrefix(id, "-") {
		return fmt.Errorf("invalid buy box id %q", id)
	}
	return nil
}
