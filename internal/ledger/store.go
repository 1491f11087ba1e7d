package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"
)

// Store is a file-backed Ledger. Load, Save and Update are serialized by a
// single mutex held across the file I/O, which is the only concurrency
// control the leveling feature relies on.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store backed by the JSON file at the given path.
// The file is created lazily on first Load or Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the ledger from the backing file. A missing file is created
// with an empty ledger. Unparseable content is preserved under a ".corrupt"
// suffix and replaced by an empty ledger, so the feature degrades instead of
// failing.
func (s *Store) Load() (Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Save overwrites the backing file with the given ledger, pretty-printed
// with 4-space indentation. Durability is best effort: a crash mid-write
// loses the write, and the last complete save wins.
func (s *Store) Save(l Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(l)
}

// Update runs fn against the current ledger and saves the result, all under
// one lock acquisition. Callers mutating a record must use Update rather
// than a Load/Save pair so that two concurrent grants for the same user
// cannot clobber each other.
func (s *Store) Update(fn func(Ledger)) (Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.load()
	if err != nil {
		return nil, err
	}

	fn(l)

	if err := s.save(l); err != nil {
		return nil, err
	}
	return l, nil
}

// load must be called with the mutex held.
func (s *Store) load() (Ledger, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		l := Ledger{}
		if err := s.save(l); err != nil {
			return nil, err
		}
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file %s: %w", s.path, err)
	}

	var l Ledger
	if err := json.Unmarshal(raw, &l); err != nil {
		// Unparseable content is not worth crashing over. Keep the bad file
		// around for inspection and start from an empty ledger.
		backup := s.path + ".corrupt"
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			logger.Warnf("Failed to preserve corrupt ledger file as %s: %+v", backup, renameErr)
		} else {
			logger.Warnf("Ledger file %s is corrupt; preserved as %s and reset: %+v", s.path, backup, err)
		}
		return Ledger{}, nil
	}
	if l == nil {
		l = Ledger{}
	}
	return l, nil
}

// save must be called with the mutex held.
func (s *Store) save(l Ledger) error {
	raw, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to serialize ledger: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write ledger file %s: %w", s.path, err)
	}
	return nil
}
