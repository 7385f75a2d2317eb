// Package session moves opaque engine state between the filesystem
// and the generation engine. The blob's encoding belongs entirely to
// the engine; this package only observes existence and read/write
// success.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrConflict is returned when a persist path is combined with an
// explicit load or save path.
var ErrConflict = errors.New("persist session cannot be combined with load or save session")

// A Session describes where engine state comes from and where it goes
// for one invocation. Construct one with Resolve or the mode helpers;
// the zero value does nothing.
type Session struct {
	loadPath string
	savePath string

	// tolerateMissing makes a missing load file mean "fresh session"
	// instead of an error. Only persist mode sets it.
	tolerateMissing bool
}

// None is a session that neither loads nor saves.
func None() Session {
	return Session{}
}

// LoadOnly restores state from path before generation. The file must
// exist and be readable.
func LoadOnly(path string) Session {
	return Session{loadPath: path}
}

// SaveOnly writes state to path after generation, overwriting any
// existing file.
func SaveOnly(path string) Session {
	return Session{savePath: path}
}

// LoadSave combines LoadOnly and SaveOnly, possibly on different
// paths. Load keeps its strict semantics.
func LoadSave(load, save string) Session {
	return Session{loadPath: load, savePath: save}
}

// Persist loads from and saves to the same path, tolerating a missing
// file on load. Any other load failure is still fatal.
func Persist(path string) Session {
	return Session{loadPath: path, savePath: path, tolerateMissing: true}
}

// Resolve maps the three user-facing path options onto a session.
// persist is a convenience for load+save on one path and cannot be
// combined with either.
func Resolve(load, save, persist string) (Session, error) {
	if persist != "" {
		if load != "" || save != "" {
			return Session{}, ErrConflict
		}
		return Persist(persist), nil
	}
	return Session{loadPath: load, savePath: save}, nil
}

// HasLoad reports whether the session restores prior state.
func (s Session) HasLoad() bool {
	return s.loadPath != ""
}

// HasSave reports whether the session persists state afterwards.
func (s Session) HasSave() bool {
	return s.savePath != ""
}

// Load reads the prior session blob. It returns (nil, nil) when the
// session has no load path, and also when the file is missing in
// persist mode — the caller proceeds with a fresh session in both
// cases. Every other failure is returned as-is.
func (s Session) Load() ([]byte, error) {
	if s.loadPath == "" {
		return nil, nil
	}

	blob, err := os.ReadFile(s.loadPath)
	if err != nil {
		if s.tolerateMissing && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no prior session, starting fresh", "path", s.loadPath)
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	slog.Debug("restored session", "path", s.loadPath, "bytes", len(blob))
	return blob, nil
}

// Save writes the session blob, replacing any existing file. The write
// goes through a temp file in the same directory so a failure cannot
// truncate a previously saved session.
func (s Session) Save(blob []byte) error {
	if s.savePath == "" {
		return nil
	}

	dir := filepath.Dir(s.savePath)
	f, err := os.CreateTemp(dir, filepath.Base(s.savePath)+".tmp*")
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := f.Write(blob); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("save session: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("save session: %w", err)
	}

	if err := os.Rename(f.Name(), s.savePath); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("save session: %w", err)
	}

	slog.Debug("saved session", "path", s.savePath, "bytes", len(blob))
	return nil
}
