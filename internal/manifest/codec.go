package manifest

import (
	"compress/zlib"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Version tags the current manifest schema. Bump when the envelope format
// changes; readers treat anything else as a full-rebuild signal.
const Version = "v2"

// oldVersions are schemas we still recognize, but only well enough to
// delete their listed artifacts before resetting to empty state.
var oldVersions = map[string]bool{
	"v1": true,
}

// LockRefresh, when set, runs after every successful manifest write so the
// dependency layer can refresh its toolchain lock.
var LockRefresh func()

type envelope struct {
	Version string
	Modules []Module
	Sources []Source
}

// Read decodes the manifest at path. Module beam paths come back joined
// under compileDir. A missing, corrupt, or unknown-version manifest yields
// empty state; a known old version additionally deletes its artifacts under
// compileDir (cleanup before the forced full rebuild). Never fails.
func Read(path, compileDir string) ([]Module, []Source) {
	f, err := os.Open(path) // #nosec G304 -- manifest location is build configuration
	if err != nil {
		return nil, nil
	}
	defer func() {
		_ = f.Close()
	}()

	zr, err := zlib.NewReader(f)
	if err != nil {
		return nil, nil
	}
	var env envelope
	decodeErr := msgpack.NewDecoder(zr).Decode(&env)
	_ = zr.Close()
	if decodeErr != nil {
		return nil, nil
	}

	switch {
	case env.Version == Version:
		for i := range env.Modules {
			env.Modules[i].Beam = filepath.Join(compileDir, env.Modules[i].Beam)
		}
		return env.Modules, env.Sources
	case oldVersions[env.Version]:
		for i := range env.Modules {
			beam := filepath.Base(env.Modules[i].Beam)
			_ = os.Remove(filepath.Join(compileDir, beam))
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// Write persists the manifest atomically. Empty state deletes the file.
// Otherwise every module binary is flushed to compileDir with its mtime set
// to timestamp, binaries are stripped, beam fields are rewritten relative,
// and the compressed envelope replaces the manifest via temp-file rename.
// The manifest's own mtime is the canonical "build completed" instant.
func Write(path string, modules []Module, sources []Source, compileDir string, timestamp time.Time) error {
	if len(modules) == 0 && len(sources) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove manifest %q: %w", path, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}

	out := make([]Module, len(modules))
	copy(out, modules)
	for i := range out {
		m := &out[i]
		beam := m.Name + ".beam"
		if len(m.Binary) > 0 {
			full := filepath.Join(compileDir, beam)
			if err := os.WriteFile(full, m.Binary, 0o600); err != nil {
				return fmt.Errorf("failed to write artifact %q: %w", full, err)
			}
			if err := os.Chtimes(full, timestamp, timestamp); err != nil {
				return fmt.Errorf("failed to stamp artifact %q: %w", full, err)
			}
		}
		m.Binary = nil
		m.Beam = beam
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create manifest temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	zw := zlib.NewWriter(tmp)
	if err := msgpack.NewEncoder(zw).Encode(&envelope{
		Version: Version,
		Modules: out,
		Sources: sources,
	}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to compress manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace manifest %q: %w", path, err)
	}
	if err := os.Chtimes(path, timestamp, timestamp); err != nil {
		return fmt.Errorf("failed to stamp manifest %q: %w", path, err)
	}

	if LockRefresh != nil {
		LockRefresh()
	}
	return nil
}

// Mtime returns the manifest's modification time, or the zero time when the
// file does not exist (everything is newer than a missing manifest).
func Mtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
