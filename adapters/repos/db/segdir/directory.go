//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package segdir

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// Output is what CreateOutput returns: a sequential writer that can be
// durably synced and closed. *os.File already satisfies this.
type Output interface {
	io.Writer
	io.Closer
	Sync() error
}

// Input is what OpenInput returns: a sequential reader that can be
// closed. *os.File already satisfies this.
type Input interface {
	io.Reader
	io.Closer
}

// Directory is the abstract collaborator the core delegates all file
// system access to (spec §1, §6). It intentionally mirrors the narrow
// surface the teacher's SegmentGroup uses (os.ReadDir, filepath.Join,
// os.Remove) rather than exposing the whole os/io/fs surface.
type Directory interface {
	// ListAll lists every entry in the directory, unsorted order not
	// guaranteed to be stable across calls (directory caches may be
	// stale — see GenerationFinder).
	ListAll() ([]string, error)

	// OpenInput opens name for sequential reading.
	OpenInput(name string) (Input, error)

	// CreateOutput creates (or truncates) name for sequential writing.
	CreateOutput(name string) (Output, error)

	// DeleteFile removes name. It is idempotent: deleting an already-
	// absent file is not an error.
	DeleteFile(name string) error

	// FileExists reports whether name exists.
	FileExists(name string) (bool, error)

	// Sync durably persists the named files' contents and, where the
	// underlying filesystem requires it, the directory entry itself.
	Sync(names []string) error
}

// FSDirectory is a Directory backed by a real filesystem directory.
// Grounded on lsmkv.SegmentGroup's directory walking (os.ReadDir,
// filepath.Join, errors.Wrapf) and commitLogger's (os.Create, os.Open).
type FSDirectory struct {
	root string
}

// NewFSDirectory binds a Directory to root, which must already exist.
func NewFSDirectory(root string) (*FSDirectory, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(segdirent.ErrNoSuchDirectory, "%s", root)
		}
		return nil, errors.Wrapf(segdirent.ErrIOFailure, "stat %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(segdirent.ErrNoSuchDirectory, "%s is not a directory", root)
	}
	return &FSDirectory{root: root}, nil
}

func (d *FSDirectory) path(name string) string {
	return filepath.Join(d.root, name)
}

func (d *FSDirectory) ListAll() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(segdirent.ErrNoSuchDirectory, "%s", d.root)
		}
		return nil, errors.Wrapf(segdirent.ErrIOFailure, "list %s: %v", d.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (d *FSDirectory) OpenInput(name string) (Input, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(segdirent.ErrIndexNotFound, "%s", name)
		}
		return nil, errors.Wrapf(segdirent.ErrIOFailure, "open %s: %v", name, err)
	}
	return f, nil
}

func (d *FSDirectory) CreateOutput(name string) (Output, error) {
	f, err := os.Create(d.path(name))
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrIOFailure, "create %s: %v", name, err)
	}
	return f, nil
}

func (d *FSDirectory) DeleteFile(name string) error {
	err := os.Remove(d.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(segdirent.ErrIOFailure, "delete %s: %v", name, err)
	}
	return nil
}

func (d *FSDirectory) FileExists(name string) (bool, error) {
	_, err := os.Stat(d.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Wrapf(segdirent.ErrIOFailure, "stat %s: %v", name, err)
}

// Sync fsyncs each named file, then fsyncs the containing directory so the
// new directory entries themselves survive a crash — required on POSIX
// filesystems where a file fsync alone does not guarantee the directory
// entry is durable.
func (d *FSDirectory) Sync(names []string) error {
	for _, name := range names {
		f, err := os.OpenFile(d.path(name), os.O_RDONLY, 0)
		if err != nil {
			return errors.Wrapf(segdirent.ErrIOFailure, "open %s for sync: %v", name, err)
		}
		err = f.Sync()
		closeErr := f.Close()
		if err != nil {
			return errors.Wrapf(segdirent.ErrIOFailure, "fsync %s: %v", name, err)
		}
		if closeErr != nil {
			return errors.Wrapf(segdirent.ErrIOFailure, "close %s: %v", name, closeErr)
		}
	}

	dirFile, err := os.Open(d.root)
	if err != nil {
		return errors.Wrapf(segdirent.ErrIOFailure, "open dir %s for sync: %v", d.root, err)
	}
	defer dirFile.Close()
	if err := dirFile.Sync(); err != nil {
		// Not all platforms support fsync on a directory handle (notably
		// some Windows filesystems); tolerate that specific failure mode
		// since the per-file fsyncs above already give durability on the
		// filesystems that matter for this module (spec is POSIX/NFS
		// focused, §1).
		if !errors.Is(err, os.ErrInvalid) {
			return errors.Wrapf(segdirent.ErrIOFailure, "fsync dir %s: %v", d.root, err)
		}
	}
	return nil
}
