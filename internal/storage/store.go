package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dreamware/changelogd/internal/version"
)

// ErrNotFound is returned when a module or version doesn't exist in the store
var ErrNotFound = errors.New("not found")

// ErrInvalidName is returned when a module or version can't be used as a
// path segment
var ErrInvalidName = errors.New("invalid name")

// Extension is appended to a version to form its file name
const Extension = ".txt"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var tracer = otel.Tracer("github.com/dreamware/changelogd/internal/storage")

// Store defines the interface for versioned text storage
// All implementations must be safe for concurrent access
type Store interface {
	// Latest returns the greatest persisted version of module
	// Returns ErrNotFound if the module has no versions
	Latest(ctx context.Context, module string) (string, error)

	// Get returns the persisted bytes of one version
	// Returns ErrNotFound if the version doesn't exist
	Get(ctx context.Context, module, version string) ([]byte, error)

	// Put creates or overwrites a version
	// The content is stored ending in exactly one newline
	Put(ctx context.Context, module, version string, content []byte) error

	// Versions lists every persisted version of module in ascending order
	// Returns ErrNotFound if the module has no versions
	Versions(ctx context.Context, module string) ([]string, error)
}

// OperationStats tracks operation counts
type OperationStats struct {
	Gets    uint64 `json:"gets"`    // Number of get operations
	Puts    uint64 `json:"puts"`    // Number of put operations
	Lookups uint64 `json:"lookups"` // Number of latest/versions listings
}

// FileStore implements Store on a filesystem laid out as
// {root}/{module}/{version}.txt
// It holds no locks: every write lands through a rename, so readers see
// either the old file or the new one.
type FileStore struct {
	fs afero.Fs

	gets    atomic.Uint64
	puts    atomic.Uint64
	lookups atomic.Uint64
}

// NewFileStore creates a store rooted at the given directory of the OS
// filesystem. The directory must already exist.
func NewFileStore(root string) *FileStore {
	return NewFileStoreFs(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// NewFileStoreFs creates a store on top of any afero filesystem, whose
// root is treated as the storage root.
func NewFileStoreFs(fsys afero.Fs) *FileStore {
	return &FileStore{fs: fsys}
}

// Latest resolves the greatest version of module by the version order.
// The result does not depend on directory enumeration order.
func (s *FileStore) Latest(ctx context.Context, module string) (string, error) {
	_, span := tracer.Start(ctx, "storage.Latest", trace.WithAttributes(attribute.String("module", module)))
	defer span.End()

	s.lookups.Add(1)

	names, err := s.list(module)
	if err != nil {
		return "", spanError(span, err)
	}
	latest, ok := version.Max(names)
	if !ok {
		return "", spanError(span, fmt.Errorf("module %q has no versions: %w", module, ErrNotFound))
	}
	span.SetAttributes(attribute.String("version", latest))
	return latest, nil
}

// Versions lists module's versions, lowest first
func (s *FileStore) Versions(ctx context.Context, module string) ([]string, error) {
	_, span := tracer.Start(ctx, "storage.Versions", trace.WithAttributes(attribute.String("module", module)))
	defer span.End()

	s.lookups.Add(1)

	names, err := s.list(module)
	if err != nil {
		return nil, spanError(span, err)
	}
	if len(names) == 0 {
		return nil, spanError(span, fmt.Errorf("module %q has no versions: %w", module, ErrNotFound))
	}
	version.Sort(names)
	return names, nil
}

// Get returns the exact persisted bytes of module/ver
func (s *FileStore) Get(ctx context.Context, module, ver string) ([]byte, error) {
	_, span := tracer.Start(ctx, "storage.Get", trace.WithAttributes(
		attribute.String("module", module),
		attribute.String("version", ver),
	))
	defer span.End()

	s.gets.Add(1)

	if err := validate(module, ver); err != nil {
		return nil, spanError(span, err)
	}

	path := versionPath(module, ver)
	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, spanError(span, fmt.Errorf("%s/%s: %w", module, ver, ErrNotFound))
		}
		return nil, spanError(span, fmt.Errorf("stat %s/%s: %w", module, ver, err))
	}
	if info.IsDir() {
		return nil, spanError(span, fmt.Errorf("%s/%s: %w", module, ver, ErrNotFound))
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, spanError(span, fmt.Errorf("%s/%s: %w", module, ver, ErrNotFound))
		}
		return nil, spanError(span, fmt.Errorf("read %s/%s: %w", module, ver, err))
	}
	return data, nil
}

// Put writes content as module/ver, creating the module on first write.
// The bytes go to a temporary file in the module directory which is
// synced and then renamed over the target.
func (s *FileStore) Put(ctx context.Context, module, ver string, content []byte) error {
	_, span := tracer.Start(ctx, "storage.Put", trace.WithAttributes(
		attribute.String("module", module),
		attribute.String("version", ver),
		attribute.Int("bytes", len(content)),
	))
	defer span.End()

	s.puts.Add(1)

	if err := validate(module, ver); err != nil {
		return spanError(span, err)
	}
	if err := s.fs.MkdirAll(module, dirPerm); err != nil {
		return spanError(span, fmt.Errorf("create module %q: %w", module, err))
	}
	if err := s.writeAtomic(module, versionPath(module, ver), Normalize(content)); err != nil {
		return spanError(span, fmt.Errorf("write %s/%s: %w", module, ver, err))
	}
	return nil
}

func (s *FileStore) writeAtomic(dir, path string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = s.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := s.fs.Chmod(tmpName, filePerm); err != nil {
		return err
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}

// list returns the unordered version names persisted for module. A module
// directory that doesn't exist is reported as ErrNotFound.
func (s *FileStore) list(module string) ([]string, error) {
	if err := validateName("module", module); err != nil {
		return nil, err
	}

	entries, err := afero.ReadDir(s.fs, module)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("module %q: %w", module, ErrNotFound)
		}
		return nil, fmt.Errorf("list module %q: %w", module, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), Extension)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Stats returns operation counts since the store was created
func (s *FileStore) Stats() OperationStats {
	return OperationStats{
		Gets:    s.gets.Load(),
		Puts:    s.puts.Load(),
		Lookups: s.lookups.Load(),
	}
}

// Normalize returns content ending in exactly one newline: any run of
// trailing '\n' bytes is collapsed, and one is added if there was none.
func Normalize(content []byte) []byte {
	trimmed := bytes.TrimRight(content, "\n")
	out := make([]byte, len(trimmed)+1)
	copy(out, trimmed)
	out[len(trimmed)] = '\n'
	return out
}

// ValidateName reports whether name can be used as a module or version
// identifier. kind is only used in the error message.
func ValidateName(kind, name string) error {
	return validateName(kind, name)
}

func validateName(kind, name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%s is blank: %w", kind, ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%s %q: %w", kind, name, ErrInvalidName)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%s %q contains a path separator: %w", kind, name, ErrInvalidName)
	}
	return nil
}

func validate(module, ver string) error {
	if err := validateName("module", module); err != nil {
		return err
	}
	return validateName("version", ver)
}

func versionPath(module, ver string) string {
	return filepath.Join(module, ver+Extension)
}

func spanError(span trace.Span, err error) error {
	if !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
