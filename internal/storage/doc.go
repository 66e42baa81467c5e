// Package storage implements the version store: a namespace of modules,
// each holding an append-only set of text versions persisted as plain files.
//
// # Overview
//
// The store is the only component that touches the disk. It answers three
// questions: what is the latest version of a module, what are the bytes of
// a given version, and how to publish a version so that no reader ever
// observes a half-written file.
//
// # Layout
//
//	{root}/
//	├── alpha/
//	│   ├── 1.0.0.txt
//	│   └── 2.0.0.txt
//	└── beta/
//	    └── 0.1-SNAPSHOT.txt
//
// A module is one directory, a version is one file named {version}.txt.
// A module exists iff it holds at least one version file. Files without the
// .txt extension (including in-flight temporaries) are not versions.
//
// # Core Interface
//
// Store:
//   - Latest(ctx, module) - Greatest version by the version order
//   - Get(ctx, module, version) - Exact persisted bytes
//   - Put(ctx, module, version, content) - Create or overwrite a version
//   - Versions(ctx, module) - All versions, ascending
//
// FileStore is the implementation. It is built on an afero.Fs so that the
// same code runs against the OS filesystem (scoped to the root with
// afero.NewBasePathFs) and against afero.NewMemMapFs in tests.
//
// # Content Normalization
//
// Stored content always ends in exactly one newline. Put collapses any
// run of trailing newlines and appends one when the content has none, so
// publishing "hello", "hello\n" or "hello\n\n" all persist "hello\n".
//
// # Concurrency and Atomicity
//
// FileStore holds no locks. Operations on different (module, version)
// pairs touch different files and never interfere.
//
// Put writes to a temporary file in the module directory, syncs it, and
// renames it over the target. The rename is the commit point:
//   - Readers see the complete old content or the complete new content
//   - A failed Put leaves the old content in place and removes its temporary
//   - Concurrent Puts to the same version resolve last-write-wins
//
// Latest enumerates the module directory, so a Latest running alongside a
// Put of a new higher version may or may not see it.
//
// # Error Handling
//
// ErrNotFound: Module or version doesn't exist
//   - Returned by Latest, Versions and Get
//   - Also returned for a module directory with no version files
//
// ErrInvalidName: Module or version can't be a path segment
//   - Blank names, "." and ".."
//   - Names containing '/', '\' or NUL
//
// Any other error is an I/O fault, wrapped with the operation and key.
//
// # Usage Examples
//
//	store := storage.NewFileStore("/var/lib/changelogd")
//
//	if err := store.Put(ctx, "alpha", "1.0.0", []byte("hello")); err != nil {
//	    return err
//	}
//
//	latest, err := store.Latest(ctx, "alpha")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // module has no versions yet
//	}
//
//	data, err := store.Get(ctx, "alpha", latest) // "hello\n"
//
// # Observability
//
// Every operation runs inside an OpenTelemetry span named storage.<Op>
// carrying module and version attributes. Stats reports operation counts
// since the store was created.
package storage
