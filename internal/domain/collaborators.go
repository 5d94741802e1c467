package domain

import "context"

// ProgressFunc receives bytes transferred so far and the total size (-1 if unknown)
type ProgressFunc func(transferred, total int64)

// Transport fetches a URL into a local file
type Transport interface {
	// Fetch streams url into dest, creating parent directories as needed
	Fetch(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error)
}

// Extractor unpacks archives
type Extractor interface {
	// Extract unpacks archivePath into destDir and returns the first path
	// segment of the first archive entry
	Extract(ctx context.Context, archivePath, destDir string, kind ArchiveKind) (string, error)
}

// Locker guards a root directory against concurrent runs
type Locker interface {
	// Lock acquires the guard for rootDir; the returned func releases it
	Lock(rootDir string) (func() error, error)
}
