package infrastructure

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

// magic bytes needed by filetype to recognise tar headers
const sniffLen = 262

// ArchiveExtractor implements domain.Extractor for zip, tar and tar.gz files
type ArchiveExtractor struct {
	fs afero.Fs
}

// NewArchiveExtractor creates a new archive extractor
func NewArchiveExtractor(fs afero.Fs) *ArchiveExtractor {
	return &ArchiveExtractor{fs: fs}
}

// Extract unpacks archivePath into destDir and returns the first path
// segment of the first entry, which callers treat as the archive's single
// top-level folder.
func (e *ArchiveExtractor) Extract(ctx context.Context, archivePath, destDir string, kind domain.ArchiveKind) (string, error) {
	switch kind {
	case domain.KindZip, domain.KindTar, domain.KindTarGz:
	case domain.KindGzip:
		return "", &domain.OpError{
			Op:   "extract",
			Kind: domain.KindUnhandledCompression,
			Path: archivePath,
			Err:  fmt.Errorf("%w: plain .gz files are not extracted", domain.ErrUnhandledCompression),
		}
	default:
		return "", &domain.OpError{
			Op:   "extract",
			Kind: domain.KindUnsupportedArchive,
			Path: archivePath,
			Err:  domain.ErrUnsupportedArchiveType,
		}
	}

	f, err := e.fs.Open(archivePath)
	if err != nil {
		return "", domain.FSError("open archive", archivePath, err)
	}
	defer f.Close()

	if err := verifyMagic(f, archivePath, kind); err != nil {
		return "", err
	}

	if err := e.fs.MkdirAll(destDir, 0755); err != nil {
		return "", domain.FSError("mkdir", destDir, err)
	}

	var top string
	switch kind {
	case domain.KindZip:
		info, err := f.Stat()
		if err != nil {
			return "", domain.FSError("stat archive", archivePath, err)
		}
		top, err = e.extractZip(ctx, f, info.Size(), destDir)
		if err != nil {
			return "", err
		}
	case domain.KindTar:
		top, err = e.extractTar(ctx, f, destDir)
		if err != nil {
			return "", err
		}
	case domain.KindTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return "", archiveError(archivePath, err)
		}
		defer gz.Close()
		top, err = e.extractTar(ctx, gz, destDir)
		if err != nil {
			return "", err
		}
	}

	if top == "" {
		return "", archiveError(archivePath, errors.New("archive has no entries"))
	}
	return top, nil
}

func (e *ArchiveExtractor) extractZip(ctx context.Context, r io.ReaderAt, size int64, destDir string) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", archiveError(destDir, err)
	}

	top := ""
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if top == "" {
			top = topLevel(zf.Name)
		}

		target, err := safeJoin(destDir, zf.Name)
		if err != nil {
			return "", err
		}
		if target == "" {
			continue
		}

		if zf.FileInfo().IsDir() {
			if err := e.fs.MkdirAll(target, 0755); err != nil {
				return "", domain.FSError("mkdir", target, err)
			}
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return "", archiveError(zf.Name, err)
		}
		err = e.writeFile(target, rc, zf.Mode())
		rc.Close()
		if err != nil {
			return "", err
		}
	}
	return top, nil
}

func (e *ArchiveExtractor) extractTar(ctx context.Context, r io.Reader, destDir string) (string, error) {
	tr := tar.NewReader(r)

	top := ""
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", archiveError(destDir, err)
		}
		if top == "" {
			top = topLevel(hdr.Name)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return "", err
		}
		if target == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := e.fs.MkdirAll(target, 0755); err != nil {
				return "", domain.FSError("mkdir", target, err)
			}
		case tar.TypeReg:
			if err := e.writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return "", err
			}
		default:
			// links, devices and fifos are not materialised
		}
	}
	return top, nil
}

func (e *ArchiveExtractor) writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := e.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return domain.FSError("mkdir", filepath.Dir(target), err)
	}

	perm := mode.Perm()
	if perm == 0 {
		perm = 0644
	}
	out, err := e.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return domain.FSError("create", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return domain.FSError("write", target, err)
	}
	if err := out.Close(); err != nil {
		return domain.FSError("close", target, err)
	}
	return nil
}

// verifyMagic checks that the archive content matches the kind its suffix claims
func verifyMagic(r io.ReaderAt, archivePath string, kind domain.ArchiveKind) error {
	head := make([]byte, sniffLen)
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return domain.FSError("read archive", archivePath, err)
	}
	head = head[:n]

	ext := "zip"
	switch kind {
	case domain.KindTar:
		ext = "tar"
	case domain.KindTarGz:
		ext = "gz"
	}
	if filetype.Is(head, ext) {
		return nil
	}

	detected := "unknown"
	if t, _ := filetype.Match(head); t != filetype.Unknown {
		detected = t.Extension
	}
	return &domain.OpError{
		Op:   "verify archive",
		Kind: domain.KindArchive,
		Path: archivePath,
		Err:  fmt.Errorf("%w: expected %s, found %s", domain.ErrArchiveMismatch, ext, detected),
	}
}

// safeJoin resolves an archive entry name under destDir. It returns "" for
// entries naming destDir itself and an error for entries escaping it.
func safeJoin(destDir, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if clean == "." || clean == "/" {
		return "", nil
	}
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", archiveError(name, errors.New("entry escapes extraction directory"))
	}
	return filepath.Join(destDir, filepath.FromSlash(clean)), nil
}

// topLevel returns the first path segment of an archive entry name
func topLevel(name string) string {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "." || clean == "" {
		return ""
	}
	return strings.SplitN(clean, "/", 2)[0]
}

func archiveError(p string, err error) error {
	return &domain.OpError{Op: "extract", Kind: domain.KindArchive, Path: p, Err: err}
}
