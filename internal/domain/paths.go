package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// RoleTokens are the dataset roles recognised by the dataset convention
var RoleTokens = []string{
	"training_input",
	"training_groundtruth",
	"validation_input",
	"validation_groundtruth",
	"test_input",
}

var roleExtensions = []string{".zip", ".tar"}

// ArchiveKind identifies how a downloaded file is unpacked
type ArchiveKind string

const (
	KindNone  ArchiveKind = ""
	KindZip   ArchiveKind = "zip"
	KindTar   ArchiveKind = "tar"
	KindTarGz ArchiveKind = "tar.gz"
	KindGzip  ArchiveKind = "gz"
)

// DetectArchiveKind classifies a filename by suffix
func DetectArchiveKind(filename string) ArchiveKind {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".tar.gz"):
		return KindTarGz
	case strings.HasSuffix(name, ".gz"):
		return KindGzip
	case strings.HasSuffix(name, ".tar"):
		return KindTar
	case strings.HasSuffix(name, ".zip"):
		return KindZip
	default:
		return KindNone
	}
}

// GenericExtractionPath returns rootDir/<stem>, where stem is the lower-cased
// filename without its .zip, .tar or .tar.gz suffix.
func GenericExtractionPath(rootDir, filename string) (string, error) {
	name := strings.ToLower(filename)

	var stem string
	switch DetectArchiveKind(name) {
	case KindTarGz:
		stem = strings.TrimSuffix(name, ".tar.gz")
	case KindZip:
		stem = strings.TrimSuffix(name, ".zip")
	case KindTar:
		stem = strings.TrimSuffix(name, ".tar")
	default:
		return "", &OpError{
			Op:   "derive extraction path",
			Kind: KindUnsupportedArchive,
			Path: filename,
			Err:  fmt.Errorf("%w: %s is not a handled archive type", ErrUnsupportedArchiveType, filename),
		}
	}

	return filepath.Join(rootDir, stem), nil
}

// DatasetExtractionPath maps a filename ending in <role>.zip or <role>.tar to
// rootDir/<role>. Any other filename yields NoExtraction.
func DatasetExtractionPath(rootDir, filename string) ExtractionTarget {
	name := strings.ToLower(filename)
	for _, role := range RoleTokens {
		for _, ext := range roleExtensions {
			if strings.HasSuffix(name, role+ext) {
				return ExtractTo(filepath.Join(rootDir, role))
			}
		}
	}
	return NoExtraction()
}

// DeriveExtractionTarget applies the requested convention
func DeriveExtractionTarget(workingDir, filename string, convention Convention) (ExtractionTarget, error) {
	if convention == ConventionDataset {
		return DatasetExtractionPath(workingDir, filename), nil
	}
	dir, err := GenericExtractionPath(workingDir, filename)
	if err != nil {
		return NoExtraction(), err
	}
	return ExtractTo(dir), nil
}
