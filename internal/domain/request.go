package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
)

// Convention selects how a downloaded filename maps to its extraction directory
type Convention string

const (
	ConventionGeneric Convention = "generic" // strip the archive suffix
	ConventionDataset Convention = "dataset" // map to a dataset role token
)

// ValidateConvention checks if a naming convention is known
func ValidateConvention(c Convention) bool {
	return c == ConventionGeneric || c == ConventionDataset
}

// FetchRequest describes a single download-and-extract invocation.
//
// ReplaceDownload and ReplaceExtracted default to false, meaning existing
// files and populated extraction directories are never overwritten unless
// the caller asks for it.
type FetchRequest struct {
	URL              string     `json:"url"`
	RootDir          string     `json:"root_dir"`
	WorkingDir       string     `json:"working_dir,omitempty"`
	ReplaceDownload  bool       `json:"replace_download"`
	ReplaceExtracted bool       `json:"replace_extracted"`
	Convention       Convention `json:"convention"`
}

// Validate checks the request fields that every later step relies on
func (r FetchRequest) Validate() error {
	if r.RootDir == "" {
		return invalidRequest("root directory not set")
	}
	if !ValidateConvention(r.Convention) {
		return invalidRequest(fmt.Sprintf("unknown convention %q", r.Convention))
	}
	if _, err := FilenameFromURL(r.URL); err != nil {
		return err
	}
	return nil
}

func invalidRequest(msg string) error {
	return &OpError{Op: "validate request", Kind: KindInvalidRequest, Err: fmt.Errorf("%w: %s", ErrInvalidRequest, msg)}
}

// FilenameFromURL returns the last path segment of an http(s) URL as it
// appears in the URL. Percent escapes are kept.
func FilenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", invalidRequest(fmt.Sprintf("parse url: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalidRequest(fmt.Sprintf("unsupported url scheme %q", u.Scheme))
	}

	name := path.Base(u.EscapedPath())
	if name == "" || name == "." || name == "/" {
		return "", invalidRequest(fmt.Sprintf("no filename in url %s", rawURL))
	}
	return name, nil
}

// ExtractionTarget is either "no extraction" or a directory to extract into
type ExtractionTarget struct {
	dir string
	set bool
}

// NoExtraction returns the target for files that carry nothing to extract
func NoExtraction() ExtractionTarget {
	return ExtractionTarget{}
}

// ExtractTo returns a target extracting into dir
func ExtractTo(dir string) ExtractionTarget {
	return ExtractionTarget{dir: dir, set: true}
}

// Dir returns the extraction directory and whether one applies
func (t ExtractionTarget) Dir() (string, bool) {
	return t.dir, t.set
}

// IsNone reports whether no extraction applies
func (t ExtractionTarget) IsNone() bool {
	return !t.set
}

func (t ExtractionTarget) String() string {
	if !t.set {
		return "<none>"
	}
	return t.dir
}

// MarshalJSON encodes NoExtraction as null and a target as its path
func (t ExtractionTarget) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.dir)
}

// UnmarshalJSON decodes null as NoExtraction and a string as its path
func (t *ExtractionTarget) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = NoExtraction()
		return nil
	}
	var dir string
	if err := json.Unmarshal(data, &dir); err != nil {
		return err
	}
	*t = ExtractTo(dir)
	return nil
}
