package domain

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/empty_folder", 0755))
	require.NoError(t, fs.MkdirAll("/data/test_for_archive", 0755))
	require.NoError(t, afero.WriteFile(fs, "/data/test_for_archive/TestFile.txt", []byte("content"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/data/TestFile.txt", []byte("content"), 0644))
	return fs
}

func TestCanDownload_TargetMissing(t *testing.T) {
	fs := newTestFs(t)

	assert.True(t, CanDownload(fs, "/data/FakeTestFile.zip", false))
	assert.True(t, CanDownload(fs, "/data/FakeTestFile.zip", true))
}

func TestCanDownload_TargetIsFile(t *testing.T) {
	fs := newTestFs(t)

	assert.False(t, CanDownload(fs, "/data/TestFile.txt", false))
	assert.True(t, CanDownload(fs, "/data/TestFile.txt", true))
}

func TestCanDownload_TargetIsDirectory(t *testing.T) {
	fs := newTestFs(t)

	assert.True(t, CanDownload(fs, "/data/empty_folder", false))
}

func TestCanExtract(t *testing.T) {
	fs := newTestFs(t)

	tests := []struct {
		name     string
		target   ExtractionTarget
		replace  bool
		expected bool
	}{
		{"no extraction", NoExtraction(), false, false},
		{"no extraction with replace", NoExtraction(), true, false},
		{"missing dir", ExtractTo("/data/FakeTestFile"), false, true},
		{"missing dir with replace", ExtractTo("/data/FakeTestFile"), true, true},
		{"empty dir", ExtractTo("/data/empty_folder"), false, true},
		{"empty dir with replace", ExtractTo("/data/empty_folder"), true, true},
		{"non-empty dir", ExtractTo("/data/test_for_archive"), false, false},
		{"non-empty dir with replace", ExtractTo("/data/test_for_archive"), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanExtract(fs, tt.target, tt.replace))
		})
	}
}

func TestShouldDownload(t *testing.T) {
	fs := newTestFs(t)

	tests := []struct {
		name       string
		target     string
		replace    bool
		canExtract bool
		extraction ExtractionTarget
		expected   bool
	}{
		{"non-archive file", "/data/empty_folder", true, false, NoExtraction(), true},
		{"archive, replace download", "/data/empty_folder", true, true, ExtractTo("/data/empty_folder"), true},
		{"archive, keep existing download", "/data/TestFile.txt", false, true, ExtractTo("/data/empty_folder"), false},
		{"archive, replace existing download", "/data/TestFile.txt", true, true, ExtractTo("/data/test_for_archive"), true},
		{"archive, cannot extract", "/data/TestFile.txt", true, false, ExtractTo("/data/test_for_archive"), false},
		{"archive, cannot extract, no file yet", "/data/missing.zip", true, false, ExtractTo("/data/test_for_archive"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := ShouldDownload(fs, tt.target, tt.replace, tt.canExtract, tt.extraction)
			assert.Equal(t, tt.expected, actual)
		})
	}
}

func TestPlanFetch_DatasetArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	req := FetchRequest{
		URL:        "https://isic-challenge-data.s3.amazonaws.com/2018/ISIC2018_Task3_Training_Input.zip",
		RootDir:    "/data",
		WorkingDir: "isic2018",
		Convention: ConventionDataset,
	}

	plan, err := PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)

	assert.Equal(t, "ISIC2018_Task3_Training_Input.zip", plan.Filename)
	assert.Equal(t, filepath.Join("/data", "downloads", "ISIC2018_Task3_Training_Input.zip"), plan.DownloadPath)
	assert.Equal(t, filepath.Join("/data", "isic2018"), plan.WorkingDir)
	assert.Equal(t, filepath.Join("/data", "temp"), plan.TempDir)
	assert.Equal(t, filepath.Join("/data", "isic2018", "training_input"), plan.Extraction.String())
	assert.Equal(t, KindZip, plan.Kind)
	assert.Empty(t, plan.PlacedPath)
	assert.True(t, plan.CanExtract)
	assert.True(t, plan.ShouldDownload)
}

func TestPlanFetch_PopulatedRoleDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/isic2018/training_input/ISIC_0024306.jpg", []byte("jpg"), 0644))

	req := FetchRequest{
		URL:        "https://example.com/ISIC2018_Task3_Training_Input.zip",
		RootDir:    "/data",
		WorkingDir: "isic2018",
		Convention: ConventionDataset,
	}

	plan, err := PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.False(t, plan.CanExtract)
	assert.False(t, plan.ShouldDownload)

	req.ReplaceDownload = true
	plan, err = PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.False(t, plan.ShouldDownload, "a download that cannot be extracted is refused")

	req.ReplaceExtracted = true
	plan, err = PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.True(t, plan.CanExtract)
	assert.True(t, plan.ShouldDownload)
}

func TestPlanFetch_PlainFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	req := FetchRequest{
		URL:        "https://example.com/ISIC2018_Task3_Training_LesionGroupings.csv",
		RootDir:    "/data",
		WorkingDir: "isic2018",
		Convention: ConventionDataset,
	}

	plan, err := PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.True(t, plan.Extraction.IsNone())
	assert.Equal(t, KindNone, plan.Kind)
	assert.False(t, plan.CanExtract)
	assert.True(t, plan.ShouldDownload)
	assert.Equal(t, filepath.Join("/data", "isic2018", "ISIC2018_Task3_Training_LesionGroupings.csv"), plan.PlacedPath)

	// Already placed in the working directory
	require.NoError(t, afero.WriteFile(fs, plan.PlacedPath, []byte("a,b"), 0644))
	plan, err = PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.False(t, plan.ShouldDownload)

	req.ReplaceDownload = true
	plan, err = PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.True(t, plan.ShouldDownload)
}

func TestPlanFetch_ArchiveWithoutRoleIsNotPlaced(t *testing.T) {
	fs := afero.NewMemMapFs()
	req := FetchRequest{
		URL:        "https://example.com/ISIC2018_Task3_Training_LesionGroupings.zip",
		RootDir:    "/data",
		WorkingDir: "isic2018",
		Convention: ConventionDataset,
	}

	// a same-named file in the working dir does not count as the download
	require.NoError(t, afero.WriteFile(fs, "/data/isic2018/ISIC2018_Task3_Training_LesionGroupings.zip", []byte("zip"), 0644))

	plan, err := PlanFetch(fs, req, DefaultLayout())
	require.NoError(t, err)
	assert.True(t, plan.Extraction.IsNone())
	assert.Equal(t, KindZip, plan.Kind)
	assert.Empty(t, plan.PlacedPath)
	assert.False(t, plan.CanExtract)
	assert.True(t, plan.ShouldDownload)
}

func TestPlanFetch_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := PlanFetch(fs, FetchRequest{
		URL:        "https://example.com/labels.csv",
		RootDir:    "/data",
		Convention: ConventionGeneric,
	}, DefaultLayout())
	assert.ErrorIs(t, err, ErrUnsupportedArchiveType)

	_, err = PlanFetch(fs, FetchRequest{
		URL:        "https://example.com/labels.zip",
		Convention: ConventionGeneric,
	}, DefaultLayout())
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPlanFetch_NoWorkingDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	plan, err := PlanFetch(fs, FetchRequest{
		URL:        "http://bergerlab-downloads.csail.mit.edu/spatial-vae/mnist_rotated.tar.gz",
		RootDir:    "/data",
		Convention: ConventionGeneric,
	}, DefaultLayout())
	require.NoError(t, err)

	assert.Equal(t, "/data", plan.WorkingDir)
	assert.Equal(t, filepath.Join("/data", "mnist_rotated"), plan.Extraction.String())
	assert.Equal(t, KindTarGz, plan.Kind)
}
