//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/dataset-fetch-go/internal/domain"
)

func TestFetch_DatasetArchiveIsIdempotent(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{
		"/2019/ISIC_2019_Training_Input.zip": zipArchive(t, map[string]string{
			"ISIC_2019_Training_Input/ISIC_0000000.jpg": "a",
			"ISIC_2019_Training_Input/ISIC_0000001.jpg": "b",
		}),
	})

	root := filepath.Join(t.TempDir(), "data")
	req := domain.FetchRequest{
		URL:        srv.URL + "/2019/ISIC_2019_Training_Input.zip",
		RootDir:    root,
		WorkingDir: "isic2019",
		Convention: domain.ConventionDataset,
	}
	fetcher := newFetcher()

	result, err := fetcher.Fetch(context.Background(), req, nil)
	require.NoError(t, err)

	dir, ok := result.Extraction.Dir()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "isic2019", "training_input"), dir)
	assert.FileExists(t, filepath.Join(dir, "ISIC_0000001.jpg"))
	assert.FileExists(t, filepath.Join(root, "downloads", "ISIC_2019_Training_Input.zip"))
	assert.NoFileExists(t, filepath.Join(root, "downloads", "ISIC_2019_Training_Input.zip.part"))

	result, err = fetcher.Fetch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, result.Downloaded)
	assert.False(t, result.Extracted)
	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestFetch_ReplaceExtractedReusesDownload(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{
		"/ISIC2018_Task3_Test_Input.zip": zipArchive(t, map[string]string{"ISIC2018_Task3_Test_Input/x.jpg": "x"}),
	})

	root := t.TempDir()
	req := domain.FetchRequest{
		URL:        srv.URL + "/ISIC2018_Task3_Test_Input.zip",
		RootDir:    root,
		Convention: domain.ConventionDataset,
	}
	fetcher := newFetcher()

	_, err := fetcher.Fetch(context.Background(), req, nil)
	require.NoError(t, err)
	stale := filepath.Join(root, "test_input", "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	req.ReplaceExtracted = true
	result, err := fetcher.Fetch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.True(t, result.Extracted)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(root, "test_input", "x.jpg"))
}

func TestFetch_PlainFile(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{
		"/ISIC2018_Task3_Training_LesionGroupings.csv": []byte("image,lesion\n"),
	})

	root := t.TempDir()
	req := domain.FetchRequest{
		URL:        srv.URL + "/ISIC2018_Task3_Training_LesionGroupings.csv",
		RootDir:    root,
		WorkingDir: "isic2018",
		Convention: domain.ConventionDataset,
	}
	fetcher := newFetcher()

	var calls int
	result, err := fetcher.Fetch(context.Background(), req, func(transferred, total int64) { calls++ })
	require.NoError(t, err)
	assert.True(t, result.Extraction.IsNone())
	assert.True(t, result.Moved)
	assert.Greater(t, calls, 0)

	placed := filepath.Join(root, "isic2018", "ISIC2018_Task3_Training_LesionGroupings.csv")
	content, err := os.ReadFile(placed)
	require.NoError(t, err)
	assert.Equal(t, "image,lesion\n", string(content))

	result, err = fetcher.Fetch(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, result.Downloaded)
	assert.Equal(t, int64(1), srv.hits.Load())
}

func TestFetch_GenericTarGz(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{
		"/Bundle.tar.gz": tarGzArchive(t, map[string]string{"bundle/readme.txt": "hi"}),
	})

	root := t.TempDir()
	result, err := newFetcher().Fetch(context.Background(), domain.FetchRequest{
		URL:        srv.URL + "/Bundle.tar.gz",
		RootDir:    root,
		Convention: domain.ConventionGeneric,
	}, nil)
	require.NoError(t, err)

	dir, _ := result.Extraction.Dir()
	assert.Equal(t, filepath.Join(root, "bundle"), dir)
	assert.FileExists(t, filepath.Join(dir, "readme.txt"))
}

func TestFetch_NotFound(t *testing.T) {
	srv := newFileServer(t, nil)

	root := t.TempDir()
	_, err := newFetcher().Fetch(context.Background(), domain.FetchRequest{
		URL:        srv.URL + "/missing.zip",
		RootDir:    root,
		Convention: domain.ConventionGeneric,
	}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindTransport))
	assert.NoFileExists(t, filepath.Join(root, "downloads", "missing.zip"))
	assert.NoFileExists(t, filepath.Join(root, "downloads", "missing.zip.part"))
}
