package fetch

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamatcyber90/crypti/src/core/models"
)

type fakeDownloader struct {
	archiveURL string
	destDir    string
	files      []File
	err        error
}

func (d *fakeDownloader) Fetch(archiveURL, destDir string) ([]File, error) {
	d.archiveURL = archiveURL
	d.destDir = destDir
	return d.files, d.err
}

func TestFetchSourceDerivesArchiveURLFromFragment(t *testing.T) {
	downloader := &fakeDownloader{files: []File{
		{RelativePath: "chess-v2/package.json", Size: 42},
		{RelativePath: "chess-v2/index.js", Size: 128},
	}}
	pipeline := NewPipeline(downloader, "/data/dapps", "master")

	files, err := pipeline.FetchSource(&models.Dapp{ID: 7, URL: "https://github.com/acme/chess#v2"})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	assert.Equal(t, "https://github.com/acme/chess/archive/v2.zip", downloader.archiveURL)
	assert.Equal(t, filepath.Join("/data/dapps", "7"), downloader.destDir)
}

func TestFetchSourceDefaultsBranch(t *testing.T) {
	downloader := &fakeDownloader{files: []File{
		{RelativePath: "chess-master/package.json"},
	}}
	pipeline := NewPipeline(downloader, "/data/dapps", "")

	_, err := pipeline.FetchSource(&models.Dapp{ID: 1, URL: "https://github.com/acme/chess"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/chess/archive/master.zip", downloader.archiveURL)
}

func TestFetchSourceConfiguredDefaultBranch(t *testing.T) {
	downloader := &fakeDownloader{files: []File{
		{RelativePath: "chess-main/package.json"},
	}}
	pipeline := NewPipeline(downloader, "/data/dapps", "main")

	_, err := pipeline.FetchSource(&models.Dapp{ID: 1, URL: "https://github.com/acme/chess"})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/chess/archive/main.zip", downloader.archiveURL)
}

func TestFetchSourceMissingPackageDescriptor(t *testing.T) {
	downloader := &fakeDownloader{files: []File{
		{RelativePath: "chess-v2/index.js"},
		{RelativePath: "other-v2/package.json"},
	}}
	pipeline := NewPipeline(downloader, "/data/dapps", "master")

	_, err := pipeline.FetchSource(&models.Dapp{ID: 7, URL: "https://github.com/acme/chess#v2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPackageDescriptor)

	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "validate", fetchErr.Stage)
}

func TestFetchSourceDownloadFailure(t *testing.T) {
	downloader := &fakeDownloader{err: errors.New("boom")}
	pipeline := NewPipeline(downloader, "/data/dapps", "master")

	_, err := pipeline.FetchSource(&models.Dapp{ID: 7, URL: "https://github.com/acme/chess"})
	require.Error(t, err)

	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "download", fetchErr.Stage)
}

func TestFetchSourceBadURL(t *testing.T) {
	pipeline := NewPipeline(&fakeDownloader{}, "/data/dapps", "master")

	_, err := pipeline.FetchSource(&models.Dapp{ID: 7, URL: "https://github.com/acme/chess\x7f"})
	require.Error(t, err)

	var fetchErr *Error
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "resolve", fetchErr.Stage)
}
