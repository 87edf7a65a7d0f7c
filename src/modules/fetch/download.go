package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ZipDownloader is the production Downloader: it downloads a zip archive over
// http into a staging file and extracts it into the destination directory.
type ZipDownloader struct {
	client *http.Client
}

func NewZipDownloader() *ZipDownloader {
	return &ZipDownloader{client: &http.Client{Timeout: 2 * time.Minute}}
}

func (d *ZipDownloader) Fetch(archiveURL, destDir string) ([]File, error) {
	resp, err := d.client.Get(archiveURL)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %s", resp.Status)
	}

	staging := filepath.Join(os.TempDir(), "dapp-archive-"+uuid.New().String()+".zip")
	out, err := os.Create(staging)
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	defer os.Remove(staging)

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return nil, fmt.Errorf("write staging file: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("write staging file: %w", err)
	}

	return extractZip(staging, destDir)
}

func extractZip(archivePath, destDir string) ([]File, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	var files []File
	for _, entry := range reader.File {
		rel := filepath.Clean(filepath.FromSlash(entry.Name))
		if rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("archive entry escapes destination: %s", entry.Name)
		}
		target := filepath.Join(destDir, rel)

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}

		size, err := extractFile(entry, target)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", entry.Name, err)
		}
		files = append(files, File{RelativePath: filepath.ToSlash(rel), Size: size})
	}
	return files, nil
}

func extractFile(entry *zip.File, target string) (int64, error) {
	src, err := entry.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return size, err
}
