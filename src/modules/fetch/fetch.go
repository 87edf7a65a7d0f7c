package fetch

import (
	"errors"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mamatcyber90/crypti/src/core/models"
)

// ErrMissingPackageDescriptor reports an extracted archive without the
// expected package.json at its root directory.
var ErrMissingPackageDescriptor = errors.New("repository package.json file not found")

// File describes one entry extracted from a source archive.
type File struct {
	RelativePath string `json:"relativePath"`
	Size         int64  `json:"size"`
}

// Downloader fetches an archive and extracts it into a directory in one step.
type Downloader interface {
	Fetch(archiveURL, destDir string) ([]File, error)
}

// Error reports a failed source fetch along with the stage that failed.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return "fetch " + e.Stage + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pipeline turns a dapp's repository url into an extracted source tree under
// the configured dapps directory.
type Pipeline struct {
	downloader    Downloader
	dappsDir      string
	defaultBranch string
}

func NewPipeline(downloader Downloader, dappsDir, defaultBranch string) *Pipeline {
	if defaultBranch == "" {
		defaultBranch = "master"
	}
	return &Pipeline{downloader: downloader, dappsDir: dappsDir, defaultBranch: defaultBranch}
}

// FetchSource downloads the dapp's source archive and extracts it into
// <dappsDir>/<id>. The url fragment selects the branch; the archive url is
// the repository path with /archive/<branch>.zip appended and the fragment
// cleared. The extracted set must contain <repo>-<branch>/package.json; its
// contents are not parsed yet.
func (p *Pipeline) FetchSource(dapp *models.Dapp) ([]File, error) {
	repo, err := url.Parse(dapp.URL)
	if err != nil {
		return nil, &Error{Stage: "resolve", Err: err}
	}

	branch := repo.Fragment
	if branch == "" {
		branch = p.defaultBranch
	}
	repoName := path.Base(strings.Trim(repo.Path, "/"))

	archive := *repo
	archive.Path = repo.Path + "/archive/" + branch + ".zip"
	archive.Fragment = ""

	dest := filepath.Join(p.dappsDir, strconv.FormatInt(dapp.ID, 10))

	files, err := p.downloader.Fetch(archive.String(), dest)
	if err != nil {
		return nil, &Error{Stage: "download", Err: err}
	}

	marker := repoName + "-" + branch + "/package.json"
	for _, file := range files {
		if file.RelativePath == marker {
			return files, nil
		}
	}
	return nil, &Error{Stage: "validate", Err: ErrMissingPackageDescriptor}
}
