// Package archive looks inside uploaded zip builds without extracting them.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Common web build entry point filenames (case-insensitive)
var entryCandidates = []string{
	"index.html",
	"index.htm",
	"main.html",
	"game.html",
	"play.html",
}

var ErrUnsafePath = errors.New("illegal file path in archive")

// Report summarises a zip archive.
type Report struct {
	Entries          int
	UncompressedSize uint64
	// EntryPoint is the shallowest web entry file, slash separated, or "".
	EntryPoint string
}

func (r Report) IsWebBuild() bool {
	return r.EntryPoint != ""
}

// Inspect reads the zip central directory from r. It rejects entries that
// would escape the extraction root (zip slip).
func Inspect(r io.ReaderAt, size int64) (Report, error) {
	zr, err := zip.NewReader(r, size)
	if errors.Is(err, zip.ErrInsecurePath) {
		return Report{}, ErrUnsafePath
	}
	if err != nil {
		return Report{}, fmt.Errorf("not a readable zip archive: %w", err)
	}

	var rep Report
	bestDepth := -1
	for _, f := range zr.File {
		if !safeName(f.Name) {
			return Report{}, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rep.Entries++
		rep.UncompressedSize += f.UncompressedSize64

		name := strings.ToLower(path.Base(f.Name))
		for _, candidate := range entryCandidates {
			if name != candidate {
				continue
			}
			depth := strings.Count(path.Clean(f.Name), "/")
			if bestDepth < 0 || depth < bestDepth {
				bestDepth = depth
				rep.EntryPoint = path.Clean(f.Name)
			}
		}
	}
	return rep, nil
}

func safeName(name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(name, "/") || (len(name) > 1 && name[1] == ':') {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// IsZip reports whether name has a .zip extension.
func IsZip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}
