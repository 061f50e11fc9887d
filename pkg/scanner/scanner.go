// Package scanner walks annotation data trees: folder candidates for the
// annotator, and caption-status classification for the viewer. It is a pure
// read side; nothing here mutates files.
package scanner

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ImageExtensions is the allow-list of image file extensions, matched
// case-insensitively.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".webp"}

// Folder is a subdirectory holding enough images to annotate a pair.
type Folder struct {
	Path   string
	Name   string
	Images []string
}

// Entry is one classified annotation sidecar with its derived, read-time
// fields. Frame paths are resolved relative to the scanned base directory
// and normalized to forward slashes for URL use.
type Entry struct {
	Frame1Image   string `json:"frame1_image"`
	Frame2Image   string `json:"frame2_image"`
	Caption       string `json:"caption,omitempty"`
	JSONFilePath  string `json:"json_file_path"`
	DirectoryName string `json:"directory_name"`
}

// ImageGroup is a directory that holds images but no annotation sidecar yet.
type ImageGroup struct {
	DirectoryName string
	Images        []string
}

// Scanner reads annotation trees. The zero value is usable; Log defaults to
// slog.Default().
type Scanner struct {
	Log *slog.Logger
}

// New returns a scanner logging through the default slog logger.
func New() *Scanner {
	return &Scanner{Log: slog.Default()}
}

func (s *Scanner) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// IsImageFile reports whether the filename carries an allow-listed image
// extension.
func IsImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ScanRoot lists the immediate subdirectories of root containing more than
// one image. Folder order follows filesystem enumeration; image lists are
// sorted lexicographically for stable indexing.
func (s *Scanner) ScanRoot(root string) ([]Folder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var folders []Folder
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		images, err := ListImages(dir)
		if err != nil {
			s.logger().Debug("skipping unreadable folder", "dir", dir, "error", err)
			continue
		}
		if len(images) > 1 {
			folders = append(folders, Folder{Path: dir, Name: entry.Name(), Images: images})
		}
	}
	return folders, nil
}

// ListImages returns the full paths of all images directly inside dir,
// sorted lexicographically by filename.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var images []string
	for _, entry := range entries {
		if !entry.IsDir() && IsImageFile(entry.Name()) {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// Classify recursively walks base and buckets every parseable annotation
// sidecar by caption status. Malformed or unreadable JSON is skipped with a
// debug log, never surfaced as an error: classification is best-effort
// aggregation.
func (s *Scanner) Classify(base string) (uncaptioned, captioned []Entry, err error) {
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger().Debug("walk error", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		entry, ok := s.readEntry(base, path)
		if !ok {
			return nil
		}
		if entry.Caption != "" {
			captioned = append(captioned, entry)
		} else {
			uncaptioned = append(uncaptioned, entry)
		}
		return nil
	})
	return uncaptioned, captioned, err
}

// readEntry parses one sidecar. Files missing either frame key are not
// annotation records and are ignored.
func (s *Scanner) readEntry(base, path string) (Entry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger().Debug("skipping unreadable sidecar", "path", path, "error", err)
		return Entry{}, false
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		s.logger().Debug("skipping malformed sidecar", "path", path, "error", err)
		return Entry{}, false
	}

	frame1, ok1 := fields["frame1_image"].(string)
	frame2, ok2 := fields["frame2_image"].(string)
	if !ok1 || !ok2 {
		return Entry{}, false
	}

	dir := filepath.Dir(path)
	caption, _ := fields["caption"].(string)
	return Entry{
		Frame1Image:   relForward(base, filepath.Join(dir, frame1)),
		Frame2Image:   relForward(base, filepath.Join(dir, frame2)),
		Caption:       caption,
		JSONFilePath:  path,
		DirectoryName: filepath.Base(dir),
	}, true
}

// Unannotated finds directories under base that contain images but no JSON
// sidecar at all, with image paths relative to base.
func (s *Scanner) Unannotated(base string) ([]ImageGroup, error) {
	var groups []ImageGroup
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger().Debug("walk error", "path", path, "error", walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil
		}
		var images []string
		hasJSON := false
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			switch {
			case strings.EqualFold(filepath.Ext(entry.Name()), ".json"):
				hasJSON = true
			case IsImageFile(entry.Name()):
				images = append(images, relForward(base, filepath.Join(path, entry.Name())))
			}
		}
		if !hasJSON && len(images) > 0 {
			sort.Strings(images)
			groups = append(groups, ImageGroup{DirectoryName: filepath.Base(path), Images: images})
		}
		return nil
	})
	return groups, err
}

// relForward resolves path relative to base with forward slashes, falling
// back to the input when the paths do not share a prefix.
func relForward(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
