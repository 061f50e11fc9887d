// Package store persists annotation records as JSON sidecar files and
// patches caption fields in place for the viewer. The filesystem is the only
// store: no indexing, no transactions. Concurrent writers to the same file
// are last-writer-wins, acceptable for a single-operator local tool.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MSHADroo/drag/pkg/annotation"
)

// ErrAccessDenied is returned when a caption update targets a file outside
// the configured data root.
var ErrAccessDenied = errors.New("path outside data root")

// jsonIndent matches the sidecar format the annotator has always written:
// four spaces, human-diffable.
const jsonIndent = "    "

// Save writes the record to path as UTF-8 JSON with a 4-space indent,
// keeping non-ASCII and HTML characters literal. An existing file for the
// same pair is overwritten silently. I/O failures are returned to the
// caller; the in-memory record is untouched, so the operator can retry.
func Save(path string, rec annotation.Record) error {
	data, err := marshalIndent(rec)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write annotation file: %w", err)
	}
	return nil
}

// Load reads an annotation record back from a sidecar file.
func Load(path string) (annotation.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return annotation.Record{}, fmt.Errorf("failed to read annotation file: %w", err)
	}
	var rec annotation.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return annotation.Record{}, fmt.Errorf("failed to parse annotation file: %w", err)
	}
	return rec, nil
}

// UpdateCaption patches the caption field of the sidecar at path, which must
// resolve inside root. The file is read, modified, and rewritten truncated
// to the new length; fields this tool does not know about survive the
// rewrite.
func UpdateCaption(root, path, caption string) error {
	if err := ensureInside(root, path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read annotation file: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to parse annotation file: %w", err)
	}
	fields["caption"] = caption

	out, err := marshalIndent(fields)
	if err != nil {
		return fmt.Errorf("failed to encode annotation: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write annotation file: %w", err)
	}
	return nil
}

// ensureInside rejects any path that resolves outside root.
func ensureInside(root, path string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve data root: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrAccessDenied, path)
	}
	return nil
}

// marshalIndent encodes v with the sidecar formatting. encoding/json escapes
// HTML metacharacters by default, which would mangle captions; the encoder
// is configured to keep them literal.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
