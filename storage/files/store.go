// Package filestore persists uploaded exercise files on disk. File content
// lives outside the database; only the returned location is stored there.
package filestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type store struct {
	root string
}

var _ course.FileStore = (*store)(nil)

func New(root string) (course.FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating file store root")
	}
	return &store{root: root}, nil
}

// Save writes content under <root>/course_<id>/exercise_<id>/<owner>/.
// On-disk names are random; the original filename only lives in the database
// so user input never reaches the filesystem.
func (s *store) Save(courseID, exerciseID int, owner, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(
		s.root,
		fmt.Sprintf("course_%d", courseID),
		fmt.Sprintf("exercise_%d", exerciseID),
		owner,
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating exercise directory")
	}

	name := uuid.New().String() + filepath.Ext(filename)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	defer func() { _ = f.Close() }()

	if _, err = io.Copy(f, r); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "writing file content")
	}
	return path, nil
}
