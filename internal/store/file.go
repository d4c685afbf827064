package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	appLog "studycal/internal/log"
	"studycal/internal/model"
)

// FileStore reads records from a YAML document shaped like model.Sources.
// A missing file yields no records.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context) (model.Sources, error) {
	var src model.Sources
	if err := ctx.Err(); err != nil {
		return src, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("store: records file not found; starting empty", "path", s.Path)
			return src, nil
		}
		return src, fmt.Errorf("store: read %s: %w", s.Path, err)
	}

	if err := yaml.Unmarshal(data, &src); err != nil {
		return model.Sources{}, fmt.Errorf("store: decode %s: %w", s.Path, err)
	}

	appLog.Debug("store: records loaded",
		"path", s.Path,
		"courses", len(src.Courses),
		"schedule_blocks", len(src.ScheduleBlocks),
		"exams", len(src.Exams),
		"assignments", len(src.Assignments),
		"study_sessions", len(src.StudySessions),
	)
	return src, nil
}
