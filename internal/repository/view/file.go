package view

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/flow-monitor/internal/config"
	"github.com/oshokin/flow-monitor/internal/domain/flow"
	pb "github.com/oshokin/flow-monitor/internal/pb/v1"
)

// ErrNotFound is returned when no view has been written yet.
var ErrNotFound = errors.New("view not found")

// FileRepository persists the view to a JSON file on disk.
type FileRepository struct {
	// path is the filesystem location of the view file.
	path string
	// mu serializes writers; readers see either the old or the new file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the last saved view.
func (r *FileRepository) Load(_ context.Context) (*flow.View, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read view file: %w", err)
	}

	var doc structpb.Struct
	if err = protojson.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode view file: %w", err)
	}

	return pb.ViewFromStruct(&doc)
}

// Save replaces the file with view. The write goes through a temporary file
// in the same directory so readers never see a partial document.
func (r *FileRepository) Save(_ context.Context, view *flow.View) error {
	doc, err := pb.ViewToStruct(view)
	if err != nil {
		return err
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
		Indent:    "  ",
	}

	data, err := marshalOptions.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write view file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace view file: %w", err)
	}

	return nil
}
