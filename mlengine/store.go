package mlengine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bizlens/analytics_backend/utils"
)

const modelSchemaVersion = 1

// ModelStore persists trained model blobs per business.
type ModelStore interface {
	Save(blob *ModelBlob) error
	// Load returns utils.ErrorModelUnavailable when no usable model exists.
	Load(businessId string) (*ModelBlob, error)
}

// FileModelStore keeps one JSON blob per business under a directory. Saves
// are atomic (temp file + rename) so a concurrent Load never sees a partial
// write.
type FileModelStore struct {
	Dir string
}

func NewFileModelStore(dir string) *FileModelStore {
	if dir == "" {
		dir = "./models-data"
	}
	return &FileModelStore{Dir: dir}
}

func (s *FileModelStore) path(businessId string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("post_impact_model_%s.json", businessId))
}

func (s *FileModelStore) Save(blob *ModelBlob) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, "model-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path(blob.BusinessId))
}

// Load treats every read failure as "no usable model" so callers fall back
// to the heuristic path instead of erroring out.
func (s *FileModelStore) Load(businessId string) (*ModelBlob, error) {
	data, err := os.ReadFile(s.path(businessId))
	if err != nil {
		return nil, utils.ErrorModelUnavailable
	}

	var blob ModelBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, utils.ErrorModelUnavailable
	}
	if blob.SchemaVersion != modelSchemaVersion || blob.Model == nil {
		return nil, utils.ErrorModelUnavailable
	}
	return &blob, nil
}
