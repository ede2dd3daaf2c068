package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const (
	recordFileMode = 0o600
	recordDirMode  = 0o700
)

// localRepo persists records as a single JSON document keyed by instance
// name. Writes go through a temp file and rename so a crash never leaves a
// half-written store.
type localRepo struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLocks      = map[string]*sync.RWMutex{}
)

// lockForPath returns a process-wide lock shared by all repositories on the
// same file, so concurrent read-modify-write cycles are serialized.
func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if l, ok := pathLocks[path]; ok {
		return l
	}
	l := &sync.RWMutex{}
	pathLocks[path] = l
	return l
}

// NewLocal creates a file-backed repository at path.
func NewLocal(path string) (Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve store path", goerr.V("path", path))
	}

	if err := os.MkdirAll(filepath.Dir(abs), recordDirMode); err != nil {
		return nil, goerr.Wrap(err, "failed to create store directory", goerr.V("path", abs))
	}

	return &localRepo{path: abs, mu: lockForPath(abs)}, nil
}

func (r *localRepo) load() (map[string]*model.InstanceRecord, error) {
	records := map[string]*model.InstanceRecord{}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, goerr.Wrap(err, "failed to read record store", goerr.V("path", r.path))
	}

	if err := json.Unmarshal(data, &records); err != nil {
		return nil, goerr.Wrap(err, "failed to parse record store", goerr.V("path", r.path))
	}

	return records, nil
}

func (r *localRepo) store(records map[string]*model.InstanceRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode record store")
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".instances-*.json.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to write record store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to close record store")
	}
	if err := os.Chmod(tmpName, recordFileMode); err != nil {
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to set store permissions")
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to replace record store", goerr.V("path", r.path))
	}

	return nil
}

func (r *localRepo) PutInstance(ctx context.Context, record *model.InstanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return goerr.Wrap(model.ErrPersistenceFailure, err.Error())
	}

	records[record.Name] = record

	if err := r.store(records); err != nil {
		return goerr.Wrap(model.ErrPersistenceFailure, err.Error(), goerr.V("instance", record.Name))
	}

	return nil
}

func (r *localRepo) GetInstance(ctx context.Context, name string) (*model.InstanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	record, ok := records[name]
	if !ok {
		return nil, goerr.Wrap(model.ErrInstanceNotFound, "no such instance", goerr.V("instance", name))
	}

	return record, nil
}

func (r *localRepo) ListInstances(ctx context.Context) ([]*model.InstanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	list := make([]*model.InstanceRecord, 0, len(records))
	for _, record := range records {
		list = append(list, record)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	return list, nil
}

func (r *localRepo) DeleteInstance(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}

	if _, ok := records[name]; !ok {
		return goerr.Wrap(model.ErrInstanceNotFound, "no such instance", goerr.V("instance", name))
	}
	delete(records, name)

	if err := r.store(records); err != nil {
		return goerr.Wrap(model.ErrPersistenceFailure, err.Error(), goerr.V("instance", name))
	}

	return nil
}
