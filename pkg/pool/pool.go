package pool

import (
	"encoding/json"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evoctl/evoctl/pkg/model"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// Claim is the durable record of a photo assigned to an instance.
// The assignment is one-way: the pipeline never releases a claim, only an
// administrative Release does.
type Claim struct {
	PhotoID   string    `json:"photo_id"`
	Instance  string    `json:"instance"`
	StoredAs  string    `json:"stored_as"`
	ClaimedAt time.Time `json:"claimed_at"`
}

type poolState struct {
	Claims map[string]*Claim `json:"claims"`
}

// Pool hands out photos from a directory, at most once each. Claims are
// persisted before a claimed photo is returned, so a crash between claim and
// use cannot cause the same photo to be reassigned. The claimed file is also
// copied into managed storage so later deletion of the source does not break
// the instance.
type Pool struct {
	photoDir   string
	storageDir string
	statePath  string
	mu         sync.Mutex
}

var photoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// New creates a pool over photoDir, keeping claim state and photo copies
// under dataDir.
func New(photoDir, dataDir string) (*Pool, error) {
	storageDir := filepath.Join(dataDir, "photos")
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create photo storage", goerr.V("dir", storageDir))
	}

	return &Pool{
		photoDir:   photoDir,
		storageDir: storageDir,
		statePath:  filepath.Join(dataDir, "pool.json"),
	}, nil
}

func (p *Pool) loadState() (*poolState, error) {
	state := &poolState{Claims: map[string]*Claim{}}

	data, err := os.ReadFile(p.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return nil, goerr.Wrap(err, "failed to read pool state", goerr.V("path", p.statePath))
	}

	if err := json.Unmarshal(data, state); err != nil {
		return nil, goerr.Wrap(err, "failed to parse pool state", goerr.V("path", p.statePath))
	}
	if state.Claims == nil {
		state.Claims = map[string]*Claim{}
	}

	return state, nil
}

func (p *Pool) storeState(state *poolState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode pool state")
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.statePath), ".pool-*.json.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to write pool state")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to close pool state")
	}
	if err := os.Rename(tmpName, p.statePath); err != nil {
		os.Remove(tmpName)
		return goerr.Wrap(err, "failed to replace pool state", goerr.V("path", p.statePath))
	}

	return nil
}

// scan lists the photo identifiers (base file names) currently present in
// the photo directory.
func (p *Pool) scan() ([]string, error) {
	entries, err := os.ReadDir(p.photoDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read photo directory", goerr.V("dir", p.photoDir))
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if photoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)

	return ids, nil
}

// Available returns the photo identifiers not yet claimed.
func (p *Pool) Available() ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available()
}

func (p *Pool) available() ([]string, error) {
	state, err := p.loadState()
	if err != nil {
		return nil, err
	}

	known, err := p.scan()
	if err != nil {
		return nil, err
	}

	unused := make([]string, 0, len(known))
	for _, id := range known {
		if _, claimed := state.Claims[id]; !claimed {
			unused = append(unused, id)
		}
	}

	return unused, nil
}

// Claim selects one unused photo uniformly at random, copies it into
// managed storage and durably records the assignment. Returns
// model.ErrPhotoPoolExhausted when every known photo is already claimed.
func (p *Pool) Claim(instance string) (*Claim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.loadState()
	if err != nil {
		return nil, err
	}

	unused, err := p.available()
	if err != nil {
		return nil, err
	}
	if len(unused) == 0 {
		return nil, goerr.Wrap(model.ErrPhotoPoolExhausted, "add more photos to the pool directory",
			goerr.V("dir", p.photoDir))
	}

	photoID := unused[rand.IntN(len(unused))]

	storedAs := uuid.NewString()[:8] + strings.ToLower(filepath.Ext(photoID))
	if err := copyFile(filepath.Join(p.photoDir, photoID), filepath.Join(p.storageDir, storedAs)); err != nil {
		return nil, err
	}

	claim := &Claim{
		PhotoID:   photoID,
		Instance:  instance,
		StoredAs:  storedAs,
		ClaimedAt: time.Now(),
	}
	state.Claims[photoID] = claim

	if err := p.storeState(state); err != nil {
		os.Remove(filepath.Join(p.storageDir, storedAs))
		return nil, goerr.Wrap(model.ErrPersistenceFailure, err.Error())
	}

	return claim, nil
}

// Release drops a claim and its stored copy. Administrative use only; the
// pipeline never calls this.
func (p *Pool) Release(photoID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.loadState()
	if err != nil {
		return err
	}

	claim, ok := state.Claims[photoID]
	if !ok {
		return goerr.Wrap(model.ErrPhotoNotClaimed, "nothing to release", goerr.V("photo", photoID))
	}
	delete(state.Claims, photoID)

	if err := p.storeState(state); err != nil {
		return goerr.Wrap(model.ErrPersistenceFailure, err.Error())
	}

	os.Remove(filepath.Join(p.storageDir, claim.StoredAs))
	return nil
}

// StoredPath returns the managed copy location for a claim.
func (p *Pool) StoredPath(claim *Claim) string {
	return filepath.Join(p.storageDir, claim.StoredAs)
}

// Lookup returns the claim for a photo identifier, if any.
func (p *Pool) Lookup(photoID string) (*Claim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.loadState()
	if err != nil {
		return nil, err
	}

	claim, ok := state.Claims[photoID]
	if !ok {
		return nil, goerr.Wrap(model.ErrPhotoNotClaimed, "no claim for photo", goerr.V("photo", photoID))
	}

	return claim, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return goerr.Wrap(err, "failed to open photo", goerr.V("path", src))
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return goerr.Wrap(err, "failed to create photo copy", goerr.V("path", dst))
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return goerr.Wrap(err, "failed to copy photo", goerr.V("path", dst))
	}

	return out.Close()
}
