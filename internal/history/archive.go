package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/piwi3910/uldpack/internal/model"
)

// ErrRunNotFound is returned when no run with the given id is archived.
var ErrRunNotFound = errors.New("run not found")

var runPrefix = []byte("run:")

// StageRecord is the outcome of one refinement stage.
type StageRecord struct {
	Stage      string        `json:"stage"`
	Cost       float64       `json:"cost"`
	Summary    model.Summary `json:"summary"`
	RolledBack bool          `json:"rolled_back"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Run is one archived solve.
type Run struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Started  time.Time      `json:"started"`
	Settings model.Settings `json:"settings"`
	Stages   []StageRecord  `json:"stages"`
	Plan     *model.Plan    `json:"plan,omitempty"` // final plan
}

// NewRun starts a run record with a generated id.
func NewRun(name string, settings model.Settings) *Run {
	return &Run{
		ID:       uuid.New().String(),
		Name:     name,
		Started:  time.Now(),
		Settings: settings,
	}
}

// AddStage appends a stage record.
func (r *Run) AddStage(rec StageRecord) {
	r.Stages = append(r.Stages, rec)
}

// Archive stores runs in an embedded badger database.
type Archive struct {
	db *badger.DB
}

// OpenArchive opens (or creates) the archive in dir.
func OpenArchive(dir string) (*Archive, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", dir, err)
	}
	return &Archive{db: db}, nil
}

// OpenMemoryArchive opens an archive that lives only in memory.
func OpenMemoryArchive() (*Archive, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func runKey(id string) []byte {
	return append(append([]byte(nil), runPrefix...), id...)
}

// Save writes run, replacing any earlier record with the same id.
func (a *Archive) Save(run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(run.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Load reads the run with the given id.
func (a *Archive) Load(id string) (*Run, error) {
	var run Run
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRunNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return &run, nil
}

// List returns every archived run without its plan, newest first.
func (a *Archive) List() ([]Run, error) {
	var runs []Run
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(runPrefix); it.ValidForPrefix(runPrefix); it.Next() {
			var run Run
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			})
			if err != nil {
				return err
			}
			run.Plan = nil
			runs = append(runs, run)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Started.After(runs[j].Started)
	})
	return runs, nil
}

// Delete removes the run with the given id.
func (a *Archive) Delete(id string) error {
	err := a.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrRunNotFound
			}
			return err
		}
		return txn.Delete(runKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}
