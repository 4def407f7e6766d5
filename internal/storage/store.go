package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	fieldFile    = "field.csv"
	velocityFile = "velocity.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Label       string             `json:"label,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Config      config.Config      `json:"config"`
	Samples     int                `json:"samples"`
	Steps       int                `json:"steps"`
	Rejected    int                `json:"rejected"`
	Evaluations int                `json:"evaluations"`
	ElapsedMS   int64              `json:"elapsed_ms"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (m *RunMetadata) ShortID() string {
	if len(m.ID) > 8 {
		return m.ID[:8]
	}
	return m.ID
}

// Save writes metadata.json, field.csv and velocity.csv for res and returns
// the new run ID.
func (s *Store) Save(label string, res *experiment.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Label:       label,
		Timestamp:   time.Now().UTC(),
		Config:      *res.Config,
		Samples:     res.Samples(),
		Steps:       res.Stats.Steps,
		Rejected:    res.Stats.Rejected,
		Evaluations: res.Stats.Evaluations,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		Metrics:     res.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeGridFile(filepath.Join(runDir, fieldFile), res.Times, res.Field); err != nil {
		return "", err
	}
	if err := writeGridFile(filepath.Join(runDir, velocityFile), res.Times, res.Velocity); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeGridFile(path string, times []float64, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteGridCSV(f, times, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.readMetadata(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})

	return runs, nil
}

// Resolve expands a unique prefix of a run ID.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, prefix, metadataFile)); err == nil {
		return prefix, nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", prefix, ErrRunNotFound)
		}
		return "", err
	}

	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("run prefix %q is ambiguous", prefix)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%s: %w", prefix, ErrRunNotFound)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	return s.readMetadata(id)
}

func (s *Store) readMetadata(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadField returns the sample times and the N x n_times field of a run.
func (s *Store) LoadField(runID string) ([]float64, [][]float64, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, nil, err
	}
	return readGridFile(filepath.Join(s.baseDir, id, fieldFile))
}

// LoadResult rebuilds the full result of a stored run.
func (s *Store) LoadResult(runID string) (*experiment.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.baseDir, meta.ID)

	times, field, err := readGridFile(filepath.Join(dir, fieldFile))
	if err != nil {
		return nil, err
	}
	_, velocity, err := readGridFile(filepath.Join(dir, velocityFile))
	if err != nil {
		return nil, err
	}

	cfg := meta.Config
	res := experiment.NewResult(&cfg, times, field, velocity, meta.Metrics)
	res.Stats.Steps = meta.Steps
	res.Stats.Rejected = meta.Rejected
	res.Stats.Evaluations = meta.Evaluations
	res.Elapsed = time.Duration(meta.ElapsedMS) * time.Millisecond
	return res, nil
}

func readGridFile(path string) ([]float64, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadGridCSV(f)
}
