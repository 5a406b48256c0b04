package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	TestDir      = "test"
	TrialPrefix  = "trial_"
	DataFile     = "data.h5"
	ReadmeFile   = "README.txt"
	LogFile      = "sim.log"
	ManifestFile = "run.yaml"
	SeriesFile   = "states.csv"

	simDirLayout = "20060102_150405"
)

// Layout is the resolved on-disk location of one trial:
//
//	<data_loc>/<sim_dir>/[test/]trial_<trial>/data.h5
type Layout struct {
	DataLoc  string
	SimDir   string
	Trial    int
	Test     bool
	SimPath  string
	HDF5Path string
}

// Store manages the trial directories below a data location.
type Store struct {
	baseDir string
}

func New(dataLoc string) *Store {
	return &Store{baseDir: dataLoc}
}

func (s *Store) BaseDir() string { return s.baseDir }

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return &StorageError{Op: "create data_loc", Path: s.baseDir, Err: err}
	}
	return nil
}

// DefaultSimDir names a simulation family after the wall clock, at second
// resolution. Two runs started within the same second share the name.
func DefaultSimDir(now time.Time) string {
	return now.Format(simDirLayout)
}

// TrialRoot is the directory that holds the trial_<n> folders.
func TrialRoot(dataLoc, simDir string, test bool) string {
	if test {
		return filepath.Join(dataLoc, simDir, TestDir)
	}
	return filepath.Join(dataLoc, simDir)
}

func SimPath(dataLoc, simDir string, trial int, test bool) string {
	return filepath.Join(TrialRoot(dataLoc, simDir, test), TrialPrefix+strconv.Itoa(trial))
}

func HDF5Path(simPath string) string {
	return filepath.Join(simPath, DataFile)
}

// Layout computes paths without touching the filesystem.
func (s *Store) Layout(simDir string, trial int, test bool) Layout {
	simPath := SimPath(s.baseDir, simDir, trial, test)
	return Layout{
		DataLoc:  s.baseDir,
		SimDir:   simDir,
		Trial:    trial,
		Test:     test,
		SimPath:  simPath,
		HDF5Path: HDF5Path(simPath),
	}
}

// Resolve computes the layout for a trial and creates every missing directory
// up to SimPath. Calling it again with the same arguments is a no-op.
// An empty simDir is replaced by DefaultSimDir.
func (s *Store) Resolve(simDir string, trial int, test bool) (Layout, error) {
	if simDir == "" {
		simDir = DefaultSimDir(time.Now())
	}
	if trial < 0 {
		return Layout{}, &StorageError{Op: "resolve trial", Path: simDir, Err: ErrNegativeTrial}
	}
	l := s.Layout(simDir, trial, test)
	if err := os.MkdirAll(l.SimPath, 0755); err != nil {
		return Layout{}, &StorageError{Op: "create sim_path", Path: l.SimPath, Err: err}
	}
	return l, nil
}

// Trials lists the trial numbers present under the trial root in ascending
// order. A missing root yields an empty list.
func (s *Store) Trials(simDir string, test bool) ([]int, error) {
	root := TrialRoot(s.baseDir, simDir, test)
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []int{}, nil
		}
		return nil, &StorageError{Op: "scan trials", Path: root, Err: err}
	}

	trials := make([]int, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, ok := parseTrial(entry.Name())
		if !ok {
			continue
		}
		trials = append(trials, n)
	}
	sort.Ints(trials)
	return trials, nil
}

// NextTrial returns one more than the highest existing trial, or 0.
func (s *Store) NextTrial(simDir string, test bool) (int, error) {
	trials, err := s.Trials(simDir, test)
	if err != nil {
		return 0, err
	}
	if len(trials) == 0 {
		return 0, nil
	}
	return trials[len(trials)-1] + 1, nil
}

// Claim allocates the next trial and creates its directory with a
// non-recursive mkdir, so two processes scanning the same root cannot both
// win the same number. A lost race moves on to the following index.
func (s *Store) Claim(simDir string, test bool) (Layout, error) {
	root := TrialRoot(s.baseDir, simDir, test)
	if err := os.MkdirAll(root, 0755); err != nil {
		return Layout{}, &StorageError{Op: "create trial root", Path: root, Err: err}
	}

	trial, err := s.NextTrial(simDir, test)
	if err != nil {
		return Layout{}, err
	}

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		l := s.Layout(simDir, trial+attempt, test)
		err := os.Mkdir(l.SimPath, 0755)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return Layout{}, &StorageError{Op: "claim trial", Path: l.SimPath, Err: err}
		}
	}
	return Layout{}, &StorageError{Op: "claim trial", Path: root, Err: ErrClaimExhausted}
}

// Exists reports whether the trial directory is already present.
func (s *Store) Exists(simDir string, trial int, test bool) (bool, error) {
	path := SimPath(s.baseDir, simDir, trial, test)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &StorageError{Op: "stat trial", Path: path, Err: err}
	}
	return info.IsDir(), nil
}

const maxClaimAttempts = 64

func parseTrial(name string) (int, bool) {
	if !strings.HasPrefix(name, TrialPrefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(name, TrialPrefix)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || strconv.Itoa(n) != digits {
		return 0, false
	}
	return n, true
}
