package lifecycle

import (
	"github.com/san-kum/simrun/internal/storage"
)

// AssignTrial picks the trial directory for a run. A pinned trial is reused
// as is unless strict is set; otherwise the next free trial is claimed.
// created reports whether the trial directory did not exist before the call.
func AssignTrial(st *storage.Store, simDir string, test bool, pinned *int, strict bool) (l storage.Layout, created bool, err error) {
	if pinned == nil {
		l, err = st.Claim(simDir, test)
		return l, err == nil, err
	}

	exists, err := st.Exists(simDir, *pinned, test)
	if err != nil {
		return storage.Layout{}, false, err
	}
	if exists && strict {
		return storage.Layout{}, false, &storage.TrialConflictError{
			Trial: *pinned,
			Path:  storage.SimPath(st.BaseDir(), simDir, *pinned, test),
		}
	}
	l, err = st.Resolve(simDir, *pinned, test)
	return l, err == nil && !exists, err
}

// AssignSeed binds the seed to the trial unless one was given explicitly,
// so rerunning trial N reproduces the same random stream.
func AssignSeed(explicit *int64, trial int) int64 {
	if explicit != nil {
		return *explicit
	}
	return int64(trial)
}
