package lifecycle_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/simrun/internal/config"
	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/storage"
)

type recordingSim struct {
	calls    []string
	initErr  error
	runErr   error
	cleanErr error

	seenTrial   int
	seenSimPath string
	seenParams  config.Params
	draw        int64
}

func (s *recordingSim) Name() string { return "recording" }

func (s *recordingSim) DefaultParams() config.Params {
	return config.Params{"a": 10, "b": 20, "enable_feature_x": true}
}

func (s *recordingSim) Initialize(m *lifecycle.Manager) error {
	s.calls = append(s.calls, "initialize")
	s.seenTrial = m.Trial()
	s.seenSimPath = m.SimPath()
	s.seenParams = m.Params()
	s.draw = m.Rand().Int63()
	return s.initErr
}

func (s *recordingSim) Run(ctx context.Context) error {
	s.calls = append(s.calls, "run")
	return s.runErr
}

func (s *recordingSim) Cleanup() error {
	s.calls = append(s.calls, "cleanup")
	return s.cleanErr
}

var quiet = lifecycle.WithConsole(zapcore.AddSync(GinkgoWriter))

// unencodable makes the run manifest fail to encode.
type unencodable struct{}

func (unencodable) MarshalYAML() (any, error) {
	return nil, errors.New("cannot encode")
}

var _ = Describe("Manager", func() {
	var (
		dataLoc string
		cfg     config.Config
		sim     *recordingSim
	)

	BeforeEach(func() {
		dataLoc = filepath.Join(GinkgoT().TempDir(), "data")
		cfg = config.Config{
			"data_loc": dataLoc,
			"sim_dir":  "fhn",
			"params":   map[string]any{"a": 1, "b": 2},
		}
		sim = &recordingSim{}
	})

	Describe("construction", func() {
		It("merges params, assigns trial and seed, and lays out the trial directory", func() {
			m, err := lifecycle.New(cfg, sim, quiet, lifecycle.WithSeed(42), lifecycle.WithLogInfo("test_debug"))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			Expect(m.Params()).To(Equal(config.Params{"a": 1, "b": 2, "enable_feature_x": true}))
			Expect(m.Trial()).To(Equal(0))
			Expect(m.Seed()).To(Equal(int64(42)))
			Expect(m.Mode().Test).To(BeTrue())
			Expect(m.Mode().Debug).To(BeTrue())
			Expect(m.SimPath()).To(Equal(filepath.Join(dataLoc, "fhn", "test", "trial_0")))
			Expect(m.HDF5Path()).To(Equal(filepath.Join(m.SimPath(), "data.h5")))
			Expect(m.DataLoc()).To(Equal(dataLoc))
			Expect(m.SimDir()).To(Equal("fhn"))
			Expect(m.State()).To(Equal(lifecycle.Ready))

			readme, err := os.ReadFile(filepath.Join(m.SimPath(), "README.txt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(readme)).To(Equal("No description provided."))

			Expect(m.LogPath()).To(BeAnExistingFile())
			Expect(m.HDF5Path()).NotTo(BeAnExistingFile())
		})

		It("exposes derived attributes before Initialize runs", func() {
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			Expect(sim.calls).To(Equal([]string{"initialize"}))
			Expect(sim.seenTrial).To(Equal(m.Trial()))
			Expect(sim.seenSimPath).To(Equal(m.SimPath()))
			Expect(sim.seenParams).To(HaveKeyWithValue("a", 1))
		})

		It("binds the seed to the trial when none is given", func() {
			first, err := lifecycle.New(cfg, &recordingSim{}, quiet)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Cleanup()).To(Succeed())

			second, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(second.Cleanup)

			Expect(first.Trial()).To(Equal(0))
			Expect(first.Seed()).To(Equal(int64(0)))
			Expect(second.Trial()).To(Equal(1))
			Expect(second.Seed()).To(Equal(int64(1)))
		})

		It("reproduces the random stream of a rerun trial", func() {
			other := &recordingSim{}
			first, err := lifecycle.New(cfg, other, quiet, lifecycle.WithTrial(3))
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Cleanup()).To(Succeed())

			second, err := lifecycle.New(cfg, sim, quiet, lifecycle.WithTrial(3))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(second.Cleanup)

			Expect(second.Seed()).To(Equal(int64(3)))
			Expect(sim.draw).To(Equal(other.draw))
		})

		It("writes the description verbatim and overwrites it on reconstruction", func() {
			cfg["description"] = "first"
			m, err := lifecycle.New(cfg, sim, quiet, lifecycle.WithTrial(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Cleanup()).To(Succeed())

			cfg["description"] = "Testing X"
			m, err = lifecycle.New(cfg, &recordingSim{}, quiet, lifecycle.WithTrial(0))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			readme, err := storage.ReadReadme(m.SimPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(readme).To(Equal("Testing X"))
		})

		It("records a manifest of the run", func() {
			cfg["description"] = "sweep"
			m, err := lifecycle.New(cfg, sim, quiet, lifecycle.WithSeed(7))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			manifest, err := storage.LoadManifest(m.SimPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(manifest.ID).To(Equal(m.ID()))
			Expect(manifest.Sim).To(Equal("recording"))
			Expect(manifest.Seed).To(Equal(int64(7)))
			Expect(manifest.Description).To(Equal("sweep"))
			Expect(manifest.Params).To(HaveKeyWithValue("enable_feature_x", true))
		})

		It("generates a timestamped sim_dir when none is configured", func() {
			delete(cfg, "sim_dir")
			clock := func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }

			m, err := lifecycle.New(cfg, sim, quiet, lifecycle.WithClock(clock))
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			Expect(m.SimDir()).To(Equal("20240309_140507"))
			Expect(m.SimPath()).To(Equal(filepath.Join(dataLoc, "20240309_140507", "trial_0")))
		})

		It("writes an explicitly empty description as is", func() {
			cfg["description"] = ""
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			readme, err := storage.ReadReadme(m.SimPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(readme).To(BeEmpty())
		})

		It("opens the run log under a relative data_loc whatever the sim_dir name", func() {
			wd, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
			DeferCleanup(os.Chdir, wd)

			for _, name := range []string{"run#1", "exp%41", "100%", "a?b"} {
				cfg["data_loc"] = "data"
				cfg["sim_dir"] = name

				m, err := lifecycle.New(cfg, &recordingSim{}, quiet)
				Expect(err).NotTo(HaveOccurred(), name)
				Expect(m.SimPath()).To(Equal(filepath.Join("data", name, "trial_0")))
				Expect(filepath.Join(m.SimPath(), "sim.log")).To(BeAnExistingFile())
				Expect(m.LogPath()).To(Equal(filepath.Join(m.SimPath(), "sim.log")))
				Expect(m.Cleanup()).To(Succeed())
			}
		})

		It("does not mutate the caller's config", func() {
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)

			Expect(cfg["params"]).To(Equal(map[string]any{"a": 1, "b": 2}))
			got := m.Config()
			got["data_loc"] = "elsewhere"
			Expect(m.Config()["data_loc"]).To(Equal(dataLoc))
		})
	})

	Describe("construction failures", func() {
		It("rejects a config without params before touching the disk", func() {
			delete(cfg, "params")

			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(m).To(BeNil())
			Expect(err).To(MatchError(config.ErrMissingKey))

			var cerr *config.ConfigError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Key).To(Equal("params"))
			Expect(dataLoc).NotTo(BeADirectory())
			Expect(sim.calls).To(BeEmpty())
		})

		It("rejects optional keys of the wrong type before touching the disk", func() {
			for _, key := range []string{"sim_dir", "description"} {
				bad := cfg.Clone()
				bad[key] = 2024

				m, err := lifecycle.New(bad, sim, quiet)
				Expect(m).To(BeNil())
				Expect(err).To(MatchError(config.ErrWrongType))

				var cerr *config.ConfigError
				Expect(errors.As(err, &cerr)).To(BeTrue())
				Expect(cerr.Key).To(Equal(key))
			}
			Expect(dataLoc).NotTo(BeADirectory())
		})

		It("releases a freshly claimed trial when the run cannot be documented", func() {
			cfg["params"] = map[string]any{"hook": unencodable{}}

			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(m).To(BeNil())
			var serr *storage.StorageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(filepath.Join(dataLoc, "fhn", "trial_0")).NotTo(BeADirectory())
			Expect(sim.calls).To(BeEmpty())

			cfg["params"] = map[string]any{}
			m, err = lifecycle.New(cfg, &recordingSim{}, quiet)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(m.Cleanup)
			Expect(m.Trial()).To(Equal(0))
		})

		It("keeps a reused trial when the run cannot be documented", func() {
			first, err := lifecycle.New(cfg, &recordingSim{}, quiet, lifecycle.WithTrial(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Cleanup()).To(Succeed())

			cfg["params"] = map[string]any{"hook": unencodable{}}
			_, err = lifecycle.New(cfg, sim, quiet, lifecycle.WithTrial(0))
			Expect(err).To(HaveOccurred())
			Expect(filepath.Join(dataLoc, "fhn", "trial_0")).To(BeADirectory())
		})

		It("rejects a config without data_loc", func() {
			delete(cfg, "data_loc")

			_, err := lifecycle.New(cfg, sim, quiet)
			var cerr *config.ConfigError
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(cerr.Key).To(Equal("data_loc"))
		})

		It("fails with a StorageError when data_loc cannot be created", func() {
			blocker := filepath.Join(GinkgoT().TempDir(), "file")
			Expect(os.WriteFile(blocker, []byte("x"), 0644)).To(Succeed())
			cfg["data_loc"] = filepath.Join(blocker, "data")

			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(m).To(BeNil())

			var serr *storage.StorageError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Path).To(ContainSubstring(blocker))
			Expect(sim.calls).To(BeEmpty())
		})

		It("propagates an Initialize failure and returns no manager", func() {
			sim.initErr = errors.New("bad initial state")

			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(m).To(BeNil())
			Expect(err).To(MatchError(ContainSubstring("bad initial state")))
			Expect(errors.Is(err, sim.initErr)).To(BeTrue())
		})

		It("refuses to reuse an existing trial in strict mode", func() {
			first, err := lifecycle.New(cfg, &recordingSim{}, quiet, lifecycle.WithTrial(0))
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Cleanup()).To(Succeed())

			_, err = lifecycle.New(cfg, sim, quiet, lifecycle.WithTrial(0), lifecycle.WithStrictTrial())
			var conflict *storage.TrialConflictError
			Expect(errors.As(err, &conflict)).To(BeTrue())
			Expect(conflict.Trial).To(Equal(0))
			Expect(err).To(MatchError(storage.ErrTrialExists))
		})
	})

	Describe("hooks", func() {
		It("runs hooks in order and cleans up once", func() {
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())

			Expect(m.Run(context.Background())).To(Succeed())
			Expect(m.State()).To(Equal(lifecycle.Running))
			Expect(m.Cleanup()).To(Succeed())
			Expect(m.State()).To(Equal(lifecycle.Cleaned))
			Expect(m.Cleanup()).To(Succeed())

			Expect(sim.calls).To(Equal([]string{"initialize", "run", "cleanup"}))
		})

		It("refuses to run twice or after cleanup", func() {
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Run(context.Background())).To(Succeed())

			err = m.Run(context.Background())
			Expect(err).To(MatchError(lifecycle.ErrInvalidState))

			Expect(m.Cleanup()).To(Succeed())
			err = m.Run(context.Background())
			var serr *lifecycle.StateError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.State).To(Equal(lifecycle.Cleaned))
		})

		It("allows cleanup without running", func() {
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Cleanup()).To(Succeed())
			Expect(sim.calls).To(Equal([]string{"initialize", "cleanup"}))
		})

		It("marks the manager failed when Run errors", func() {
			sim.runErr = errors.New("diverged")
			m, err := lifecycle.New(cfg, sim, quiet)
			Expect(err).NotTo(HaveOccurred())

			err = m.Run(context.Background())
			Expect(err).To(MatchError(sim.runErr))
			Expect(m.State()).To(Equal(lifecycle.Failed))
			Expect(m.Cleanup()).To(Succeed())
		})
	})

	Describe("Do", func() {
		It("always attempts cleanup when Run fails", func() {
			sim.runErr = errors.New("diverged")

			m, err := lifecycle.Do(context.Background(), cfg, sim, quiet)
			Expect(err).To(MatchError(sim.runErr))
			Expect(m.State()).To(Equal(lifecycle.Cleaned))
			Expect(sim.calls).To(Equal([]string{"initialize", "run", "cleanup"}))
		})

		It("reports cleanup failures", func() {
			sim.cleanErr = errors.New("flush failed")

			_, err := lifecycle.Do(context.Background(), cfg, sim, quiet)
			Expect(err).To(MatchError(sim.cleanErr))
		})
	})
})
