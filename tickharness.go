/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tickharness runs scene based tests of a tick driven application
// and records and replays player input for them.  Run ties a settings file,
// a run configuration and a simulated application together; the packages
// below pkg/ can be used on their own to drive a real host.
package tickharness

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/config"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/orchestrator"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/savestore"
	"github.com/tickharness/tickharness/pkg/testengine"
)

// Options of a run.  Settings and Scenario take precedence over the paths
// they are otherwise loaded from.
type Options struct {
	SettingsPath string
	Settings     *config.Settings

	ScenarioPath string
	Scenario     *testengine.Scenario

	Run config.RunConfig

	// RunID identifies the run in the result journal, a random one is
	// generated when empty.
	RunID string

	// Logger defaults to a zap logger configured by the settings, writing
	// to Console.
	Logger  logging.Logger
	Console io.Writer

	// EngineOpts are passed on to the simulated application.
	EngineOpts []testengine.EngineOpt
}

type closer func() error

type closers []closer

func (cs closers) close(logger logging.Logger) {
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i](); err != nil {
			logger.Log(logging.LevelError, "could not close", "error", err)
		}
	}
}

// Setup is everything a run needs, before it runs.
type Setup struct {
	Settings *config.Settings
	Scenario *testengine.Scenario
	Catalog  *catalog.Catalog
	Logger   logging.Logger
	RunID    string

	closers closers
}

// Prepare loads the settings and the scenario, sets up logging and builds
// the catalog from the scenes of the scenario and those found below the
// content directory.  The returned setup must be closed.
func Prepare(opts Options) (*Setup, error) {
	s := &Setup{
		Settings: opts.Settings,
		Scenario: opts.Scenario,
		Logger:   opts.Logger,
		RunID:    opts.RunID,
	}

	if s.Settings == nil {
		settings, err := config.Load(opts.SettingsPath)
		if err != nil {
			return nil, err
		}
		s.Settings = settings
	}

	if s.Logger == nil {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		zl := logging.NewZapLogger(s.Settings.Logging, console)
		s.closers = append(s.closers, func() error {
			// Sync fails for terminals.
			_ = zl.Sync()
			return nil
		})
		s.Logger = logging.NewZap(zl)
	}

	if s.Scenario == nil {
		if opts.ScenarioPath == "" {
			s.Close()
			return nil, errors.New("no scenario given")
		}
		scenario, err := testengine.LoadScenario(opts.ScenarioPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Scenario = scenario
	}

	if s.RunID == "" {
		s.RunID = uuid.NewString()
	}

	files := s.Scenario.SceneFiles()
	if dir := s.Settings.ContentDir; dir != "" {
		found, err := catalog.Discover(os.DirFS(dir), ".", s.Settings.SceneExtension)
		if err != nil {
			s.Close()
			return nil, err
		}
		files = append(files, found...)
	}

	s.Catalog = catalog.Build(s.Settings.Catalog(s.Logger), files, s.Logger)
	return s, nil
}

// Close releases what the setup and the run opened, in reverse order.
func (s *Setup) Close() {
	s.closers.close(logging.OrNil(s.Logger))
	s.closers = nil
}

// OpenStore opens the recording store the settings choose.
func (s *Setup) OpenStore() (savestore.Store, error) {
	switch s.Settings.RecordingStore {
	case config.StoreMemory:
		return savestore.NewMemoryStore(), nil
	case config.StoreBadger:
		store, err := savestore.OpenBadger(s.Settings.BadgerDir, s.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "could not open recording store")
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return &savestore.FileStore{Root: "."}, nil
	}
}

// OpenJournal opens the result journal, if the settings enable one.
func (s *Setup) OpenJournal() (*report.Journal, error) {
	if s.Settings.JournalDir == "" {
		return nil, nil
	}
	journal, err := report.OpenJournal(s.Settings.JournalDir, s.RunID)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, journal.Close)
	return journal, nil
}

// Run runs every selected test scene of the scenario and returns the exit
// code: 0 if nothing failed, 1 otherwise.
func Run(ctx context.Context, opts Options) (int, error) {
	s, err := Prepare(opts)
	if err != nil {
		return 1, err
	}
	defer s.Close()

	store, err := s.OpenStore()
	if err != nil {
		return 1, err
	}

	writers := opts.Run.Writers()
	journal, err := s.OpenJournal()
	if err != nil {
		return 1, err
	}
	if journal != nil {
		writers = append(writers, journal)
	}

	engineOpts := append([]testengine.EngineOpt{
		testengine.LoggerOpt(s.Logger),
		testengine.StoreOpt(store),
		testengine.RecordingsRootOpt(s.Settings.RecordingsRoot),
	}, opts.EngineOpts...)
	engine := testengine.New(s.Scenario, engineOpts...)

	engine.NewController(s.Catalog, orchestrator.Config{
		Filter:           opts.Run.Filter(),
		ReportPath:       opts.Run.ReportPath,
		Writers:          writers,
		ConsoleVariables: s.Settings.ConsoleVariables,
	})

	s.Logger.Log(logging.LevelInfo, "starting run", "run_id", s.RunID, "scenes", s.Catalog.Len())
	return engine.Run(ctx)
}

// Select lists the scenes a run with the given options would run, without
// running them.
func Select(opts Options) ([]catalog.SceneDescriptor, error) {
	s, err := Prepare(opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.Catalog.Select(opts.Run.Filter()), nil
}
