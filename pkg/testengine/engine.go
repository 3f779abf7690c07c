/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testengine is a deterministic, tick driven stand-in for the
// application hosting the test scenes.  It loads scenes described by a
// Scenario, moves their entities, delivers scripted input and runs the
// scripted test units of every scene.
package testengine

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/capture"
	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/codec"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/orchestrator"
	"github.com/tickharness/tickharness/pkg/replay"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/savestore"
	"github.com/tickharness/tickharness/pkg/status"
	"github.com/tickharness/tickharness/pkg/suite"
	"github.com/tickharness/tickharness/pkg/types"
)

// DilationVariable is the console variable scaling the time of every scene
// loaded afterwards.
const DilationVariable = "slomo"

type EngineOpt interface{}

type loggerOpt struct{ logging.Logger }

func LoggerOpt(logger logging.Logger) EngineOpt {
	return loggerOpt{logger}
}

type storeOpt struct{ savestore.Store }

// StoreOpt sets where recordings are kept, in memory by default.
func StoreOpt(store savestore.Store) EngineOpt {
	return storeOpt{store}
}

type recordingsRootOpt string

func RecordingsRootOpt(root string) EngineOpt {
	return recordingsRootOpt(root)
}

type manglerOpt struct{ Mangler }

// ManglerOpt disturbs the scripted events.
func ManglerOpt(mangler Mangler) EngineOpt {
	return manglerOpt{mangler}
}

type codecOpt []codec.Opt

func CodecOpt(opts ...codec.Opt) EngineOpt {
	return codecOpt(opts)
}

type clockOpt func() time.Time

// ClockOpt sets the wall clock stamping suite results.
func ClockOpt(clock func() time.Time) EngineOpt {
	return clockOpt(clock)
}

type suiteWritersOpt []report.Writer

// SuiteWritersOpt replaces the report writers of every suite.
func SuiteWritersOpt(writers ...report.Writer) EngineOpt {
	return suiteWritersOpt(writers)
}

// scene is a loaded scene and everything living in it.
type scene struct {
	engine *Engine
	def    *SceneDef
	world  *World
	logger logging.Logger

	runner   *suite.Runner
	units    []*ScriptedUnit
	recorder *capture.Recorder
	player   *replay.Player
}

// Engine implements orchestrator.Host.  It is not safe for concurrent use,
// everything happens on the goroutine calling Step or Run.
type Engine struct {
	scenario *Scenario
	logger   logging.Logger
	store    savestore.Store
	root     string
	mangler  Mangler
	codec    []codec.Opt
	clock    func() time.Time
	writers  []report.Writer

	// suiteWriters is set when writers replace the writers of every suite.
	suiteWriters bool

	queue      *EventQueue
	tick       int64
	current    *scene
	loading    string
	dilation   float32
	consoleVar map[string]string

	controller *orchestrator.Controller
	catalog    *catalog.Catalog
}

var (
	_ orchestrator.Host                  = (*Engine)(nil)
	_ orchestrator.ConsoleVariableSetter = (*Engine)(nil)
)

// New creates an engine with the start scene of the scenario loaded.
func New(scenario *Scenario, opts ...EngineOpt) *Engine {
	e := &Engine{
		scenario:   scenario,
		logger:     logging.NilLogger,
		clock:      time.Now,
		dilation:   1,
		consoleVar: map[string]string{},
	}

	for _, opt := range opts {
		switch v := opt.(type) {
		case loggerOpt:
			e.logger = logging.OrNil(v.Logger)
		case storeOpt:
			e.store = v.Store
		case recordingsRootOpt:
			e.root = string(v)
		case manglerOpt:
			e.mangler = v.Mangler
		case codecOpt:
			e.codec = v
		case clockOpt:
			e.clock = v
		case suiteWritersOpt:
			e.writers = v
			e.suiteWriters = true
		}
	}

	if e.store == nil {
		e.store = savestore.NewMemoryStore()
	}

	e.queue = NewEventQueue(scenario.Seed, e.mangler)
	e.load(scenario.StartScene)

	return e
}

// NewController creates the controller of a run of the given catalog on
// this engine.  The engine notifies it of loaded scenes.  The start scene
// was loaded before the catalog was known, so its suite picks up the
// expected errors of the catalog here.
func (e *Engine) NewController(cat *catalog.Catalog, config orchestrator.Config) *orchestrator.Controller {
	e.catalog = cat
	if s := e.current; s != nil && s.runner != nil && !s.runner.IsRunning() && s.runner.NumPairs() == 0 {
		s.runner.ExpectErrors(e.expectedErrors(s.def.Name)...)
	}
	e.controller = orchestrator.New(e, cat, config, e.logger)
	return e.controller
}

func (e *Engine) Controller() *orchestrator.Controller {
	return e.controller
}

// Tick is the number of ticks stepped so far.
func (e *Engine) Tick() int64 {
	return e.tick
}

func (e *Engine) Queue() *EventQueue {
	return e.queue
}

// World returns the world of the loaded scene.
func (e *Engine) World() (*World, bool) {
	if e.current == nil {
		return nil, false
	}
	return e.current.world, true
}

// Runner returns the suite of the loaded scene.
func (e *Engine) Runner() (*suite.Runner, bool) {
	if e.current == nil || e.current.runner == nil {
		return nil, false
	}
	return e.current.runner, true
}

func (e *Engine) CurrentScene() string {
	if e.current == nil {
		return ""
	}
	return e.current.def.Name
}

// LoadScene unloads the current scene and loads the named one after the
// load latency of the scenario.
func (e *Engine) LoadScene(name string) {
	if e.loading != "" {
		e.logger.Log(logging.LevelWarn, "scene load requested while loading another scene", "loading", e.loading, "requested", name)
	}

	e.unload()
	e.loading = name
	e.queue.InsertSceneLoaded(name, e.scenario.LoadTicks)
}

func (e *Engine) FindSuite() (orchestrator.Suite, bool) {
	runner, ok := e.Runner()
	if !ok {
		return nil, false
	}
	return runner, true
}

func (e *Engine) SetConsoleVariable(name, value string) {
	e.consoleVar[name] = value
	e.logger.Log(logging.LevelDebug, "set console variable", "name", name, "value", value)

	if name != DilationVariable {
		return
	}
	dilation, err := strconv.ParseFloat(value, 32)
	if err != nil || dilation <= 0 {
		e.logger.Log(logging.LevelWarn, "invalid time dilation, ignoring it", "value", value)
		return
	}
	e.dilation = float32(dilation)
}

// ConsoleVariables returns a copy of the console variables set so far.
func (e *Engine) ConsoleVariables() map[string]string {
	vars := make(map[string]string, len(e.consoleVar))
	for k, v := range e.consoleVar {
		vars[k] = v
	}
	return vars
}

// Step runs one tick: due events, the world, replay and recording, the
// controller and the running suite, in that order.
func (e *Engine) Step() {
	e.tick++
	for event := e.queue.ConsumeDue(e.tick); event != nil; event = e.queue.ConsumeDue(e.tick) {
		e.apply(event)
	}

	var delta types.Seconds
	if s := e.current; s != nil {
		delta = s.world.step(e.scenario.TickSeconds)
		if s.player != nil {
			s.player.Tick()
		}
		if s.recorder != nil {
			s.recorder.Tick()
		}
	}

	if e.controller != nil {
		e.controller.Tick()
	}

	if runner, ok := e.Runner(); ok {
		runner.Tick(delta)
	}
}

// Run steps the engine until the controller finished and returns its exit
// code.  It stops early with an error when ctx is done or the scenario's
// tick limit is reached.
func (e *Engine) Run(ctx context.Context) (int, error) {
	if e.controller == nil {
		return 1, errors.New("engine has no controller")
	}

	defer e.unload()

	for e.controller.State() != orchestrator.Finished {
		if err := ctx.Err(); err != nil {
			return 1, errors.WithMessage(err, "run interrupted")
		}
		if e.tick >= e.scenario.MaxTicks {
			e.logger.Log(logging.LevelWarn, "run is stuck", "status", e.Status().Pretty())
			return 1, errors.Errorf("run did not finish within %d ticks", e.scenario.MaxTicks)
		}
		e.Step()
	}

	return e.controller.ExitCode(), nil
}

// Status takes a snapshot of the run.
func (e *Engine) Status() *status.Run {
	s := &status.Run{
		Tick:          e.tick,
		Loading:       e.loading,
		Loaded:        e.CurrentScene(),
		PendingEvents: e.queue.List.Len(),
		State:         "Detached",
	}

	if e.controller != nil {
		s.State = e.controller.State().String()
		s.Cursor = e.controller.Cursor()
		s.Finished = e.controller.Results()
		s.Scenes = e.catalog.Len()
	}

	if runner, ok := e.Runner(); ok && runner.IsRunning() {
		rs := &status.Suite{
			Scene: runner.Scene(),
			Done:  runner.Results(),
			Total: runner.NumPairs(),
		}
		if test, param, elapsed, ok := runner.Current(); ok {
			rs.Test = test.Unit().Name()
			rs.Param = param
			rs.Elapsed = elapsed
			rs.Timeout = test.Unit().TimeoutSeconds()
		}
		s.Running = rs
	}

	return s
}

func (e *Engine) apply(event *Event) {
	switch {
	case event.SceneLoaded != nil:
		name := event.SceneLoaded.Scene
		if name != e.loading {
			e.logger.Log(logging.LevelDebug, "ignoring load of a scene which is not loading", "scene", name)
			return
		}
		e.loading = ""
		e.load(name)
		if e.controller != nil {
			e.controller.SceneLoaded(name)
		}
	case event.Action != nil:
		if e.current != nil {
			e.current.world.input.InjectAction(event.Action.Name, event.Action.Kind)
		}
	case event.Axis != nil:
		if e.current != nil {
			e.current.world.input.InjectAxis(event.Axis.Name, event.Axis.Value)
		}
	case event.Pause != nil:
		if e.current != nil {
			e.current.world.clock.SetPaused(event.Pause.Paused)
		}
	case event.UnitStep != nil:
		unit := event.UnitStep.Unit
		if unit.scene != e.current {
			return
		}
		unit.step(event.UnitStep.Run)
	}
}

// load makes the named scene current.  Names the scenario does not know
// load as empty scenes.
func (e *Engine) load(name string) {
	def, ok := e.scenario.Scene(name)
	if !ok {
		if name != "" {
			e.logger.Log(logging.LevelWarn, "unknown scene, loading an empty one", "scene", name)
		}
		def = &SceneDef{Name: name, Dilation: 1}
	}

	s := &scene{
		engine: e,
		def:    def,
		world:  newWorld(def),
	}
	s.world.clock.Dilation *= e.dilation

	if len(def.Units) > 0 {
		for _, ud := range def.Units {
			s.units = append(s.units, newScriptedUnit(ud, s))
		}
		s.runner = suite.NewRunner(def.Name, suiteUnits(s.units), e.runnerOpts(def.Name)...)
		for i, test := range s.runner.Tests() {
			if reason := s.units[i].def.SkipReason; reason != "" {
				test.SetSkipReason(reason)
			}
		}
		s.logger = s.runner.ObserveLog(logging.Decorate(e.logger, "scene: ", "scene", def.Name))
	} else {
		s.logger = logging.Decorate(e.logger, "scene: ", "scene", def.Name)
	}

	for _, input := range def.Input {
		if input.Action != "" {
			kind, _ := ParseInputEventKind(input.Kind)
			e.queue.InsertAction(input.Action, kind, input.Tick)
			continue
		}
		e.queue.InsertAxis(input.Axis, input.Value, input.Tick)
	}

	if def.PauseAt > 0 {
		e.queue.InsertPause(true, def.PauseAt)
		if def.ResumeAt > def.PauseAt {
			e.queue.InsertPause(false, def.ResumeAt)
		}
	}

	if def.Replay != "" {
		s.player = replay.NewPlayer(s.world, s.world.input, e.store, e.root, s.logger)
		if err := s.player.Load(def.Replay); err != nil {
			s.logger.Log(logging.LevelDebug, "replaying nothing", "owner", def.Replay)
		}
	}

	if def.Record != "" {
		s.recorder = capture.NewRecorder(s.world, e.store, e.root, s.logger, e.codec...)
		s.recorder.Start(def.Record)
	}

	e.current = s
	e.logger.Log(logging.LevelInfo, "loaded scene", "scene", def.Name, "tick", e.tick, "units", len(s.units))
}

func (e *Engine) runnerOpts(name string) []suite.RunnerOpt {
	opts := []suite.RunnerOpt{
		suite.LoggerOpt(e.logger),
		suite.ClockOpt(e.clock),
	}
	if e.suiteWriters {
		opts = append(opts, suite.WritersOpt(e.writers...))
	}
	if expected := e.expectedErrors(name); len(expected) > 0 {
		opts = append(opts, suite.ExpectedErrorsOpt(expected...))
	}
	return opts
}

func (e *Engine) expectedErrors(name string) []catalog.ExpectedError {
	if e.catalog == nil || !e.catalog.Contains(name) {
		return nil
	}
	return e.catalog.At(e.catalog.IndexOf(name)).MetaData.ExpectedErrors
}

// unload saves what was recorded in the current scene and drops the pending
// events of it.
func (e *Engine) unload() {
	s := e.current
	if s == nil {
		return
	}
	e.current = nil
	e.queue.Clear()

	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			e.logger.Log(logging.LevelError, "could not save recording", "scene", s.def.Name, "error", err)
		}
	}
}

func suiteUnits(units []*ScriptedUnit) []suite.Unit {
	result := make([]suite.Unit, len(units))
	for i, u := range units {
		result[i] = u
	}
	return result
}
