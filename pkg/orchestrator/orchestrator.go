/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package orchestrator drives a run scene by scene: it loads every selected
// scene, runs the suite found in it, and collects and reports the results.
package orchestrator

import (
	"fmt"
	"sort"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/events"
	"github.com/tickharness/tickharness/pkg/logging"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/results"
)

type State int

const (
	Initialized State = iota
	LoadingNextScene
	DiscoveringTests
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "Initialized"
	case LoadingNextScene:
		return "LoadingNextScene"
	case DiscoveringTests:
		return "DiscoveringTests"
	case Running:
		return "Running"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Host is the engine running the scenes.
type Host interface {
	CurrentScene() string

	// LoadScene requests a scene load.  The host reports completion through
	// Controller.SceneLoaded on some later tick.
	LoadScene(name string)

	// FindSuite returns the suite of the currently loaded scene.
	FindSuite() (Suite, bool)
}

// Suite is the collection of tests within one scene.
type Suite interface {
	// OnFinished listeners are called once, whether the suite succeeded or
	// not.
	OnFinished(func(results.SuiteResult))
	RunAll()
	ReportWriters() []report.Writer
}

// ConsoleVariableSetter is implemented by hosts which accept console
// variables.
type ConsoleVariableSetter interface {
	SetConsoleVariable(name, value string)
}

type Config struct {
	Filter     catalog.Filter
	ReportPath string

	// Writers are used in addition to the writers of every suite.
	Writers []report.Writer

	ConsoleVariables map[string]string
}

// Controller is the state of one run.  It is driven by calling Tick once per
// frame, from the same goroutine which calls SceneLoaded.
type Controller struct {
	host    Host
	catalog *catalog.Catalog
	config  Config
	logger  logging.Logger

	state      State
	cursor     int
	loadIssued bool

	// suiteID identifies the suite currently running, completions of any
	// other suite are stale.
	suiteID int

	results  []results.SuiteResult
	finished events.Signal[[]results.SuiteResult]
	doneC    chan struct{}
}

func New(host Host, cat *catalog.Catalog, config Config, logger logging.Logger) *Controller {
	c := &Controller{
		host:    host,
		catalog: cat,
		config:  config,
		logger:  logging.OrNil(logger),
		state:   Initialized,
		cursor:  -1,
		doneC:   make(chan struct{}),
	}

	c.applyConsoleVariables()

	return c
}

func (c *Controller) applyConsoleVariables() {
	if len(c.config.ConsoleVariables) == 0 {
		return
	}

	setter, ok := c.host.(ConsoleVariableSetter)
	if !ok {
		c.logger.Log(logging.LevelWarn, "host does not accept console variables, ignoring them", "count", len(c.config.ConsoleVariables))
		return
	}

	names := make([]string, 0, len(c.config.ConsoleVariables))
	for name := range c.config.ConsoleVariables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := c.config.ConsoleVariables[name]
		c.logger.Log(logging.LevelInfo, "setting console variable", "name", name, "value", value)
		setter.SetConsoleVariable(name, value)
	}
}

func (c *Controller) State() State {
	return c.state
}

// Cursor is the catalog index of the current scene, -1 before the first.
func (c *Controller) Cursor() int {
	return c.cursor
}

// Results returns a copy of the results collected so far.
func (c *Controller) Results() []results.SuiteResult {
	return append([]results.SuiteResult(nil), c.results...)
}

// ExitCode is 1 if any test of the run failed.
func (c *Controller) ExitCode() int {
	return results.ExitCode(c.results)
}

// Done is closed once the run finished.
func (c *Controller) Done() <-chan struct{} {
	return c.doneC
}

// OnFinished registers a listener for the final results.
func (c *Controller) OnFinished(listener func([]results.SuiteResult)) {
	c.finished.Subscribe(listener)
}

// Tick evaluates the current state once.
func (c *Controller) Tick() {
	switch c.state {
	case Initialized:
		current := c.host.CurrentScene()
		index := c.catalog.IndexOf(current)
		if index < 0 {
			c.logger.Log(logging.LevelInfo, "starting from a scene which is not a test scene", "scene", current)
			c.cursor = -1
			c.advance()
			return
		}
		c.cursor = index
		c.state = DiscoveringTests
	case LoadingNextScene:
		if c.loadIssued {
			return
		}
		c.loadIssued = true
		scene := c.catalog.At(c.cursor)
		c.logger.Log(logging.LevelInfo, "loading scene", "scene", scene.Name, "index", c.cursor)
		c.host.LoadScene(scene.Name)
	case DiscoveringTests:
		c.discover()
	case Running, Finished:
	}
}

// SceneLoaded tells the controller that the host finished loading a scene.
// It is ignored unless the controller is waiting for a load it requested.
func (c *Controller) SceneLoaded(name string) {
	if c.state != LoadingNextScene || !c.loadIssued {
		c.logger.Log(logging.LevelDebug, "ignoring scene load notification", "scene", name, "state", c.state)
		return
	}

	if expected := c.catalog.At(c.cursor).Name; expected != name {
		c.logger.Log(logging.LevelWarn, "loaded scene differs from requested scene", "requested", expected, "loaded", name)
	}

	c.state = DiscoveringTests
}

func (c *Controller) discover() {
	scene := c.host.CurrentScene()

	s, ok := c.host.FindSuite()
	if !ok || s == nil {
		c.logger.Log(logging.LevelError, "no test suite found, skipping scene", "scene", scene)
		c.advance()
		return
	}

	c.suiteID++
	id := c.suiteID
	s.OnFinished(func(result results.SuiteResult) {
		c.suiteFinished(id, s, result)
	})

	c.state = Running
	c.logger.Log(logging.LevelInfo, "running suite", "scene", scene)
	s.RunAll()
}

func (c *Controller) suiteFinished(id int, s Suite, result results.SuiteResult) {
	if id != c.suiteID || c.state != Running {
		c.logger.Log(logging.LevelWarn, "ignoring completion of a suite which is not running", "scene", result.Scene, "state", c.state)
		return
	}

	c.results = append(c.results, result)
	c.logger.Log(logging.LevelInfo, "suite finished", "scene", result.Scene,
		"tests", len(result.Tests), "failed", result.NumFailed(), "skipped", result.NumSkipped())

	writers := report.NewWriterSet(c.config.Writers...)
	for _, w := range s.ReportWriters() {
		writers.Add(w)
	}
	writers.WriteAll(c.Results(), c.config.ReportPath, c.logger)

	c.advance()
}

func (c *Controller) advance() {
	c.cursor = c.catalog.Advance(c.cursor, c.config.Filter)
	if !c.catalog.Valid(c.cursor) {
		c.finish()
		return
	}

	c.state = LoadingNextScene
	c.loadIssued = false
}

func (c *Controller) finish() {
	c.state = Finished
	summary := results.Summarize(c.results)
	c.logger.Log(logging.LevelInfo, "all tests finished", "suites", summary.Suites, "tests", summary.Tests,
		"failed", summary.Failed, "skipped", summary.Skipped, "exit_code", c.ExitCode())
	close(c.doneC)
	c.finished.Fire(c.Results())
}
