/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/codec"
	"github.com/tickharness/tickharness/pkg/orchestrator"
	"github.com/tickharness/tickharness/pkg/recording"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/results"
	"github.com/tickharness/tickharness/pkg/savestore"
	"github.com/tickharness/tickharness/pkg/suite"
	"github.com/tickharness/tickharness/pkg/testengine"
)

type collectingWriter struct {
	calls  int
	suites []results.SuiteResult
}

func (w *collectingWriter) WriteReport(suites []results.SuiteResult, _ string) error {
	w.calls++
	w.suites = suites
	return nil
}

func outcomes(suite results.SuiteResult) []string {
	var names []string
	for _, r := range suite.Tests {
		names = append(names, r.Name()+"="+r.Outcome.String())
	}
	return names
}

const driveEntities = `
    actions: [Jump]
    axes: [MoveForward]
    entities:
      - name: Car
        placed: true
        axis: MoveForward
        speed: 10
        components:
          - name: Body
`

var _ = Describe("Engine", func() {
	var (
		settings *catalog.Settings
		writer   *collectingWriter
		store    *savestore.MemoryStore
	)

	BeforeEach(func() {
		settings = &catalog.Settings{SceneFolders: []string{"Tests"}}
		writer = &collectingWriter{}
		store = savestore.NewMemoryStore()
	})

	newEngine := func(text string, opts ...testengine.EngineOpt) (*testengine.Engine, *orchestrator.Controller) {
		scenario := parse(text)
		opts = append([]testengine.EngineOpt{
			testengine.StoreOpt(store),
			testengine.SuiteWritersOpt(),
		}, opts...)
		engine := testengine.New(scenario, opts...)
		cat := catalog.Build(settings, scenario.SceneFiles(), nil)
		controller := engine.NewController(cat, orchestrator.Config{
			Writers: []report.Writer{writer},
		})
		return engine, controller
	}

	It("runs every test scene and reports the results", func() {
		engine, controller := newEngine(`
startScene: Entry
tickSeconds: 0.1
loadTicks: 1
scenes:
  - name: Mixed
    units:
      - name: Passes
        parameters: [a, b]
      - name: Fails
        behavior: fail
        afterTicks: 2
        message: broken
      - name: Skips
        behavior: skip
        message: not today
      - name: Hangs
        behavior: hang
        timeout: 0.25
      - name: Disabled
        skipReason: flaky
  - name: Empty
  - name: Elsewhere
    path: /Game/Other/Elsewhere
    units:
      - name: NeverRuns
`)

		code, err := engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(1))
		Expect(controller.State()).To(Equal(orchestrator.Finished))

		suites := controller.Results()
		Expect(suites).To(HaveLen(1))
		Expect(suites[0].Scene).To(Equal("Mixed"))
		Expect(outcomes(suites[0])).To(Equal([]string{
			"Passes[a]=passed",
			"Passes[b]=passed",
			"Fails=failed",
			"Skips=skipped",
			"Hangs=failed",
			"Disabled=skipped",
		}))
		Expect(suites[0].Tests[2].Message).To(Equal("broken"))
		Expect(suites[0].Tests[3].Message).To(Equal("not today"))
		Expect(suites[0].Tests[4].Message).To(Equal(suite.TimeoutMessage))
		Expect(suites[0].Tests[5].Message).To(Equal("flaky"))

		Expect(writer.calls).To(Equal(1))
		Expect(writer.suites).To(Equal(suites))
	})

	It("starts with the start scene when it is a test scene", func() {
		engine, controller := newEngine(`
startScene: First
scenes:
  - name: First
    units: [{name: Works}]
  - name: Second
    units: [{name: Works}]
`)

		code, err := engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(0))
		Expect(controller.Results()).To(HaveLen(2))
		Expect(controller.Results()[0].Scene).To(Equal("First"))
	})

	It("replays what it recorded", func() {
		engine, _ := newEngine(`
startScene: Entry
tickSeconds: 0.1
loadTicks: 1
scenes:
  - name: Drive
    record: Player` + driveEntities + `
    input:
      - {tick: 1, axis: MoveForward, value: 1}
      - {tick: 2, action: Jump}
      - {tick: 3, action: Jump, kind: released}
      - {tick: 5, axis: MoveForward, value: 0}
    units:
      - name: Drives
        afterTicks: 10
        expectPosition: {entity: Car, position: {x: 4}}
        expectActions: {Jump: 2}
`)
		code, err := engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(0))

		blob, err := store.Load(recording.SavePath("", "Drive", "Player"))
		Expect(err).NotTo(HaveOccurred())
		stream, err := codec.Unmarshal(blob)
		Expect(err).NotTo(HaveOccurred())
		Expect(stream.Actions).To(HaveLen(2))
		Expect(stream.Actions[0].Kind).To(Equal(recording.Pressed))
		Expect(stream.Actions[1].Kind).To(Equal(recording.Released))
		Expect(stream.Axes).To(HaveLen(2))
		Expect(stream.Axes[0].Value).To(Equal(float32(1)))
		Expect(stream.Axes[1].Value).To(Equal(float32(0)))
		Expect(stream.Actors).NotTo(BeEmpty())
		Expect(string(stream.Actors[0].Actor)).To(Equal("Drive_Car"))
		last := stream.Actors[len(stream.Actors)-1]
		Expect(last.Components[0].Position).To(Equal(recording.Vector{X: 4}))

		writer = &collectingWriter{}
		engine, controller := newEngine(`
startScene: Entry
tickSeconds: 0.1
loadTicks: 1
scenes:
  - name: Drive
    replay: Player` + driveEntities + `
    units:
      - name: Replays
        behavior: replay
        expectPosition: {entity: Car, position: {x: 4}}
        expectActions: {Jump: 2}
`)
		code, err = engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(outcomes(controller.Results()[0])).To(Equal([]string{"Replays=passed"}))
		Expect(code).To(Equal(0))
	})

	It("fails replay units in scenes without a replay", func() {
		engine, controller := newEngine(`
scenes:
  - name: Plain
    units: [{name: Replays, behavior: replay}]
`)
		code, err := engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(1))
		Expect(controller.Results()[0].Tests[0].Message).To(Equal("scene has no replay"))
	})

	It("enforces the expected errors of a scene", func() {
		settings.MetaData = map[string]catalog.MapMetaData{
			"Noisy": {ExpectedErrors: []catalog.ExpectedError{{Pattern: `boom \d+`, Occurrences: 1}}},
			"Quiet": {ExpectedErrors: []catalog.ExpectedError{{Pattern: "never"}}},
		}
		engine, controller := newEngine(`
scenes:
  - name: Noisy
    units: [{name: Logs, logError: boom 42}]
  - name: Quiet
    units: [{name: Quiet}]
`)
		code, err := engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(1))

		suites := controller.Results()
		Expect(outcomes(suites[0])).To(Equal([]string{"Logs=passed"}))
		Expect(outcomes(suites[1])).To(Equal([]string{"Quiet=passed", suite.ExpectedErrorsTest + "=failed"}))
		Expect(suites[1].Tests[1].Message).To(ContainSubstring(`"never"`))
	})

	It("enforces the expected errors of the start scene", func() {
		settings.MetaData = map[string]catalog.MapMetaData{
			"Noisy": {ExpectedErrors: []catalog.ExpectedError{{Pattern: `boom \d+`, Occurrences: 1}}},
			"Quiet": {ExpectedErrors: []catalog.ExpectedError{{Pattern: "never"}}},
		}
		engine, controller := newEngine(`
startScene: Quiet
scenes:
  - name: Quiet
    units: [{name: Quiet}]
`)
		code, err := engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(1))
		Expect(outcomes(controller.Results()[0])).To(Equal([]string{"Quiet=passed", suite.ExpectedErrorsTest + "=failed"}))

		engine, controller = newEngine(`
startScene: Noisy
scenes:
  - name: Noisy
    units: [{name: Logs, logError: boom 42}]
`)
		code, err = engine.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(code).To(Equal(0))
		Expect(outcomes(controller.Results()[0])).To(Equal([]string{"Logs=passed"}))
	})

	It("applies console variables", func() {
		engine, _ := newEngine(`
tickSeconds: 0.1
scenes:
  - name: Slow
    units: [{name: Works, afterTicks: 3}]
`)
		engine.SetConsoleVariable(testengine.DilationVariable, "2")
		engine.SetConsoleVariable("other", "x")
		Expect(engine.ConsoleVariables()).To(Equal(map[string]string{
			testengine.DilationVariable: "2",
			"other":                     "x",
		}))

		for engine.CurrentScene() != "Slow" {
			engine.Step()
		}
		world, ok := engine.World()
		Expect(ok).To(BeTrue())
		Expect(world.Clock().Dilation).To(Equal(float32(2)))
		Expect(world.UnpausedTime()).To(BeNumerically("~", 0.2, 1e-6))
	})

	It("ignores invalid time dilations", func() {
		engine, _ := newEngine("scenes: []\n")
		engine.SetConsoleVariable(testengine.DilationVariable, "fast")
		engine.SetConsoleVariable(testengine.DilationVariable, "-1")
		world, _ := engine.World()
		Expect(world.Clock().Dilation).To(Equal(float32(1)))
	})

	It("keeps unpaused time running while paused", func() {
		engine, _ := newEngine(`
startScene: Paused
tickSeconds: 0.1
scenes:
  - name: Paused
    pauseAt: 2
    resumeAt: 4
    entities:
      - name: Box
        velocity: {x: 10}
`)
		for i := 0; i < 5; i++ {
			engine.Step()
		}

		world, _ := engine.World()
		Expect(world.UnpausedTime()).To(BeNumerically("~", 0.5, 1e-5))
		Expect(world.Clock().GameTime()).To(BeNumerically("~", 0.3, 1e-5))
		box, ok := world.Entity("Box")
		Expect(ok).To(BeTrue())
		Expect(box.Position().X).To(BeNumerically("~", 3, 1e-4))
	})

	It("applies manglers to scripted input", func() {
		engine, _ := newEngine(`
startScene: Input
scenes:
  - name: Input
    actions: [Jump, Fire]
    input:
      - {tick: 1, action: Jump}
      - {tick: 1, action: Fire}
      - {tick: 2, action: Jump, kind: released}
`, testengine.ManglerOpt(testengine.For(testengine.MatchInput().OfAction("Jump")).Drop()))

		for i := 0; i < 3; i++ {
			engine.Step()
		}
		world, _ := engine.World()
		Expect(world.Input().Received("Jump")).To(Equal(0))
		Expect(world.Input().Received("Fire")).To(Equal(1))
	})

	It("loads unknown scenes as empty scenes", func() {
		engine := testengine.New(parse(`
loadTicks: 1
scenes:
  - name: Known
    units: [{name: Works}]
`))
		engine.LoadScene("Unknown")
		Expect(engine.CurrentScene()).To(BeEmpty())
		engine.Step()
		Expect(engine.CurrentScene()).To(Equal("Unknown"))
		_, ok := engine.FindSuite()
		Expect(ok).To(BeFalse())

		engine.LoadScene("Known")
		engine.Step()
		_, ok = engine.FindSuite()
		Expect(ok).To(BeTrue())
	})

	It("stops when the context is done", func() {
		engine, _ := newEngine(`
scenes:
  - name: Forever
    units: [{name: Hangs, behavior: hang}]
`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		code, err := engine.Run(ctx)
		Expect(code).To(Equal(1))
		Expect(err).To(MatchError(ContainSubstring("run interrupted")))
	})

	It("stops after the tick limit", func() {
		engine, _ := newEngine(`
maxTicks: 5
scenes:
  - name: Forever
    units: [{name: Hangs, behavior: hang}]
`)
		code, err := engine.Run(context.Background())
		Expect(code).To(Equal(1))
		Expect(err).To(MatchError("run did not finish within 5 ticks"))
		Expect(engine.Tick()).To(Equal(int64(5)))
	})

	It("reports the status of a stuck run", func() {
		engine, _ := newEngine(`
loadTicks: 1
scenes:
  - name: Forever
    units:
      - name: Passes
      - name: Hangs
        behavior: hang
`)
		for i := 0; i < 6; i++ {
			engine.Step()
		}

		status := engine.Status()
		Expect(status.Tick).To(Equal(int64(6)))
		Expect(status.Loaded).To(Equal("Forever"))
		Expect(status.Scenes).To(Equal(1))
		Expect(status.Running).NotTo(BeNil())
		Expect(status.Running.Total).To(Equal(2))
		Expect(status.Running.Done).To(HaveLen(1))
		Expect(status.Running.Test).To(Equal("Hangs"))
		Expect(status.Pretty()).To(ContainSubstring("|P|R| Forever (running)"))
	})

	It("refuses to run without a controller", func() {
		engine := testengine.New(parse("scenes: []\n"))
		_, err := engine.Run(context.Background())
		Expect(err).To(MatchError("engine has no controller"))
	})
})
