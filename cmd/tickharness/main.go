/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// tickharness runs the test scenes of a simulated application, lists which
// scenes a run would select, and rebuilds JUnit reports from the result
// journal of earlier runs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/tickharness/tickharness"
	"github.com/tickharness/tickharness/pkg/config"
	"github.com/tickharness/tickharness/pkg/report"
	"github.com/tickharness/tickharness/pkg/results"
)

type command int

const (
	runCommand command = iota
	listCommand
	reportCommand
)

type arguments struct {
	command command

	settingsPath string
	scenarioPath string
	runID        string
	run          config.RunConfig

	journalDir string
	junitPath  string
}

type runFlags struct {
	testName        *string
	testTags        *string
	testPriority    *string
	reportPath      *string
	junitReportPath *string
}

func addRunFlags(cmd *kingpin.CmdClause) *runFlags {
	return &runFlags{
		testName:        cmd.Flag("test-name", "Run only the scene of this name. Overrides "+config.EnvPrefix+"TEST_NAME.").String(),
		testTags:        cmd.Flag("test-tags", "Run scenes having any of these tags, separated by ';'.").String(),
		testPriority:    cmd.Flag("test-priority", "Run scenes of at least this priority (Low, Medium, High, Critical).").String(),
		reportPath:      cmd.Flag("report-path", "Directory the suite reports are written to.").String(),
		junitReportPath: cmd.Flag("junit-report-path", "File the JUnit report of the whole run is written to.").String(),
	}
}

// apply overrides the environment with the flags given.
func (rf *runFlags) apply(rc *config.RunConfig) {
	override := func(dst *string, src *string) {
		if *src != "" {
			*dst = *src
		}
	}
	override(&rc.TestName, rf.testName)
	override(&rc.TestTags, rf.testTags)
	override(&rc.TestPriority, rf.testPriority)
	override(&rc.ReportPath, rf.reportPath)
	override(&rc.JUnitReportPath, rf.junitReportPath)
}

func parseArgs(args []string, environ map[string]string) (*arguments, error) {
	app := kingpin.New("tickharness", "Runs scene based tests of a simulated tick driven application.")

	run := app.Command("run", "Run the selected test scenes.").Default()
	runSettings := run.Flag("settings", "The settings file.").String()
	runScenario := run.Flag("scenario", "The scenario describing the application.").Required().String()
	runID := run.Flag("run-id", "Identifies the run in the result journal.").String()
	runRunFlags := addRunFlags(run)

	list := app.Command("list", "List the test scenes a run would select.")
	listSettings := list.Flag("settings", "The settings file.").String()
	listScenario := list.Flag("scenario", "The scenario describing the application.").Required().String()
	listRunFlags := addRunFlags(list)

	rep := app.Command("report", "Write the JUnit report of a run from the result journal.")
	journalDir := rep.Flag("journal", "The journal directory.").Required().String()
	reportRunID := rep.Flag("run-id", "The run to report, the last run by default.").String()
	junitPath := rep.Flag("output", "The JUnit file to write.").Default(report.DefaultJUnitFile).String()

	selected, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	rc, err := config.RunConfigFromEnv(environ)
	if err != nil {
		return nil, err
	}

	switch selected {
	case run.FullCommand():
		runRunFlags.apply(&rc)
		return &arguments{
			command:      runCommand,
			settingsPath: *runSettings,
			scenarioPath: *runScenario,
			runID:        *runID,
			run:          rc,
		}, nil
	case list.FullCommand():
		listRunFlags.apply(&rc)
		return &arguments{
			command:      listCommand,
			settingsPath: *listSettings,
			scenarioPath: *listScenario,
			run:          rc,
		}, nil
	case rep.FullCommand():
		return &arguments{
			command:    reportCommand,
			journalDir: *journalDir,
			runID:      *reportRunID,
			junitPath:  *junitPath,
		}, nil
	default:
		return nil, errors.Errorf("unknown command %q", selected)
	}
}

func (a *arguments) options(console io.Writer) tickharness.Options {
	return tickharness.Options{
		SettingsPath: a.settingsPath,
		ScenarioPath: a.scenarioPath,
		Run:          a.run,
		RunID:        a.runID,
		Console:      console,
	}
}

// execute returns the exit code of the process.
func (a *arguments) execute(ctx context.Context, output, console io.Writer) (int, error) {
	switch a.command {
	case listCommand:
		scenes, err := tickharness.Select(a.options(console))
		if err != nil {
			return 1, err
		}
		for _, scene := range scenes {
			fmt.Fprintf(output, "%s\t%s\t%s\t%s\n", scene.Name, scene.Path, scene.MetaData.Priority,
				strings.Join(scene.MetaData.Tags, ";"))
		}
		return 0, nil
	case reportCommand:
		return a.report(output)
	default:
		return tickharness.Run(ctx, a.options(console))
	}
}

func (a *arguments) report(output io.Writer) (int, error) {
	journal, err := report.OpenJournal(a.journalDir, "")
	if err != nil {
		return 1, err
	}
	defer journal.Close()

	runID, suites, err := journal.Run(a.runID)
	if err != nil {
		return 1, err
	}
	if runID == "" {
		return 1, errors.Errorf("journal %s holds no runs", a.journalDir)
	}
	if len(suites) == 0 {
		return 1, errors.Errorf("journal %s holds no results of run %s", a.journalDir, runID)
	}

	writer := &report.JUnitWriter{Path: a.junitPath, Name: runID}
	if err := writer.WriteReport(suites, ""); err != nil {
		return 1, err
	}

	summary := results.Summarize(suites)
	fmt.Fprintf(output, "run %s: %d suites, %d tests, %d failed, %d skipped\n",
		runID, summary.Suites, summary.Tests, summary.Failed, summary.Skipped)
	return results.ExitCode(suites), nil
}

func main() {
	kingpin.Version("0.0.1")
	args, err := parseArgs(os.Args[1:], nil)
	if err != nil {
		kingpin.Fatalf("%s, try --help", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code, err := args.execute(ctx, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tickharness: %s\n", err)
	}
	os.Exit(code)
}
