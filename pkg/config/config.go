/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the settings file and the per run configuration.
// Both are read once and handed around as immutable values.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/logging"
)

// Recording stores.
const (
	StoreFile   = "file"
	StoreBadger = "badger"
	StoreMemory = "memory"
)

type ExpectedError struct {
	Pattern     string `yaml:"pattern"`
	Occurrences int    `yaml:"occurrences"` // 0 means at least once
}

type MetaData struct {
	Tags           []string        `yaml:"tags"`
	Priority       string          `yaml:"priority"` // critical, high, medium, low or 3..0
	ExpectedErrors []ExpectedError `yaml:"expectedErrors"`
}

// Settings is the content of the settings file.
type Settings struct {
	SceneFolders     []string            `yaml:"sceneFolders"`     // scenes below "/<folder>/" are test scenes
	AdditionalScenes []string            `yaml:"additionalScenes"` // test scenes by name
	IgnoredScenes    []string            `yaml:"ignoredScenes"`    // never test scenes
	ScenePath        string              `yaml:"scenePath"`        // deprecated, single scene folder
	MetaData         map[string]MetaData `yaml:"metaData"`         // keyed by scene name
	ConsoleVariables map[string]string   `yaml:"consoleVariables"`

	// ContentDir is searched for further scene files with SceneExtension.
	ContentDir     string `yaml:"contentDir"`
	SceneExtension string `yaml:"sceneExtension"`

	RecordingsRoot string `yaml:"recordingsRoot"` // captures live below <root>/RecordedTestData
	RecordingStore string `yaml:"recordingStore"` // file, badger or memory
	BadgerDir      string `yaml:"badgerDir"`      // empty keeps the badger store in memory

	JournalDir string `yaml:"journalDir"` // empty disables the result journal

	Logging logging.Options `yaml:"logging"`
}

// Default returns the settings used for everything the file leaves out.
func Default() *Settings {
	return &Settings{
		SceneFolders:   []string{"Tests"},
		RecordingsRoot: "Saved/Automation",
		RecordingStore: StoreFile,
		SceneExtension: ".umap",
		Logging: logging.Options{
			Level:  "info",
			Format: "console",
		},
	}
}

// Parse decodes a settings document over the defaults.  Unknown keys are
// rejected.
func Parse(r io.Reader) (*Settings, error) {
	settings := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(settings); err != nil && err != io.EOF {
		return nil, errors.WithMessage(err, "could not decode settings")
	}

	switch settings.RecordingStore {
	case StoreFile, StoreBadger, StoreMemory:
	default:
		return nil, errors.Errorf("unknown recording store %q", settings.RecordingStore)
	}

	return settings, nil
}

// Load reads the settings file at path.  An empty path yields the defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "could not read settings file %s", path)
	}

	settings, err := Parse(bytes.NewReader(data))
	return settings, errors.WithMessage(err, path)
}

// Catalog converts the settings into catalog settings, with deprecated
// values upgraded.
func (s *Settings) Catalog(logger logging.Logger) *catalog.Settings {
	cs := &catalog.Settings{
		SceneFolders:          append([]string(nil), s.SceneFolders...),
		AdditionalScenes:      append([]string(nil), s.AdditionalScenes...),
		IgnoredScenes:         append([]string(nil), s.IgnoredScenes...),
		MetaData:              map[string]catalog.MapMetaData{},
		ConsoleVariables:      map[string]string{},
		DeprecatedSceneFolder: s.ScenePath,
	}

	for name, md := range s.MetaData {
		priority := catalog.PriorityDefault
		if md.Priority != "" {
			priority = catalog.ParsePriority(md.Priority)
		}

		converted := catalog.MapMetaData{
			Tags:     append([]string(nil), md.Tags...),
			Priority: priority,
		}
		for _, e := range md.ExpectedErrors {
			converted.ExpectedErrors = append(converted.ExpectedErrors, catalog.ExpectedError{
				Pattern:     e.Pattern,
				Occurrences: e.Occurrences,
			})
		}
		cs.MetaData[name] = converted
	}

	for k, v := range s.ConsoleVariables {
		cs.ConsoleVariables[k] = v
	}

	cs.Upgrade(logger)
	return cs
}
