/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package testengine

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/tickharness/tickharness/pkg/catalog"
	"github.com/tickharness/tickharness/pkg/recording"
)

const (
	DefaultTickSeconds = float32(1) / 30
	DefaultLoadTicks   = 2
	DefaultMaxTicks    = 100000
)

// Unit behaviors.
const (
	BehaviorPass = "pass"
	BehaviorFail = "fail"
	BehaviorSkip = "skip"
	BehaviorHang = "hang"

	// BehaviorReplay finishes once the replay of the scene is done.
	BehaviorReplay = "replay"
)

// Scenario describes the simulated application: its scenes and what
// happens in them.
type Scenario struct {
	// StartScene is loaded before the run starts.  It need not be a test
	// scene.
	StartScene string `yaml:"startScene"`

	TickSeconds float32 `yaml:"tickSeconds"`

	// LoadTicks is how many ticks a scene load takes.
	LoadTicks int64 `yaml:"loadTicks"`

	// MaxTicks bounds a run.
	MaxTicks int64 `yaml:"maxTicks"`

	// Seed feeds the manglers.
	Seed int64 `yaml:"seed"`

	Scenes []SceneDef `yaml:"scenes"`
}

type SceneDef struct {
	Name string `yaml:"name"`

	// Path is the asset path, defaulting to /Game/Tests/<name>.
	Path string `yaml:"path"`

	// Dilation scales the time of the world, defaulting to 1.
	Dilation float32 `yaml:"dilation"`

	// PauseAt and ResumeAt are ticks after the scene finished loading,
	// pausing is disabled when PauseAt is zero.
	PauseAt  int64 `yaml:"pauseAt"`
	ResumeAt int64 `yaml:"resumeAt"`

	// NoPlayer scenes have no player input to record.
	NoPlayer bool `yaml:"noPlayer"`

	Actions  []string    `yaml:"actions"`
	Axes     []string    `yaml:"axes"`
	Entities []EntityDef `yaml:"entities"`
	Input    []InputDef  `yaml:"input"`

	// Record and Replay name the owner whose input is recorded or replayed
	// while the scene is loaded.
	Record string `yaml:"record"`
	Replay string `yaml:"replay"`

	Units []UnitDef `yaml:"units"`
}

type EntityDef struct {
	Name   string `yaml:"name"`
	Placed bool   `yaml:"placed"`

	Position recording.Vector `yaml:"position"`
	Rotation recording.Vector `yaml:"rotation"`

	// Velocity is in units and Spin in degrees per second.
	Velocity recording.Vector `yaml:"velocity"`
	Spin     recording.Vector `yaml:"spin"`

	// Axis drives the entity along X with Speed times the axis value.
	Axis  string  `yaml:"axis"`
	Speed float32 `yaml:"speed"`

	Components []ComponentDef `yaml:"components"`
}

type ComponentDef struct {
	Name string `yaml:"name"`

	// Unregistered components are never recorded nor replayed.
	Unregistered bool `yaml:"unregistered"`
}

// InputDef is scripted player input, Tick counts from the end of the scene
// load.  Either Action or Axis is set.
type InputDef struct {
	Tick   int64   `yaml:"tick"`
	Action string  `yaml:"action"`
	Kind   string  `yaml:"kind"`
	Axis   string  `yaml:"axis"`
	Value  float32 `yaml:"value"`
}

type UnitDef struct {
	Name     string `yaml:"name"`
	Behavior string `yaml:"behavior"`

	// AfterTicks delays the end of Act.
	AfterTicks int64  `yaml:"afterTicks"`
	Message    string `yaml:"message"`

	Timeout    float32  `yaml:"timeout"`
	Parameters []string `yaml:"parameters"`
	SkipReason string   `yaml:"skipReason"`

	// LogError is logged as an error while acting.
	LogError string `yaml:"logError"`

	ExpectPosition *ExpectPosition `yaml:"expectPosition"`
	ExpectActions  map[string]int  `yaml:"expectActions"`
}

type ExpectPosition struct {
	Entity    string           `yaml:"entity"`
	Position  recording.Vector `yaml:"position"`
	Tolerance float32          `yaml:"tolerance"`
}

func ParseScenario(r io.Reader) (*Scenario, error) {
	s := &Scenario{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && err != io.EOF {
		return nil, errors.WithMessage(err, "could not decode scenario")
	}

	s.setDefaults()
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open scenario")
	}
	defer f.Close()

	s, err := ParseScenario(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "in %s", path)
	}
	return s, nil
}

func (s *Scenario) setDefaults() {
	if s.TickSeconds <= 0 {
		s.TickSeconds = DefaultTickSeconds
	}
	if s.LoadTicks <= 0 {
		s.LoadTicks = DefaultLoadTicks
	}
	if s.MaxTicks <= 0 {
		s.MaxTicks = DefaultMaxTicks
	}
	for i := range s.Scenes {
		scene := &s.Scenes[i]
		if scene.Path == "" {
			scene.Path = "/Game/Tests/" + scene.Name
		}
		if scene.Dilation <= 0 {
			scene.Dilation = 1
		}
		for j := range scene.Units {
			if scene.Units[j].Behavior == "" {
				scene.Units[j].Behavior = BehaviorPass
			}
		}
	}
}

func (s *Scenario) validate() error {
	seen := map[string]struct{}{}
	for _, scene := range s.Scenes {
		if scene.Name == "" {
			return errors.Errorf("scene with path %q has no name", scene.Path)
		}
		if _, ok := seen[scene.Name]; ok {
			return errors.Errorf("duplicate scene %q", scene.Name)
		}
		seen[scene.Name] = struct{}{}

		for _, unit := range scene.Units {
			switch unit.Behavior {
			case BehaviorPass, BehaviorFail, BehaviorSkip, BehaviorHang, BehaviorReplay:
			default:
				return errors.Errorf("scene %q: unit %q has unknown behavior %q", scene.Name, unit.Name, unit.Behavior)
			}
		}

		for i, input := range scene.Input {
			if (input.Action == "") == (input.Axis == "") {
				return errors.Errorf("scene %q: input %d needs exactly one of action and axis", scene.Name, i)
			}
			if input.Action != "" {
				if _, err := ParseInputEventKind(input.Kind); err != nil {
					return errors.WithMessagef(err, "scene %q: input %d", scene.Name, i)
				}
			}
		}
	}
	return nil
}

// Scene returns the scene of the given name.
func (s *Scenario) Scene(name string) (*SceneDef, bool) {
	for i := range s.Scenes {
		if s.Scenes[i].Name == name {
			return &s.Scenes[i], true
		}
	}
	return nil, false
}

// SceneFiles lists the scenes the way asset discovery finds them.
func (s *Scenario) SceneFiles() []catalog.SceneFile {
	files := make([]catalog.SceneFile, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		files = append(files, catalog.SceneFile{
			Path: scene.Path,
			Name: scene.Name,
		})
	}
	return files
}

// ParseInputEventKind accepts the names of InputEventKind.String, an empty
// string is Pressed.
func ParseInputEventKind(s string) (recording.InputEventKind, error) {
	switch strings.ToLower(s) {
	case "", "pressed":
		return recording.Pressed, nil
	case "released":
		return recording.Released, nil
	case "repeat":
		return recording.Repeat, nil
	case "double-click":
		return recording.DoubleClick, nil
	case "axis":
		return recording.Axis, nil
	default:
		return 0, errors.Errorf("unknown input event kind %q", s)
	}
}
