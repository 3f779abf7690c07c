/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// capcat is a utility for reviewing input capture recordings.  It
// understands the format encoded via github.com/tickharness/tickharness/pkg/codec
// and reads recordings from files or from a badger recording store,
// filtering them by stream and by name.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/tickharness/tickharness/pkg/codec"
	"github.com/tickharness/tickharness/pkg/recording"
	"github.com/tickharness/tickharness/pkg/savestore"
	"github.com/tickharness/tickharness/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// command line flags
var allStreams = []string{
	"actions",
	"axes",
	"actors",
}

// excludeByType is used both for --stream/--notStream and for --name.
// The assumption is that at least one of include or exclude is nil.
func excludeByType(value string, include []string, exclude []string) bool {
	if include != nil {
		for _, includeName := range include {
			if includeName == value {
				return false
			}
		}

		return true
	}

	for _, excludeName := range exclude {
		if excludeName == value {
			return true
		}
	}

	return false
}

type arguments struct {
	input      io.ReadCloser
	badgerDir  string
	key        string
	listKeys   bool
	streams    []string
	notStreams []string
	names      []string
	jsonOutput bool
	summary    bool
}

// record is one line of output.
type record struct {
	Index      int           `json:"index"`
	Stream     string        `json:"stream"`
	Time       types.Seconds `json:"time"`
	Name       string        `json:"name"`
	Kind       string        `json:"kind,omitempty"`
	Value      *float32      `json:"value,omitempty"`
	Transforms []transform   `json:"components,omitempty"`
}

type transform struct {
	Name     string           `json:"name"`
	Position recording.Vector `json:"position"`
	Rotation recording.Vector `json:"rotation"`
}

func (a *arguments) load() ([]byte, error) {
	if a.badgerDir == "" {
		defer a.input.Close()
		blob, err := io.ReadAll(a.input)
		return blob, errors.WithMessage(err, "failed reading input")
	}

	store, err := savestore.OpenBadger(a.badgerDir, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "could not open recording store")
	}
	defer store.Close()

	return store.Load(a.key)
}

func (a *arguments) records(stream *recording.Stream) []record {
	var records []record

	if !excludeByType("actions", a.streams, a.notStreams) {
		for i, e := range stream.Actions {
			records = append(records, record{Index: i, Stream: "actions", Time: e.Time, Name: string(e.Name), Kind: e.Kind.String()})
		}
	}

	if !excludeByType("axes", a.streams, a.notStreams) {
		for i, e := range stream.Axes {
			value := e.Value
			records = append(records, record{Index: i, Stream: "axes", Time: e.Time, Name: string(e.Name), Value: &value})
		}
	}

	if !excludeByType("actors", a.streams, a.notStreams) {
		for i, e := range stream.Actors {
			r := record{Index: i, Stream: "actors", Time: e.Time, Name: string(e.Actor)}
			for _, c := range e.Components {
				r.Transforms = append(r.Transforms, transform{Name: string(c.Name), Position: c.Position, Rotation: c.Rotation})
			}
			records = append(records, r)
		}
	}

	filtered := records[:0]
	for _, r := range records {
		if a.names == nil || !excludeByType(r.Name, a.names, nil) {
			filtered = append(filtered, r)
		}
	}

	// Streams interleave by time, ties keep the stream order.
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time < filtered[j].Time
	})
	return filtered
}

func textFormat(r record) string {
	switch r.Stream {
	case "actions":
		return fmt.Sprintf("action name=%s kind=%s", r.Name, r.Kind)
	case "axes":
		return fmt.Sprintf("axis name=%s value=%g", r.Name, *r.Value)
	default:
		text := fmt.Sprintf("actor name=%s", r.Name)
		for _, c := range r.Transforms {
			text += fmt.Sprintf(" [%s position=(%g,%g,%g) rotation=(%g,%g,%g)]", c.Name,
				c.Position.X, c.Position.Y, c.Position.Z, c.Rotation.X, c.Rotation.Y, c.Rotation.Z)
		}
		return text
	}
}

func (a *arguments) execute(output io.Writer) error {
	if a.listKeys {
		store, err := savestore.OpenBadger(a.badgerDir, nil)
		if err != nil {
			return errors.WithMessage(err, "could not open recording store")
		}
		defer store.Close()

		keys, err := store.Keys(a.key)
		if err != nil {
			return errors.WithMessage(err, "could not list recordings")
		}
		for _, key := range keys {
			fmt.Fprintln(output, key)
		}
		return nil
	}

	blob, err := a.load()
	if err != nil {
		return err
	}

	stream, err := codec.Unmarshal(blob)
	if err != nil {
		return errors.WithMessage(err, "bad input file")
	}

	if a.summary {
		fmt.Fprintf(output, "actions=%d axes=%d actors=%d\n", len(stream.Actions), len(stream.Axes), len(stream.Actors))
		return nil
	}

	for _, r := range a.records(stream) {
		if a.jsonOutput {
			line, err := json.Marshal(r)
			if err != nil {
				return errors.WithMessage(err, "could not marshal record")
			}
			fmt.Fprintf(output, "%s\n", line)
			continue
		}
		fmt.Fprintf(output, "% 6d %8.3f %s\n", r.Index, r.Time.Float32(), textFormat(r))
	}

	return nil
}

func parseArgs(args []string) (*arguments, error) {
	app := kingpin.New("capcat", "Utility for reviewing input capture recordings.")
	input := app.Flag("input", "The input file to read (defaults to stdin).").Default(os.Stdin.Name()).File()
	badgerDir := app.Flag("badger", "Read from the badger recording store in this directory instead of a file.").String()
	key := app.Flag("key", "The recording to read from the badger store, or the key prefix with --list.").String()
	listKeys := app.Flag("list", "List the recordings of the badger store.").Bool()
	streams := app.Flag("stream", "Which streams to report, may be repeated.").Enums(allStreams...)
	notStreams := app.Flag("notStream", "Which streams to exclude. (Cannot combine with --stream)").Enums(allStreams...)
	names := app.Flag("name", "Report actions, axes and actors of this name only, may be repeated.").Strings()
	jsonOutput := app.Flag("json", "Print one JSON object per line.").Bool()
	summary := app.Flag("summary", "Only print the number of entries per stream.").Bool()

	_, err := app.Parse(args)
	if err != nil {
		return nil, err
	}

	switch {
	case *streams != nil && *notStreams != nil:
		return nil, errors.Errorf("cannot set both --stream and --notStream")
	case *listKeys && *badgerDir == "":
		return nil, errors.Errorf("--list requires --badger")
	case *badgerDir != "" && !*listKeys && *key == "":
		return nil, errors.Errorf("--badger requires --key")
	}

	return &arguments{
		input:      *input,
		badgerDir:  *badgerDir,
		key:        *key,
		listKeys:   *listKeys,
		streams:    *streams,
		notStreams: *notStreams,
		names:      *names,
		jsonOutput: *jsonOutput,
		summary:    *summary,
	}, nil
}

func main() {
	kingpin.Version("0.0.1")
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		kingpin.Fatalf("%s, try --help", err)
	}
	if err := args.execute(os.Stdout); err != nil {
		kingpin.Fatalf("%s", err)
	}
}
