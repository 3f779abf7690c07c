/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package catalog enumerates test scenes and selects which of them run.
package catalog

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"

	"github.com/tickharness/tickharness/pkg/logging"
)

// Settings decide which discovered scenes are test scenes.
type Settings struct {
	// SceneFolders are folder names; a scene is a test scene if its path
	// contains "/<folder>/".
	SceneFolders []string

	// AdditionalScenes are test scenes by name, regardless of their folder.
	AdditionalScenes []string

	// IgnoredScenes are never test scenes.
	IgnoredScenes []string

	// MetaData is keyed by scene name.
	MetaData map[string]MapMetaData

	// ConsoleVariables are applied by the host before the first scene loads.
	ConsoleVariables map[string]string

	// DeprecatedSceneFolder is the single folder of older configurations.
	// Upgrade moves it to SceneFolders.
	DeprecatedSceneFolder string
}

// Upgrade migrates deprecated configuration values in place.
func (s *Settings) Upgrade(logger logging.Logger) {
	if s.DeprecatedSceneFolder == "" {
		return
	}

	folder := s.DeprecatedSceneFolder
	s.DeprecatedSceneFolder = ""
	if !contains(s.SceneFolders, folder) {
		s.SceneFolders = append(s.SceneFolders, folder)
	}

	logging.OrNil(logger).Log(logging.LevelWarn,
		"found deprecated single scene folder, moved it to the scene folders; review and save your settings",
		"folder", folder)
}

// IsTestScene checks whether the scene at filePath with the given name
// contains tests to run.
//
// Folder matching is substring containment of "/<folder>/" on the path, not
// a match against the folder root: "Tests" also selects scenes below
// "/Content/Archive/Tests/".
func (s *Settings) IsTestScene(filePath, name string) bool {
	isTestScene := false
	for _, folder := range s.SceneFolders {
		pattern := fmt.Sprintf("/%s/", folder)
		isTestScene = isTestScene || strings.Contains(filePath, pattern)
	}

	isTestScene = isTestScene || contains(s.AdditionalScenes, name)
	return isTestScene && !contains(s.IgnoredScenes, name)
}

// MetaDataFor returns the metadata of a scene, defaulting to no tags and
// PriorityDefault.
func (s *Settings) MetaDataFor(name string) MapMetaData {
	if md, ok := s.MetaData[BaseName(name)]; ok {
		return md
	}
	return MapMetaData{Priority: PriorityDefault}
}

// SceneFile is a discovered scene asset.
type SceneFile struct {
	Path string
	Name string
}

// SceneDescriptor is an immutable test scene entry.
type SceneDescriptor struct {
	Name     string
	Path     string
	MetaData MapMetaData
}

// Catalog is the ordered set of test scenes.
type Catalog struct {
	scenes []SceneDescriptor
	index  map[string]int
}

// Build creates a catalog from discovered scene files, keeping discovery order.
// Files that are not test scenes and repeated names are left out.
func Build(settings *Settings, files []SceneFile, logger logging.Logger) *Catalog {
	logger = logging.OrNil(logger)
	for _, folder := range settings.SceneFolders {
		logger.Log(logging.LevelInfo, "discovering tests", "folder", folder)
	}

	c := &Catalog{
		index: map[string]int{},
	}

	for _, file := range files {
		name := file.Name
		if name == "" {
			name = BaseName(file.Path)
		}

		if !settings.IsTestScene(file.Path, name) {
			continue
		}

		if _, ok := c.index[name]; ok {
			logger.Log(logging.LevelWarn, "duplicate scene name, keeping the first", "scene", name, "path", file.Path)
			continue
		}

		c.index[name] = len(c.scenes)
		c.scenes = append(c.scenes, SceneDescriptor{
			Name:     name,
			Path:     file.Path,
			MetaData: settings.MetaDataFor(name),
		})
		logger.Log(logging.LevelInfo, "discovered test", "scene", name)
	}

	return c
}

// New creates a catalog from descriptors that were already selected as test scenes.
func New(scenes ...SceneDescriptor) *Catalog {
	c := &Catalog{
		index: map[string]int{},
	}
	for _, scene := range scenes {
		c.index[scene.Name] = len(c.scenes)
		c.scenes = append(c.scenes, scene)
	}
	return c
}

// Len returns the number of scenes.
func (c *Catalog) Len() int {
	return len(c.scenes)
}

// At returns the scene at index i.
func (c *Catalog) At(i int) SceneDescriptor {
	return c.scenes[i]
}

// Valid checks whether i is the index of a scene.
func (c *Catalog) Valid(i int) bool {
	return i >= 0 && i < len(c.scenes)
}

// IndexOf returns the index of the named scene, or -1.
func (c *Catalog) IndexOf(name string) int {
	if i, ok := c.index[name]; ok {
		return i
	}
	return -1
}

// Contains checks whether the named scene is a catalog member.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Scenes returns a copy of all scenes in catalog order.
func (c *Catalog) Scenes() []SceneDescriptor {
	scenes := make([]SceneDescriptor, len(c.scenes))
	copy(scenes, c.scenes)
	return scenes
}

// Discover walks fsys below root and returns every file with the given
// extension, in lexical order. Paths are rooted with a leading slash so that
// folder patterns match at the top level too.
func Discover(fsys fs.FS, root, ext string) ([]SceneFile, error) {
	var files []SceneFile
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ext {
			return nil
		}
		files = append(files, SceneFile{
			Path: "/" + strings.TrimPrefix(p, "/"),
			Name: BaseName(p),
		})
		return nil
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "could not discover scenes below %q", root)
	}
	return files, nil
}

// BaseName strips directories and the extension from a scene path or name.
func BaseName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
