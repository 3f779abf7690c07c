/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package catalog

import (
	"strings"
)

// Priority of a test scene.
type Priority uint8

const (
	// PriorityLow is for minor content bugs, string errors etc.
	PriorityLow Priority = 0
	// PriorityMedium is for minor feature functionality and major generic content issues.
	PriorityMedium Priority = 1
	// PriorityHigh is for major feature functionality.
	PriorityHigh Priority = 2
	// PriorityCritical is a showstopper or blocker.
	PriorityCritical Priority = 3

	PriorityDefault = PriorityMedium
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ParsePriority converts a command line priority to a Priority.
// The words Critical, High, Medium and Low are matched case-insensitively as
// substrings, in that order, and the digits 3, 2, 1 and 0 exactly.
// Anything else yields PriorityDefault.
func ParsePriority(s string) Priority {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "critical") || s == "3":
		return PriorityCritical
	case strings.Contains(lower, "high") || s == "2":
		return PriorityHigh
	case strings.Contains(lower, "medium") || s == "1":
		return PriorityMedium
	case strings.Contains(lower, "low") || s == "0":
		return PriorityLow
	default:
		return PriorityDefault
	}
}

// ParseTags splits a semicolon separated tag list, dropping empty entries.
func ParseTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ";") {
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// ExpectedError is a pattern a scene expects to see in warning or error logs
// while its tests run.
type ExpectedError struct {
	// Pattern is a regular expression matched against log messages.
	Pattern string

	// Occurrences is how often the pattern must be seen. If > 0, the pattern
	// must be seen exactly this many times, otherwise at least once.
	Occurrences int
}

// MapMetaData is stored in configuration so that tests can be selected without
// loading their scene.
type MapMetaData struct {
	// Tags select the scene when any of them is required on the command line.
	Tags []string

	// Priority selects the scene when it is at least the required priority.
	Priority Priority

	// ExpectedErrors are enforced by the suite runner of the scene.
	ExpectedErrors []ExpectedError
}

// HasAnyTag returns true if at least one of the scene's tags is required.
func (m MapMetaData) HasAnyTag(required []string) bool {
	for _, tag := range m.Tags {
		for _, req := range required {
			if tag == req {
				return true
			}
		}
	}
	return false
}
