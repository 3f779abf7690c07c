/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package catalog

// Filter selects scenes from a run configuration.
type Filter struct {
	// SingleName, when set, selects exactly the scene of that name and
	// disables the tag and priority filters.
	SingleName string

	// Tags selects scenes having at least one of the tags.
	Tags []string

	// MinPriority selects scenes of at least this priority, if HasPriority.
	MinPriority Priority
	HasPriority bool
}

// NewFilter builds a filter from command line style strings. Empty strings
// disable the respective filter.
func NewFilter(singleName, tags, priority string) Filter {
	f := Filter{
		SingleName: singleName,
		Tags:       ParseTags(tags),
	}
	if priority != "" {
		f.MinPriority = ParsePriority(priority)
		f.HasPriority = true
	}
	return f
}

// Advance moves the cursor to the next selected scene. It increments cursor
// and then skips scenes:
//
//   - with a single name, until the scene of that name;
//   - otherwise first until a scene having a required tag, then, from there,
//     until a scene of at least the required priority.
//
// The tag filter always runs before the priority filter, so the priority
// filter may stop on a scene lacking the required tags. This keeps the
// selection reproducible with earlier runs.
//
// The returned index is not Valid once the catalog is exhausted.
func (c *Catalog) Advance(cursor int, f Filter) int {
	cursor++

	if f.SingleName != "" {
		for c.Valid(cursor) && c.scenes[cursor].Name != f.SingleName {
			cursor++
		}
		return cursor
	}

	if len(f.Tags) > 0 {
		for c.Valid(cursor) && !c.scenes[cursor].MetaData.HasAnyTag(f.Tags) {
			cursor++
		}
	}

	if f.HasPriority {
		for c.Valid(cursor) && c.scenes[cursor].MetaData.Priority < f.MinPriority {
			cursor++
		}
	}

	return cursor
}

// Select returns every scene the filter would run, in order.
func (c *Catalog) Select(f Filter) []SceneDescriptor {
	var selected []SceneDescriptor
	for i := c.Advance(-1, f); c.Valid(i); i = c.Advance(i, f) {
		selected = append(selected, c.scenes[i])
	}
	return selected
}
