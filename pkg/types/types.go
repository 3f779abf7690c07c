/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package types

import "fmt"

// ================================================================================

// ParamID identifies a test parameter held in an externally owned parameter pool.
// Test units never keep a reference to the parameter itself, only its ID.
type ParamID string

// NoParam is the parameter of units that do not declare any parameters.
const NoParam ParamID = ""

// IsNone returns true for the empty parameter.
func (p ParamID) IsNone() bool {
	return p == NoParam
}

// String returns the parameter ID as used in test names and reports.
func (p ParamID) String() string {
	return string(p)
}

// ParamIDSlice converts a slice of strings to a slice of ParamIDs.
func ParamIDSlice(ids []string) []ParamID {
	params := make([]ParamID, len(ids))
	for i, id := range ids {
		params[i] = ParamID(id)
	}
	return params
}

// ================================================================================

// Seconds is a simulation time span or timestamp.
// Timestamps count from world start, continue while the world is paused,
// and are affected by time dilation.
type Seconds float32

// Float32 converts Seconds to its underlying native type.
// This is required for the fixed-width encoding of recordings.
func (s Seconds) Float32() float32 {
	return float32(s)
}

func (s Seconds) String() string {
	return fmt.Sprintf("%.3fs", float32(s))
}
