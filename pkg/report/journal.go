/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/wal"

	"github.com/tickharness/tickharness/pkg/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type journalEntry struct {
	RunID string              `json:"run_id"`
	Suite results.SuiteResult `json:"suite"`
}

// Journal is an append only log of suite results across runs.  Each entry
// carries the identifier of the run which produced it, so the results of a
// previous run can be rendered again later.
type Journal struct {
	mutex     sync.Mutex
	runID     string
	nextIndex uint64
	written   int
	log       *wal.Log
}

// OpenJournal opens or creates the journal in dir.  Results written through
// the returned journal are tagged with runID.
func OpenJournal(dir, runID string) (*Journal, error) {
	log, err := wal.Open(dir, &wal.Options{
		NoSync: true,
		NoCopy: true,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "could not open journal")
	}

	lastIndex, err := log.LastIndex()
	if err != nil {
		log.Close()
		return nil, errors.WithMessage(err, "could not read last index")
	}

	return &Journal{
		runID:     runID,
		nextIndex: lastIndex + 1,
		log:       log,
	}, nil
}

func (j *Journal) RunID() string {
	return j.runID
}

// WriteReport appends the suites which were not yet journaled.  The writer
// is handed the full result list on every call, so only the tail beyond what
// was previously written is appended.
func (j *Journal) WriteReport(suites []results.SuiteResult, _ string) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	if j.written > len(suites) {
		j.written = 0
	}

	for _, suite := range suites[j.written:] {
		data, err := json.Marshal(&journalEntry{RunID: j.runID, Suite: suite})
		if err != nil {
			return errors.WithMessagef(err, "could not encode results of %s", suite.Scene)
		}

		if err := j.log.Write(j.nextIndex, data); err != nil {
			return errors.WithMessagef(err, "could not append entry %d", j.nextIndex)
		}
		j.nextIndex++
		j.written++
	}

	return errors.WithMessage(j.log.Sync(), "could not sync journal")
}

// LoadAll visits every journaled suite in append order.
func (j *Journal) LoadAll(forEach func(runID string, suite results.SuiteResult)) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	firstIndex, err := j.log.FirstIndex()
	if err != nil {
		return errors.WithMessage(err, "could not read first index")
	}

	if firstIndex == 0 {
		return nil
	}

	for i := firstIndex; i < j.nextIndex; i++ {
		data, err := j.log.Read(i)
		if err != nil {
			return errors.WithMessagef(err, "could not read index %d", i)
		}

		entry := &journalEntry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return errors.WithMessagef(err, "could not decode index %d, is the journal corrupt?", i)
		}

		forEach(entry.RunID, entry.Suite)
	}

	return nil
}

// Run returns the suites of a single run.  An empty runID selects the run
// which was journaled last.
func (j *Journal) Run(runID string) (string, []results.SuiteResult, error) {
	var last string
	byRun := map[string][]results.SuiteResult{}
	err := j.LoadAll(func(id string, suite results.SuiteResult) {
		last = id
		byRun[id] = append(byRun[id], suite)
	})
	if err != nil {
		return "", nil, err
	}

	if runID == "" {
		runID = last
	}

	return runID, byRun[runID], nil
}

func (j *Journal) Close() error {
	return j.log.Close()
}
