// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package checker

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/schema"
)

type Options struct {
	Threshold int
	Workers   int
}

// Run validates every record against the model and builds the report.
// Records are decoded data rows; anything that is not an object becomes a MalformedRow violation.
func Run(model *schema.Model, records []any, opts Options) Report {
	start := time.Now()
	validator := NewValidator(model)
	results := make([]RowResult, len(records))

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}

	var tracker *Tracker
	if workers <= 1 {
		tracker = NewTracker(model)
		for i, rec := range records {
			results[i] = validator.EvaluateRecord(i, rec)
			tracker.Record(results[i])
		}
	} else {
		trackers := make([]*Tracker, workers)
		chunk := (len(records) + workers - 1) / workers
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			w := w
			trackers[w] = NewTracker(model)
			from := w * chunk
			to := from + chunk
			if to > len(records) {
				to = len(records)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := from; i < to; i++ {
					results[i] = validator.EvaluateRecord(i, records[i])
					trackers[w].Record(results[i])
				}
			}()
		}
		wg.Wait()
		tracker = trackers[0]
		for _, t := range trackers[1:] {
			tracker.Merge(t)
		}
	}

	report := BuildReport(results, tracker.Entries(), opts.Threshold)
	log.Debugf("Validated %d rows against %d constraints with %d worker(s) in %d ms",
		len(records), model.Len(), workers, time.Since(start).Milliseconds())
	return report
}
