// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"log"
	"time"

	"github.com/orca-svg/Sidera-project-sub000/internal/graph"
	"github.com/orca-svg/Sidera-project-sub000/internal/snapshot"
)

// Scheduler periodically replays every project graph so that incremental
// ratings converge back to the full-population values, then snapshots the
// result. Locked projects are skipped and retried on the next tick.
type Scheduler struct {
	recomputer *graph.Recomputer
	exporter   *snapshot.Exporter
	interval   time.Duration
	stopChan   chan bool
}

// NewScheduler creates a new scheduler. The exporter may be nil to
// disable snapshotting after reconciliation.
func NewScheduler(recomputer *graph.Recomputer, exporter *snapshot.Exporter, intervalMinutes int) *Scheduler {
	return &Scheduler{
		recomputer: recomputer,
		exporter:   exporter,
		interval:   time.Duration(intervalMinutes) * time.Minute,
		stopChan:   make(chan bool),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopChan <- true
}

// RunOnce performs a single reconciliation pass
func (s *Scheduler) RunOnce() {
	results, err := s.recomputer.RebuildAll()
	if err != nil {
		log.Printf("scheduled rebuild incomplete: %v", err)
	}

	var turns, edges int
	for _, result := range results {
		turns += result.TurnsProcessed
		edges += result.EdgesCreated
	}
	log.Printf("scheduled rebuild: %d projects, %d turns, %d edges", len(results), turns, edges)

	if s.exporter != nil {
		if _, err := s.exporter.ExportAll(); err != nil {
			log.Printf("scheduled snapshot failed: %v", err)
		}
	}
}
