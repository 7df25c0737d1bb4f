//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2024 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package segdir

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// commitState is CommitEngine's two-phase state machine (spec §4.4):
//
//	IDLE --prepare--> PENDING --finish--> IDLE (advanced)
//	                      |
//	                      +--rollback--> IDLE (not advanced)
type commitState int

const (
	stateIdle commitState = iota
	statePending
)

// pendingCommit is the single in-flight output stream CommitEngine may
// hold at a time, scoped to one prepare...finish|rollback cycle.
type pendingCommit struct {
	fileName        string
	gen             int64
	output          Output
	cw              *checksumWriter
	sidecarsWritten []string
}

// CommitEngine performs the two-phase write of a new segments_N
// generation: prepare writes the framed manifest with its checksum not
// yet valid, finish finalizes and fsyncs it, rollback discards it without
// ever reusing its generation number (spec §4.4).
type CommitEngine struct {
	dir      Directory
	set      *segdirent.SegmentSet
	registry *segdirent.CodecRegistry
	codec    *ManifestCodec
	logger   logrus.FieldLogger
	metrics  *Metrics

	state   commitState
	pending *pendingCommit
}

// NewCommitEngine binds an engine to set and dir. The caller is
// responsible for ensuring at most one CommitEngine performs
// prepare...finish against a given directory at a time (spec §5).
func NewCommitEngine(dir Directory, set *segdirent.SegmentSet, registry *segdirent.CodecRegistry,
	logger logrus.FieldLogger, metrics *Metrics,
) *CommitEngine {
	if logger == nil {
		logger = discardFieldLogger()
	}
	return &CommitEngine{
		dir:      dir,
		set:      set,
		registry: registry,
		codec:    NewManifestCodec(registry),
		logger:   logger,
		metrics:  metrics,
		state:    stateIdle,
	}
}

// Prepare opens the next segments_N file, runs the one-time legacy
// sidecar upgrade pass, and writes the framed manifest payload without its
// trailing checksum, which Finish appends. Any reader
// that opens this file before Finish is called observes a checksum
// mismatch and retries (spec §4.4).
func (e *CommitEngine) Prepare() error {
	if e.state != stateIdle {
		return errors.Wrapf(segdirent.ErrIllegalState, "prepare called in state %d", e.state)
	}

	var nextGen int64
	if e.set.Generation == -1 {
		nextGen = 1
	} else {
		nextGen = e.set.Generation + 1
	}
	fileName := segdirent.ManifestFileName(nextGen)

	out, err := e.dir.CreateOutput(fileName)
	if err != nil {
		return errors.Wrapf(err, "create %s", fileName)
	}

	sidecars, err := upgradeLegacySidecars(e.dir, e.set)
	if err != nil {
		e.abortPartial(out, fileName, sidecars)
		return errors.Wrap(err, "legacy sidecar upgrade")
	}

	// Deferring the in-memory generation bump until the pending output
	// genuinely exists means a failure above leaves e.set.Generation
	// untouched, so a later retry recomputes the same nextGen (spec §4.4's
	// prepare-failure note).
	e.set.Generation = nextGen

	cw := newChecksumWriter(out)
	if err := e.codec.WriteCurrent(cw, e.set); err != nil {
		e.abortPartial(out, fileName, sidecars)
		return errors.Wrap(err, "write manifest payload")
	}

	e.pending = &pendingCommit{
		fileName:        fileName,
		gen:             nextGen,
		output:          out,
		cw:              cw,
		sidecarsWritten: sidecars,
	}
	e.state = statePending
	e.logger.WithField("action", "segdir_prepare").
		WithField("generation", nextGen).
		Debug("prepared new manifest generation")
	return nil
}

// Finish finalizes the checksum, closes and fsyncs the manifest, then
// best-effort writes the segments.gen hint. last_generation only advances
// once the manifest fsync has succeeded; a segments.gen write failure is
// tolerated and never fails the commit (spec §4.4, §4.5).
func (e *CommitEngine) Finish() error {
	if e.state != statePending {
		return errors.Wrapf(segdirent.ErrIllegalState, "finish called in state %d", e.state)
	}
	p := e.pending

	if err := p.cw.Finish(); err != nil {
		e.failPending(p)
		return errors.Wrap(err, "finalize checksum")
	}
	if err := p.output.Close(); err != nil {
		e.failPending(p)
		return errors.Wrap(err, "close manifest")
	}
	if err := e.dir.Sync([]string{p.fileName}); err != nil {
		_ = e.dir.DeleteFile(p.fileName)
		e.failPendingNoClose(p)
		return errors.Wrap(err, "fsync manifest")
	}

	// The manifest is now durable and reader-visible; everything from here
	// is best-effort.
	if err := writeSegmentsGen(e.dir, p.gen); err != nil {
		e.logger.WithField("action", "segdir_segments_gen").
			WithError(err).Warn("failed to write segments.gen hint, deleting it")
		_ = e.dir.DeleteFile(segdirent.SegmentsGenName)
	}

	e.set.LastGeneration = p.gen
	e.state = stateIdle
	e.pending = nil

	if e.metrics != nil {
		e.metrics.Commits.Inc()
		e.metrics.CurrentGen.Set(float64(p.gen))
	}
	e.logger.WithField("action", "segdir_commit").
		WithField("generation", p.gen).
		WithField("segments", e.set.String()).
		Info("committed new manifest generation")
	return nil
}

// Rollback abandons a pending prepare without ever reusing its
// generation number: the next Prepare call uses generation+1 again, never
// generation again (spec §4.4's write-once guarantee). Per-segment
// sidecars written during the legacy upgrade pass are left in place —
// they remain correct for whatever attempt writes this segment set next.
func (e *CommitEngine) Rollback() error {
	if e.state != statePending {
		return errors.Wrapf(segdirent.ErrIllegalState, "rollback called in state %d", e.state)
	}
	p := e.pending

	_ = p.output.Close()
	_ = e.dir.DeleteFile(p.fileName)

	e.state = stateIdle
	e.pending = nil
	if e.metrics != nil {
		e.metrics.Rollbacks.Inc()
	}
	e.logger.WithField("action", "segdir_rollback").
		WithField("generation", p.gen).
		Debug("rolled back pending manifest generation")
	return nil
}

// State reports whether the engine currently holds a pending commit.
func (e *CommitEngine) State() string {
	if e.state == statePending {
		return "PENDING"
	}
	return "IDLE"
}

// abortPartial is prepare's failure path: close the stream, delete the
// partial manifest and every sidecar created during this attempt, all
// suppressing their own errors, then the caller returns the original
// error (spec §4.2, §7).
func (e *CommitEngine) abortPartial(out Output, fileName string, sidecars []string) {
	_ = out.Close()
	_ = e.dir.DeleteFile(fileName)
	for _, s := range sidecars {
		_ = e.dir.DeleteFile(s)
	}
	if e.metrics != nil {
		e.metrics.CommitErrors.Inc()
	}
}

// failPending is finish's failure path when the stream may still be open.
func (e *CommitEngine) failPending(p *pendingCommit) {
	_ = p.output.Close()
	_ = e.dir.DeleteFile(p.fileName)
	for _, s := range p.sidecarsWritten {
		_ = e.dir.DeleteFile(s)
	}
	e.state = stateIdle
	e.pending = nil
	if e.metrics != nil {
		e.metrics.CommitErrors.Inc()
	}
}

// failPendingNoClose is like failPending but for the case where the
// stream has already been closed successfully and only the manifest file
// (already deleted by the caller) and sidecars remain to clean up.
func (e *CommitEngine) failPendingNoClose(p *pendingCommit) {
	for _, s := range p.sidecarsWritten {
		_ = e.dir.DeleteFile(s)
	}
	e.state = stateIdle
	e.pending = nil
	if e.metrics != nil {
		e.metrics.CommitErrors.Inc()
	}
}
