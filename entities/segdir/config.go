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
	"io"

	"github.com/sirupsen/logrus"
)

var discardLogger logrus.FieldLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

// DefaultGenLookaheadCount is the default number of Method-C look-ahead
// attempts GenerationFinder makes before giving up (spec §6).
const DefaultGenLookaheadCount = 10

// DefaultZKTimeout is the default bounded wait AdminDispatcher applies to
// a queued CREATE/DELETE/RELOAD operation (spec §6).
const DefaultZKTimeout = 60

// FinderConfig carries GenerationFinder's knobs explicitly, replacing the
// source's process-wide mutable singletons (spec §9's design note: "static
// singletons... re-architect as an explicit FinderConfig struct").
type FinderConfig struct {
	// GenLookaheadCount bounds Method-C's look-ahead attempts.
	GenLookaheadCount int

	// InfoStream is an optional diagnostic sink, off by default. A nil
	// logger is treated as "disabled" everywhere it is consulted.
	InfoStream logrus.FieldLogger
}

// DefaultFinderConfig returns the documented defaults: look-ahead 10,
// diagnostics off.
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		GenLookaheadCount: DefaultGenLookaheadCount,
	}
}

func (c FinderConfig) lookahead() int {
	if c.GenLookaheadCount <= 0 {
		return DefaultGenLookaheadCount
	}
	return c.GenLookaheadCount
}

func (c FinderConfig) log() logrus.FieldLogger {
	if c.InfoStream == nil {
		return discardLogger
	}
	return c.InfoStream
}
