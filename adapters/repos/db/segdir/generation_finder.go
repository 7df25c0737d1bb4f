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
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// GenerationFinder locates the current segments_N generation in the
// presence of stale directory caches, concurrent commits, and missing or
// corrupt auxiliary files (spec §4.6). It carries its configuration
// explicitly rather than through process-wide state (spec §9).
type GenerationFinder struct {
	dir    Directory
	config segdirent.FinderConfig
}

// NewGenerationFinder binds a finder to dir with an explicit config.
func NewGenerationFinder(dir Directory, config segdirent.FinderConfig) *GenerationFinder {
	return &GenerationFinder{dir: dir, config: config}
}

// Find locates the current manifest generation and invokes do with its
// file name, retrying per spec §4.6's algorithm until do succeeds, the
// look-ahead budget is exhausted, or no generation can be found at all.
// If anchor is non-empty, it is trusted outright and do is invoked with
// it exactly once (the "primary path": an explicit commit anchor bypasses
// discovery entirely).
//
// Find is a package-level generic function, not a method, because Go
// methods cannot carry their own type parameters (spec §9's redesign
// note: "GenerationFinder taking a functional parameter do_body").
func Find[T any](f *GenerationFinder, anchor string, do func(name string) (T, error)) (T, error) {
	var zero T
	log := f.config.InfoStream
	if anchor != "" {
		return do(anchor)
	}

	var savedErr error
	var lastGen int64 = -1
	retryCount := 0

	for {
		genA, okA := f.methodA()
		genB, okB := f.methodB()

		gen, ok := maxGen(genA, okA, genB, okB)
		if !ok {
			return zero, segdirent.ErrIndexNotFound
		}

		if gen == lastGen {
			retryCount++
		} else {
			retryCount = 0
			lastGen = gen
		}

		if retryCount >= 2 {
			return lookahead(f, gen, do, savedErr)
		}

		result, err := do(segdirent.ManifestFileName(gen))
		if err == nil {
			return result, nil
		}
		if savedErr == nil {
			savedErr = err
		}
		if log != nil {
			log.WithField("action", "segdir_find_generation").
				WithField("generation", gen).WithError(err).
				Debug("candidate generation failed, retrying")
		}

		if retryCount == 1 && gen > 1 {
			result, err2 := do(segdirent.ManifestFileName(gen - 1))
			if err2 == nil {
				return result, nil
			}
			// Logged and ignored per spec §4.6 step 5: a second failure at
			// the prior generation does not replace savedErr.
			if log != nil {
				log.WithField("action", "segdir_find_generation").
					WithField("generation", gen-1).WithError(err2).
					Debug("prior generation failed, ignoring")
			}
		}
	}
}

// lookahead is Method C: probe up to config.GenLookaheadCount generations
// past gen, for the case where both the directory listing and
// segments.gen are stale in the same direction (spec §4.6 step 7).
// Exhausting the budget rethrows the first error Find observed.
func lookahead[T any](f *GenerationFinder, gen int64, do func(name string) (T, error), savedErr error) (T, error) {
	var zero T
	budget := f.config.GenLookaheadCount
	if budget <= 0 {
		budget = segdirent.DefaultGenLookaheadCount
	}
	for i := 0; i < budget; i++ {
		gen++
		result, err := do(segdirent.ManifestFileName(gen))
		if err == nil {
			return result, nil
		}
		if savedErr == nil {
			savedErr = err
		}
	}
	if savedErr == nil {
		savedErr = segdirent.ErrIndexNotFound
	}
	return zero, savedErr
}

// methodA lists the directory and returns the highest generation named by
// any "segments*" entry other than segments.gen.
func (f *GenerationFinder) methodA() (int64, bool) {
	names, err := f.dir.ListAll()
	if err != nil {
		return 0, false
	}
	var max int64 = -1
	found := false
	for _, name := range names {
		gen, ok := segdirent.ParseGeneration(name)
		if !ok {
			continue
		}
		if !found || gen > max {
			max = gen
			found = true
		}
	}
	return max, found
}

// methodB reads the segments.gen sidecar.
func (f *GenerationFinder) methodB() (int64, bool) {
	gen, ok, err := readSegmentsGen(f.dir)
	if err != nil || !ok {
		return 0, false
	}
	return gen, true
}

func maxGen(a int64, okA bool, b int64, okB bool) (int64, bool) {
	switch {
	case okA && okB:
		if a > b {
			return a, true
		}
		return b, true
	case okA:
		return a, true
	case okB:
		return b, true
	default:
		return 0, false
	}
}
