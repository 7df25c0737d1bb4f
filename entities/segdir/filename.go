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

import "strconv"

// SegmentsGenName is the advisory sidecar file name; it is never a valid
// manifest name itself and Method A discovery must skip it explicitly.
const SegmentsGenName = "segments.gen"

const manifestPrefix = "segments"

// ManifestFileName returns the segments_N file name for generation gen,
// base-36 encoded (lower-case), except generation 0 which is the bare
// "segments" file name.
func ManifestFileName(gen int64) string {
	if gen == 0 {
		return manifestPrefix
	}
	return manifestPrefix + "_" + strconv.FormatInt(gen, 36)
}

// ParseGeneration parses a directory entry name as a manifest generation.
// It returns ok == false for segments.gen, for anything not starting with
// "segments", and for a suffix that does not parse as base-36.
func ParseGeneration(name string) (gen int64, ok bool) {
	if name == SegmentsGenName {
		return 0, false
	}
	if name == manifestPrefix {
		return 0, true
	}
	if len(name) <= len(manifestPrefix)+1 || name[:len(manifestPrefix)+1] != manifestPrefix+"_" {
		return 0, false
	}
	suffix := name[len(manifestPrefix)+1:]
	n, err := strconv.ParseInt(suffix, 36, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
