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
	"fmt"
	"strings"
)

// legacyVersionPrefix marks a segment written by a major-version-3 writer;
// such segments are re-serialized through the legacy sidecar layout on
// their next manifest write. See the legacy sidecar upgrade pass that
// CommitEngine.Prepare runs.
const legacyVersionPrefix = "3."

// LegacyCodecName is stamped onto every descriptor that was read back from
// a legacy-format manifest, since the legacy layout carries no per-segment
// codec name of its own.
const LegacyCodecName = "Lucene3x"

// SegmentDescriptor is an immutable-ish record of one indexed segment.
// Per-segment attributes beyond Name, CodecName, DelGen and DelCount are
// persisted by the per-segment codec into "<Name>.si"; the manifest itself
// never re-carries them (spec §4.2).
type SegmentDescriptor struct {
	// Name is the stable identifier, unique within a SegmentSet.
	Name string

	// CodecName is the per-segment codec identifier used to dispatch to a
	// reader/writer. Opaque to this package.
	CodecName string

	// DocCount is the number of documents in the segment, non-negative.
	DocCount int

	// DelGen is the deletion generation; -1 means no deletions yet.
	// Monotone non-decreasing across a segment's lifetime.
	DelGen int64

	// DelCount is the number of deleted documents. Invariant:
	// 0 <= DelCount <= DocCount.
	DelCount int

	// Version is the opaque version string of the writer that created the
	// segment. A descriptor is "legacy" if Version is empty or begins with
	// the major-version-3 marker.
	Version string

	// Diagnostics, NormGen and DocStore are opaque fields relevant only to
	// legacy re-serialization; this package never interprets their
	// contents.
	Diagnostics map[string]string
	NormGen     map[int]int64
	DocStore    *DocStoreSegment

	// dir is the owning directory identity. A segment belongs to exactly
	// one directory; mixing descriptors from two directories into one
	// SegmentSet is a programming error (not separately error-kinded,
	// matching spec §3's "cross-directory mixes are a programming error").
	dir string
}

// DocStoreSegment captures the legacy doc-store triple (segment name,
// generation, compound-file flag) referenced by a pre-4.0 descriptor.
type DocStoreSegment struct {
	Segment    string
	Generation int64
	IsCompound bool
}

// NewSegmentDescriptor builds a descriptor bound to dir with del_gen -1
// (no deletions yet) and del_count 0, the state of a freshly flushed
// segment.
func NewSegmentDescriptor(dir, name, codecName string, docCount int, version string) *SegmentDescriptor {
	return &SegmentDescriptor{
		Name:      name,
		CodecName: codecName,
		DocCount:  docCount,
		DelGen:    -1,
		Version:   version,
		dir:       dir,
	}
}

// IsLegacy reports whether this descriptor must go through the legacy
// sidecar upgrade path on its next manifest write (spec §4.2).
func (d *SegmentDescriptor) IsLegacy() bool {
	return d.Version == "" || strings.HasPrefix(d.Version, legacyVersionPrefix)
}

// SidecarName is the per-segment ".si" file name this descriptor's codec
// (or the legacy upgrade path) persists attributes into.
func (d *SegmentDescriptor) SidecarName() string {
	return d.Name + ".si"
}

// Validate checks the del_count/doc_count invariant from spec §3.
func (d *SegmentDescriptor) Validate() error {
	if d.DelCount < 0 || d.DelCount > d.DocCount {
		return fmt.Errorf("%w: segment %q has del_count=%d doc_count=%d",
			ErrIllegalState, d.Name, d.DelCount, d.DocCount)
	}
	return nil
}

// Clone deep-copies the descriptor, including its maps, so that cloning a
// SegmentSet never lets two sets share mutable descriptor state.
func (d *SegmentDescriptor) Clone() *SegmentDescriptor {
	clone := *d
	if d.Diagnostics != nil {
		clone.Diagnostics = make(map[string]string, len(d.Diagnostics))
		for k, v := range d.Diagnostics {
			clone.Diagnostics[k] = v
		}
	}
	if d.NormGen != nil {
		clone.NormGen = make(map[int]int64, len(d.NormGen))
		for k, v := range d.NormGen {
			clone.NormGen[k] = v
		}
	}
	if d.DocStore != nil {
		ds := *d.DocStore
		clone.DocStore = &ds
	}
	return &clone
}

func (d *SegmentDescriptor) String() string {
	return fmt.Sprintf("%s(codec=%s docs=%d delGen=%d delCount=%d)",
		d.Name, d.CodecName, d.DocCount, d.DelGen, d.DelCount)
}
