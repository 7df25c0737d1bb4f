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
	"strconv"
	"strings"
)

// Merge bundles the inputs consumed by a merge operation and the
// descriptor it produced. The merge policy that decides which segments to
// merge is an opaque collaborator (spec §1); this type is only the
// envelope SegmentSet.ApplyMerge consumes.
type Merge struct {
	Inputs []*SegmentDescriptor
	Output *SegmentDescriptor
}

// SegmentSet is an ordered, unique collection of SegmentDescriptor. The
// sequence determines iteration/serialization order; membership is tracked
// by descriptor identity, never by value, so two distinct descriptors with
// the same Name can never both be mistaken for one member (spec §3).
type SegmentSet struct {
	sequence   []*SegmentDescriptor
	membership map[*SegmentDescriptor]struct{}

	// Counter is the monotonic name allocator for NewSegmentName.
	Counter int64

	// Version is the commit counter, incremented on every logical change
	// via Changed(). It is NOT incremented automatically by Add/Remove;
	// callers decide when a batch of mutations constitutes one logical
	// change (see spec's Scenario A/B).
	Version int64

	// Generation is the next manifest generation to write.
	Generation int64

	// LastGeneration is the generation of the last successfully read or
	// written manifest, or -1 if none yet.
	LastGeneration int64

	// UserData is an opaque key/value map round-tripped verbatim across
	// commits.
	UserData map[string]string

	// Format is the format tag of the last-read manifest (current-format
	// VERSION_40, or a legacy format tag).
	Format int32
}

// NewSegmentSet constructs an empty set: no segments, generation -1 (no
// manifest written yet), counter 0, version 0, empty user data.
func NewSegmentSet() *SegmentSet {
	return &SegmentSet{
		sequence:       nil,
		membership:     make(map[*SegmentDescriptor]struct{}),
		Generation:     -1,
		LastGeneration: -1,
		UserData:       make(map[string]string),
	}
}

// Len returns the number of member segments.
func (s *SegmentSet) Len() int {
	return len(s.sequence)
}

// Segments returns the live sequence in commit order. The returned slice
// is owned by the caller but its elements are still owned by s; mutate
// copies, not these descriptors, unless you intend to mutate s.
func (s *SegmentSet) Segments() []*SegmentDescriptor {
	out := make([]*SegmentDescriptor, len(s.sequence))
	copy(out, s.sequence)
	return out
}

// Contains reports whether d (by identity) is a member.
func (s *SegmentSet) Contains(d *SegmentDescriptor) bool {
	_, ok := s.membership[d]
	return ok
}

// Add appends d to the sequence. It fails with ErrDuplicateSegment if d's
// identity is already a member — a programming error, not a recoverable
// condition.
func (s *SegmentSet) Add(d *SegmentDescriptor) error {
	if s.Contains(d) {
		return ErrDuplicateSegment
	}
	s.sequence = append(s.sequence, d)
	s.membership[d] = struct{}{}
	s.assertInvariant()
	return nil
}

// Remove removes d (by identity) if present; it is a no-op otherwise.
func (s *SegmentSet) Remove(d *SegmentDescriptor) {
	if !s.Contains(d) {
		return
	}
	for i, cur := range s.sequence {
		if cur == d {
			s.removeAtIndex(i)
			return
		}
	}
}

// RemoveAt removes the descriptor at position i; out-of-range indices are
// a no-op, tolerating a descriptor already gone.
func (s *SegmentSet) RemoveAt(i int) {
	if i < 0 || i >= len(s.sequence) {
		return
	}
	s.removeAtIndex(i)
}

func (s *SegmentSet) removeAtIndex(i int) {
	d := s.sequence[i]
	s.sequence = append(s.sequence[:i], s.sequence[i+1:]...)
	delete(s.membership, d)
	s.assertInvariant()
}

// Clear empties the set's sequence and membership while leaving
// Generation, LastGeneration, Version, Counter and Format untouched, the
// same contract as Replace with an empty set (spec §4.3).
func (s *SegmentSet) Clear() {
	s.sequence = nil
	s.membership = make(map[*SegmentDescriptor]struct{})
}

// Replace swaps in other's sequence, keeping this set's Generation,
// LastGeneration, Version, Counter and Format unchanged. This is what
// preserves write-once generation monotonicity across a rollback: a
// commit that reloads the prior on-disk state must not also rewind the
// generation counter.
func (s *SegmentSet) Replace(other *SegmentSet) {
	s.sequence = make([]*SegmentDescriptor, len(other.sequence))
	copy(s.sequence, other.sequence)
	s.membership = make(map[*SegmentDescriptor]struct{}, len(s.sequence))
	for _, d := range s.sequence {
		s.membership[d] = struct{}{}
	}
	s.assertInvariant()
}

// ApplyMerge folds a completed merge into the set. The first occurrence of
// any input in the sequence is replaced by merge.Output (unless drop is
// true), all other inputs are removed, and the relative order of
// surviving non-input segments is preserved. If none of the inputs were
// found in the sequence (they had already been removed by some other
// path) and drop is false, Output is inserted at position 0 — preserving
// the source behavior this is translated from (spec §9).
func (s *SegmentSet) ApplyMerge(merge Merge, drop bool) {
	inputSet := make(map[*SegmentDescriptor]struct{}, len(merge.Inputs))
	for _, in := range merge.Inputs {
		inputSet[in] = struct{}{}
	}

	newSeq := make([]*SegmentDescriptor, 0, len(s.sequence))
	replaced := false
	for _, cur := range s.sequence {
		if _, isInput := inputSet[cur]; !isInput {
			newSeq = append(newSeq, cur)
			continue
		}
		delete(s.membership, cur)
		if !replaced && !drop {
			newSeq = append(newSeq, merge.Output)
			s.membership[merge.Output] = struct{}{}
			replaced = true
		}
	}

	if !replaced && !drop {
		newSeq = append([]*SegmentDescriptor{merge.Output}, newSeq...)
		s.membership[merge.Output] = struct{}{}
	}

	s.sequence = newSeq
	s.assertInvariant()
}

// TotalDocCount sums DocCount across all members, ignoring deletions.
func (s *SegmentSet) TotalDocCount() int {
	var total int
	for _, d := range s.sequence {
		total += d.DocCount
	}
	return total
}

// Changed marks a logical modification by incrementing Version.
func (s *SegmentSet) Changed() {
	s.Version++
}

// NewSegmentName allocates the next segment name from Counter, base-36
// encoded, and advances Counter. Grounded on original_source/lucene's
// SegmentInfos#newSegmentName (Integer.toString(counter++, MAX_RADIX)).
func (s *SegmentSet) NewSegmentName() string {
	name := "_" + strconv.FormatInt(s.Counter, 36)
	s.Counter++
	return name
}

// Clone deep-copies the set, including every descriptor, so the clone and
// the original never share mutable descriptor state.
func (s *SegmentSet) Clone() *SegmentSet {
	clone := &SegmentSet{
		sequence:       make([]*SegmentDescriptor, len(s.sequence)),
		membership:     make(map[*SegmentDescriptor]struct{}, len(s.sequence)),
		Counter:        s.Counter,
		Version:        s.Version,
		Generation:     s.Generation,
		LastGeneration: s.LastGeneration,
		UserData:       make(map[string]string, len(s.UserData)),
		Format:         s.Format,
	}
	for i, d := range s.sequence {
		cd := d.Clone()
		clone.sequence[i] = cd
		clone.membership[cd] = struct{}{}
	}
	for k, v := range s.UserData {
		clone.UserData[k] = v
	}
	return clone
}

// Files enumerates every file belonging to this segment set: optionally
// the manifest file itself, plus each member's ".si" sidecar. Per-segment
// codec files beyond the sidecar are the codec's own concern and are not
// enumerated here (spec §1 treats the codec as opaque).
//
// Asking for the manifest file name (includeSegmentsFile=true) when no
// manifest has ever been written (LastGeneration == -1) is a precondition
// violation, not a silently-tolerated nil name (spec §9's design note).
func (s *SegmentSet) Files(includeSegmentsFile bool) ([]string, error) {
	var out []string
	if includeSegmentsFile {
		if s.LastGeneration == -1 {
			return nil, ErrIllegalState
		}
		out = append(out, ManifestFileName(s.LastGeneration))
	}
	for _, d := range s.sequence {
		out = append(out, d.SidecarName())
	}
	return out, nil
}

// String renders a short diagnostic dump of name/doc-count/del-count per
// member, for logging (grounded on original_source/lucene's
// SegmentInfos#segString, spec_full §3).
func (s *SegmentSet) String() string {
	var b strings.Builder
	for i, d := range s.sequence {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.Name)
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(d.DocCount))
		b.WriteString("docs/")
		b.WriteString(strconv.Itoa(d.DelCount))
		b.WriteString("del)")
	}
	return b.String()
}

func (s *SegmentSet) assertInvariant() {
	if len(s.sequence) != len(s.membership) {
		panic("segdir: SegmentSet sequence/membership size mismatch")
	}
}
