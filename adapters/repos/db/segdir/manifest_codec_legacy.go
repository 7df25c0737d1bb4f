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
	"bytes"
	"io"
	"sort"

	"github.com/pkg/errors"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// legacyManifestMagic marks a pre-4.0-style segments_N file. Any value
// other than codecMagic would route through this reader; this constant is
// only what this module's own legacy writer emits.
const legacyManifestMagic uint32 = 0x00001a3b

// readLegacy parses a legacy-format manifest directly, without a trailing
// checksum (the legacy format predates the checksum framing entirely —
// spec §4.2's "legacy reader that fills the set in the legacy layout").
// Every resulting descriptor is stamped with the legacy codec name.
func (c *ManifestCodec) readLegacy(r *bytes.Reader, dir Directory, name string) (*segdirent.SegmentSet, error) {
	if _, err := readUint32(r); err != nil { // re-consume magic
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}

	version, err := readInt64(r)
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}
	counter, err := readInt32(r)
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}
	numSegs, err := readInt32(r)
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}
	if numSegs < 0 {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: negative segment count", name)
	}

	set := segdirent.NewSegmentSet()
	set.Version = version
	set.Counter = int64(counter)

	for i := int32(0); i < numSegs; i++ {
		segName, err := readString(r)
		if err != nil {
			return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
		}
		docCount, err := readInt32(r)
		if err != nil {
			return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
		}
		delGen, err := readInt64(r)
		if err != nil {
			return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
		}
		delCount, err := readInt32(r)
		if err != nil {
			return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
		}
		diagnostics, err := readStringMap(r)
		if err != nil {
			return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
		}

		d := &segdirent.SegmentDescriptor{
			Name:        segName,
			CodecName:   segdirent.LegacyCodecName,
			DocCount:    int(docCount),
			DelGen:      delGen,
			DelCount:    int(delCount),
			Diagnostics: diagnostics,
		}
		if err := set.Add(d); err != nil {
			return nil, err
		}
	}

	userData, err := readStringMap(r)
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}
	set.UserData = userData

	gen, ok := segdirent.ParseGeneration(name)
	if !ok {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: not a manifest name", name)
	}
	set.Generation = gen
	set.LastGeneration = gen
	set.Format = -1
	return set, nil
}

// WriteLegacy writes set in the legacy manifest layout. This module never
// writes this format as part of a normal commit (CommitEngine always
// advances to the current format); it exists so tests and migration
// tooling can produce a legacy fixture to upgrade, per spec §4.2's
// "legacy one-time upgrade on write".
func (c *ManifestCodec) WriteLegacy(w io.Writer, set *segdirent.SegmentSet) error {
	if err := writeUint32(w, legacyManifestMagic); err != nil {
		return err
	}
	if err := writeInt64(w, set.Version); err != nil {
		return err
	}
	if err := writeInt32(w, int32(set.Counter)); err != nil {
		return err
	}
	segs := set.Segments()
	if err := writeInt32(w, int32(len(segs))); err != nil {
		return err
	}
	for _, d := range segs {
		if err := writeString(w, d.Name); err != nil {
			return err
		}
		if err := writeInt32(w, int32(d.DocCount)); err != nil {
			return err
		}
		if err := writeInt64(w, d.DelGen); err != nil {
			return err
		}
		if err := writeInt32(w, int32(d.DelCount)); err != nil {
			return err
		}
		if err := writeStringMap(w, d.Diagnostics); err != nil {
			return err
		}
	}
	return writeStringMap(w, set.UserData)
}

// legacySidecarInfo is everything the legacy ".si" upgrade layout carries
// beyond what the current-format manifest already stores (spec §6).
type legacySidecarInfo struct {
	DocCount    int
	Diagnostics map[string]string
	NormGen     map[int]int64
	DocStore    *segdirent.DocStoreSegment
	IsCompound  bool
	HasProx     bool
	HasVectors  bool
}

// writeLegacySidecar persists d's attributes in the legacy ".si" layout:
// name, doc count, del gen, optional doc-store triple, norms descriptor,
// compound-file flag, del count, diagnostics map, has-prox flag,
// has-vectors flag (spec §6).
func writeLegacySidecar(dir Directory, d *segdirent.SegmentDescriptor) error {
	out, err := dir.CreateOutput(d.SidecarName())
	if err != nil {
		return err
	}
	defer out.Close()

	if err := writeString(out, d.Name); err != nil {
		return err
	}
	if err := writeInt32(out, int32(d.DocCount)); err != nil {
		return err
	}
	if err := writeInt64(out, d.DelGen); err != nil {
		return err
	}
	if err := writeBool(out, d.DocStore != nil); err != nil {
		return err
	}
	if d.DocStore != nil {
		if err := writeString(out, d.DocStore.Segment); err != nil {
			return err
		}
		if err := writeInt64(out, d.DocStore.Generation); err != nil {
			return err
		}
		if err := writeBool(out, d.DocStore.IsCompound); err != nil {
			return err
		}
	}
	if err := writeInt32(out, int32(len(d.NormGen))); err != nil {
		return err
	}
	for _, field := range sortedIntKeys(d.NormGen) {
		if err := writeInt32(out, int32(field)); err != nil {
			return err
		}
		if err := writeInt64(out, d.NormGen[field]); err != nil {
			return err
		}
	}
	if err := writeBool(out, false); err != nil { // compound-file flag: legacy upgrade never compounds
		return err
	}
	if err := writeInt32(out, int32(d.DelCount)); err != nil {
		return err
	}
	if err := writeStringMap(out, d.Diagnostics); err != nil {
		return err
	}
	if err := writeBool(out, true); err != nil { // has-prox: legacy segments always carry positions
		return err
	}
	if err := writeBool(out, false); err != nil { // has-vectors: not supported by the legacy upgrade path
		return err
	}
	return nil
}

// readLegacySidecar reads back the layout writeLegacySidecar produces.
func readLegacySidecar(dir Directory, name string) (*legacySidecarInfo, error) {
	in, err := dir.OpenInput(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	if _, err := readString(r); err != nil { // segment name, already known to caller
		return nil, err
	}
	docCount, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if _, err := readInt64(r); err != nil { // del gen, already current in the manifest
		return nil, err
	}
	hasDocStore, err := readBool(r)
	if err != nil {
		return nil, err
	}
	info := &legacySidecarInfo{DocCount: int(docCount)}
	if hasDocStore {
		seg, err := readString(r)
		if err != nil {
			return nil, err
		}
		gen, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		isCompound, err := readBool(r)
		if err != nil {
			return nil, err
		}
		info.DocStore = &segdirent.DocStoreSegment{Segment: seg, Generation: gen, IsCompound: isCompound}
	}
	numNorms, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if numNorms > 0 {
		info.NormGen = make(map[int]int64, numNorms)
	}
	for i := int32(0); i < numNorms; i++ {
		field, err := readInt32(r)
		if err != nil {
			return nil, err
		}
		gen, err := readInt64(r)
		if err != nil {
			return nil, err
		}
		info.NormGen[int(field)] = gen
	}
	if _, err := readBool(r); err != nil { // compound-file flag
		return nil, err
	}
	if _, err := readInt32(r); err != nil { // del count, already current in the manifest
		return nil, err
	}
	diagnostics, err := readStringMap(r)
	if err != nil {
		return nil, err
	}
	info.Diagnostics = diagnostics
	if _, err := readBool(r); err != nil { // has-prox
		return nil, err
	}
	if _, err := readBool(r); err != nil { // has-vectors
		return nil, err
	}
	return info, nil
}

func sortedIntKeys(m map[int]int64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
