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

	"github.com/pkg/errors"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// codecMagic identifies a current-format segments_N file. Any other value
// in the first four bytes routes the file through the legacy reader
// (spec §4.2).
const codecMagic uint32 = 0x3fd76c17

// headerCodecName is the self-describing codec name current-format files
// carry right after the magic, matching the framing diagram in spec §4.2.
const headerCodecName = "segments"

// version40 is the only current-format version this codec writes or
// understands, tagged VERSION_40 in spec §4.2.
const version40 int32 = 0

// ManifestCodec serializes a SegmentSet to the segments_N wire format and
// back, including the legacy-format read path and a legacy-format writer
// (WriteLegacy). The one-time legacy sidecar upgrade on commit is not part
// of ManifestCodec: it is upgradeLegacySidecars, run by
// CommitEngine.Prepare (spec §4.2).
type ManifestCodec struct {
	registry *segdirent.CodecRegistry
}

// NewManifestCodec binds a codec to a registry used to validate
// per-segment codec names encountered on read.
func NewManifestCodec(registry *segdirent.CodecRegistry) *ManifestCodec {
	return &ManifestCodec{registry: registry}
}

// WriteCurrent writes the current-format payload (everything up to, but
// not including, the trailing checksum) to w. Callers are expected to
// pass a *checksumWriter so the payload is hashed as it is written, and
// to call Finish() on that writer afterward.
func (c *ManifestCodec) WriteCurrent(w io.Writer, set *segdirent.SegmentSet) error {
	if err := writeUint32(w, codecMagic); err != nil {
		return err
	}
	if err := writeString(w, headerCodecName); err != nil {
		return err
	}
	if err := writeInt32(w, version40); err != nil {
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
		if err := writeString(w, d.CodecName); err != nil {
			return err
		}
		if err := writeInt64(w, d.DelGen); err != nil {
			return err
		}
		if err := writeInt32(w, int32(d.DelCount)); err != nil {
			return err
		}
	}
	return writeStringMap(w, set.UserData)
}

// ReadManifest reads and validates name from dir, dispatching to the
// current-format or legacy reader depending on the magic bytes, and
// (for the current format) verifying the trailing checksum. A checksum
// mismatch or truncated read is surfaced as ErrCorruptManifest, which
// GenerationFinder treats as "possibly stale, try again" (spec §7).
func (c *ManifestCodec) ReadManifest(dir Directory, name string) (*segdirent.SegmentSet, error) {
	in, err := dir.OpenInput(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrIOFailure, "read %s: %v", name, err)
	}
	if len(data) < 4 {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: truncated header", name)
	}

	r := bytes.NewReader(data)
	cr := newChecksumReader(r)

	magic, err := readUint32(cr)
	if err != nil {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}

	if magic != codecMagic {
		return c.readLegacy(bytes.NewReader(data), dir, name)
	}

	set, err := c.readCurrentBody(cr)
	if err != nil {
		if errors.Is(err, segdirent.ErrFormatTooNew) {
			return nil, errors.Wrapf(err, "%s", name)
		}
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: %v", name, err)
	}
	if err := cr.Verify(); err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}

	gen, ok := segdirent.ParseGeneration(name)
	if !ok {
		return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "%s: not a manifest name", name)
	}
	set.Generation = gen
	set.LastGeneration = gen
	set.Format = version40

	c.recoverLegacyDocCounts(dir, set)
	return set, nil
}

func (c *ManifestCodec) readCurrentBody(cr *checksumReader) (*segdirent.SegmentSet, error) {
	headerName, err := readString(cr)
	if err != nil {
		return nil, err
	}
	if headerName != headerCodecName {
		return nil, errors.Errorf("unexpected codec header %q", headerName)
	}
	format, err := readInt32(cr)
	if err != nil {
		return nil, err
	}
	if format != version40 {
		return nil, errors.Wrapf(segdirent.ErrFormatTooNew, "format %d", format)
	}
	version, err := readInt64(cr)
	if err != nil {
		return nil, err
	}
	counter, err := readInt32(cr)
	if err != nil {
		return nil, err
	}
	numSegs, err := readInt32(cr)
	if err != nil {
		return nil, err
	}
	if numSegs < 0 {
		return nil, errors.Errorf("negative segment count %d", numSegs)
	}

	set := segdirent.NewSegmentSet()
	set.Version = version
	set.Counter = int64(counter)

	for i := int32(0); i < numSegs; i++ {
		name, err := readString(cr)
		if err != nil {
			return nil, err
		}
		codecName, err := readString(cr)
		if err != nil {
			return nil, err
		}
		if _, lookupErr := c.registry.Lookup(codecName); lookupErr != nil {
			return nil, errors.Wrapf(segdirent.ErrCorruptManifest, "segment %q: %v", name, lookupErr)
		}
		delGen, err := readInt64(cr)
		if err != nil {
			return nil, err
		}
		delCount, err := readInt32(cr)
		if err != nil {
			return nil, err
		}
		d := &segdirent.SegmentDescriptor{
			Name:      name,
			CodecName: codecName,
			DelGen:    delGen,
			DelCount:  int(delCount),
		}
		if err := set.Add(d); err != nil {
			return nil, err
		}
	}

	userData, err := readStringMap(cr)
	if err != nil {
		return nil, err
	}
	set.UserData = userData
	return set, nil
}

// recoverLegacyDocCounts best-effort repopulates DocCount/Diagnostics for
// any descriptor stamped with the legacy codec by reading its ".si"
// sidecar through the one layout this module actually understands (spec
// §6's legacy sidecar list). Any other codec's sidecar is opaque and left
// alone, matching the "modulo opaque codec sidecars" round-trip law
// (spec §8).
func (c *ManifestCodec) recoverLegacyDocCounts(dir Directory, set *segdirent.SegmentSet) {
	for _, d := range set.Segments() {
		if d.CodecName != segdirent.LegacyCodecName {
			continue
		}
		info, err := readLegacySidecar(dir, d.SidecarName())
		if err != nil {
			continue
		}
		d.DocCount = info.DocCount
		d.Diagnostics = info.Diagnostics
		d.NormGen = info.NormGen
		d.DocStore = info.DocStore
	}
}
