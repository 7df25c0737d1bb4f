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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	segdirent "github.com/weaviate/segdir/entities/segdir"
)

func writeManifest(t *testing.T, dir Directory, codec *ManifestCodec, name string, set *segdirent.SegmentSet) {
	t.Helper()
	out, err := dir.CreateOutput(name)
	require.NoError(t, err)
	cw := newChecksumWriter(out)
	require.NoError(t, codec.WriteCurrent(cw, set))
	require.NoError(t, cw.Finish())
	require.NoError(t, out.Close())
}

func TestManifestCodec_CurrentFormatRoundTrip(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	set := segdirent.NewSegmentSet()
	set.Version = 3
	set.Counter = 2
	set.UserData = map[string]string{"k": "v"}
	seg1 := segdirent.NewSegmentDescriptor("x", "_0", "TestCodec", 100, "7.0")
	seg2 := segdirent.NewSegmentDescriptor("x", "_1", "TestCodec", 50, "7.0")
	require.NoError(t, set.Add(seg1))
	require.NoError(t, set.Add(seg2))

	registry := segdirent.NewCodecRegistry(segdirent.Codec{Name: "TestCodec"})
	codec := NewManifestCodec(registry)
	writeManifest(t, dir, codec, "segments_1", set)

	got, err := codec.ReadManifest(dir, "segments_1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, int64(2), got.Counter)
	assert.Equal(t, map[string]string{"k": "v"}, got.UserData)
	assert.Equal(t, int64(1), got.Generation)
	assert.Equal(t, int64(1), got.LastGeneration)
	require.Equal(t, 2, got.Len())
	names := []string{got.Segments()[0].Name, got.Segments()[1].Name}
	assert.ElementsMatch(t, []string{"_0", "_1"}, names)
}

func TestManifestCodec_EmptyUserDataRoundTripsNonNil(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	set := segdirent.NewSegmentSet()
	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	writeManifest(t, dir, codec, "segments_1", set)

	got, err := codec.ReadManifest(dir, "segments_1")
	require.NoError(t, err)
	assert.NotNil(t, got.UserData)
	assert.Empty(t, got.UserData)
}

func TestManifestCodec_CorruptionIsDetected(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	set := segdirent.NewSegmentSet()
	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	writeManifest(t, dir, codec, "segments_1", set)

	in, err := dir.OpenInput("segments_1")
	require.NoError(t, err)
	raw := readAllInput(t, in)
	require.NoError(t, in.Close())
	raw[len(raw)-1] ^= 0xff // corrupt the trailing checksum itself
	out, err := dir.CreateOutput("segments_1")
	require.NoError(t, err)
	_, err = out.Write(raw)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	_, err = codec.ReadManifest(dir, "segments_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, segdirent.ErrCorruptManifest))
}

func TestManifestCodec_LegacyRoundTrip(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	set := segdirent.NewSegmentSet()
	set.Version = 9
	set.Counter = 1
	set.UserData = map[string]string{}
	d := &segdirent.SegmentDescriptor{
		Name:        "_0",
		DocCount:    12,
		DelGen:      -1,
		DelCount:    0,
		Diagnostics: map[string]string{"source": "flush"},
	}
	require.NoError(t, set.Add(d))

	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)

	out, err := dir.CreateOutput("segments_1")
	require.NoError(t, err)
	require.NoError(t, codec.WriteLegacy(out, set))
	require.NoError(t, out.Close())

	got, err := codec.ReadManifest(dir, "segments_1")
	require.NoError(t, err)
	assert.Equal(t, int32(-1), got.Format)
	require.Equal(t, 1, got.Len())
	gotSeg := got.Segments()[0]
	assert.Equal(t, 12, gotSeg.DocCount)
	assert.Equal(t, segdirent.LegacyCodecName, gotSeg.CodecName)
	assert.Equal(t, "flush", gotSeg.Diagnostics["source"])
}

func TestManifestCodec_RecoversLegacyDocCountFromSidecar(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	set := segdirent.NewSegmentSet()
	set.UserData = map[string]string{}
	legacy := &segdirent.SegmentDescriptor{
		Name:      "_0",
		CodecName: segdirent.LegacyCodecName,
		DelGen:    -1,
	}
	require.NoError(t, set.Add(legacy))
	require.NoError(t, writeLegacySidecar(dir, &segdirent.SegmentDescriptor{
		Name:        "_0",
		DocCount:    77,
		DelGen:      -1,
		Diagnostics: map[string]string{"a": "b"},
	}))

	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	writeManifest(t, dir, codec, "segments_1", set)

	got, err := codec.ReadManifest(dir, "segments_1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 77, got.Segments()[0].DocCount)
	assert.Equal(t, "b", got.Segments()[0].Diagnostics["a"])
}

func readAllInput(t *testing.T, in Input) []byte {
	t.Helper()
	buf := make([]byte, 0, 256)
	chunk := make([]byte, 64)
	for {
		n, err := in.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	return buf
}
