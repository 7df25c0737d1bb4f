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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// TestScenarioA_EmptySetCommittedTwice reproduces the literal end-to-end
// scenario: an empty set committed twice produces two valid generations,
// the second identical to the first except re-checksummed, with version
// left at 0 since changed() is never called.
func TestScenarioA_EmptySetCommittedTwice(t *testing.T) {
	engine, dir, set := newTestEngine(t)

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish())
	assert.Equal(t, int64(1), set.LastGeneration)
	assert.Equal(t, int64(0), set.Version)

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish())
	assert.Equal(t, int64(2), set.LastGeneration)
	assert.Equal(t, int64(0), set.Version)

	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	first, err := codec.ReadManifest(dir, "segments_1")
	require.NoError(t, err)
	second, err := codec.ReadManifest(dir, "segments_2")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Len())
	assert.Equal(t, 0, second.Len())
	assert.Equal(t, first.Version, second.Version)
}

// TestScenarioB_SingleSegmentCommit reproduces the literal scenario: one
// segment, changed() called once, then commit; the manifest encodes
// version=1, counter=0 (no new segment names allocated), num_segments=1.
func TestScenarioB_SingleSegmentCommit(t *testing.T) {
	engine, dir, set := newTestEngine(t)

	seg := &segdirent.SegmentDescriptor{
		Name:      "_0",
		CodecName: "TestCodec",
		DocCount:  100,
		DelGen:    -1,
		DelCount:  0,
	}
	require.NoError(t, set.Add(seg))
	set.Changed()

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish())

	registry := segdirent.NewCodecRegistry(segdirent.Codec{Name: "TestCodec"})
	codec := NewManifestCodec(registry)
	got, err := codec.ReadManifest(dir, "segments_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(0), got.Counter)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "_0", got.Segments()[0].Name)
	assert.Equal(t, int64(-1), got.Segments()[0].DelGen)
	assert.Equal(t, 0, got.Segments()[0].DelCount)
	assert.Empty(t, got.UserData)
}

// TestScenarioD_StaleDirectoryListingConvergesViaSegmentsGen reproduces
// the first half of the literal scenario: the true filesystem has
// segments_7, the directory listing under-reports segments_6, but
// segments.gen agrees with the listing (gen=6) — the finder should simply
// return segments_6, never probing ahead.
func TestScenarioD_StaleDirectoryListingConvergesViaSegmentsGen(t *testing.T) {
	dir := newFakeDirectory()
	dir.listOverride = []string{"segments_6"}
	out, err := dir.CreateOutput(segdirent.SegmentsGenName)
	require.NoError(t, err)
	require.NoError(t, writeInt32(out, formatSegmentsGenCurrent))
	require.NoError(t, writeInt64(out, 6))
	require.NoError(t, writeInt64(out, 6))
	require.NoError(t, out.Close())

	finder := NewGenerationFinder(dir, segdirent.DefaultFinderConfig())
	result, err := Find(finder, "", func(name string) (string, error) {
		return name, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "segments_6", result)
}

// TestScenarioD_ConcurrentDeleteThenLookaheadSucceeds reproduces the
// second half: segments.gen is missing, the listing under-reports
// segments_6, and every candidate other than segments_7 fails, segments_6
// included on each attempt (as if concurrently replaced); the finder must
// retry and ultimately locate segments_7 via look-ahead.
func TestScenarioD_ConcurrentDeleteThenLookaheadSucceeds(t *testing.T) {
	dir := newFakeDirectory()
	dir.listOverride = []string{"segments_6"}

	finder := NewGenerationFinder(dir, segdirent.DefaultFinderConfig())
	result, err := Find(finder, "", func(name string) (string, error) {
		gen, ok := segdirent.ParseGeneration(name)
		if ok && gen == 7 {
			return name, nil
		}
		return "", segdirent.ErrIOFailure
	})
	require.NoError(t, err)
	assert.Equal(t, "segments_7", result)
}

// TestScenarioE_CorruptionFallsBackOneGeneration reproduces the literal
// scenario: a committed manifest is corrupted; a reader anchored at that
// generation (as GenerationFinder would be on its second attempt at the
// same stuck generation) falls back to the prior generation instead.
func TestScenarioE_CorruptionFallsBackOneGeneration(t *testing.T) {
	engine, dir, set := newTestEngine(t)
	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish()) // segments_1, valid

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish()) // segments_2, valid

	in, err := dir.OpenInput("segments_2")
	require.NoError(t, err)
	raw := readAllInput(t, in)
	require.NoError(t, in.Close())
	raw[len(raw)-1] ^= 0xff
	out, err := dir.CreateOutput("segments_2")
	require.NoError(t, err)
	_, err = out.Write(raw)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	finder := NewGenerationFinder(dir, segdirent.DefaultFinderConfig())

	got, err := Find(finder, "", func(name string) (*segdirent.SegmentSet, error) {
		return codec.ReadManifest(dir, name)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Generation)
	_ = set
}

// TestCrashSafety_PrepareThenCrash is crash-safety scenario 1: prepare
// leaves an invalid-checksum manifest behind with no segments.gen update;
// a fresh reader must fall back to the prior generation.
func TestCrashSafety_PrepareThenCrash(t *testing.T) {
	engine, dir, set := newTestEngine(t)
	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish()) // segments_1 committed

	engine2 := NewCommitEngine(dir, set, segdirent.NewCodecRegistry(), nil, nil)
	require.NoError(t, engine2.Prepare()) // writes segments_2, never finished

	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	finder := NewGenerationFinder(dir, segdirent.DefaultFinderConfig())

	got, err := Find(finder, "", func(name string) (*segdirent.SegmentSet, error) {
		return codec.ReadManifest(dir, name)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Generation)
}

// TestCrashSafety_FinishBeforeSegmentsGenCrash is crash-safety scenario 2:
// the manifest is fsynced but segments.gen is never written; the reader
// relies purely on the directory listing.
func TestCrashSafety_FinishBeforeSegmentsGenCrash(t *testing.T) {
	engine, dir, _ := newTestEngine(t)
	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish())

	require.NoError(t, dir.DeleteFile(segdirent.SegmentsGenName))

	registry := segdirent.NewCodecRegistry()
	codec := NewManifestCodec(registry)
	finder := NewGenerationFinder(dir, segdirent.DefaultFinderConfig())

	got, err := Find(finder, "", func(name string) (*segdirent.SegmentSet, error) {
		return codec.ReadManifest(dir, name)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Generation)
}

// TestCrashSafety_TwoRollbacksThenCommit is crash-safety scenario 3: two
// consecutive prepare/rollback cycles followed by a successful commit
// leave only the third generation on disk.
func TestCrashSafety_TwoRollbacksThenCommit(t *testing.T) {
	engine, dir, _ := newTestEngine(t)

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Rollback())

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Rollback())

	require.NoError(t, engine.Prepare())
	require.NoError(t, engine.Finish())

	exists, err := dir.FileExists("segments_1")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = dir.FileExists("segments_2")
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = dir.FileExists("segments_3")
	require.NoError(t, err)
	assert.True(t, exists)
}
