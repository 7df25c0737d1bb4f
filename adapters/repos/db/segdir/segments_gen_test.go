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

func TestSegmentsGen_RoundTrip(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, writeSegmentsGen(dir, 42))

	gen, ok, err := readSegmentsGen(dir)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), gen)
}

func TestSegmentsGen_AbsentIsNotAnError(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	gen, ok, err := readSegmentsGen(dir)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)
}

func TestSegmentsGen_TornWriteIsTreatedAsAbsent(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	out, err := dir.CreateOutput(segdirent.SegmentsGenName)
	require.NoError(t, err)
	require.NoError(t, writeInt32(out, formatSegmentsGenCurrent))
	require.NoError(t, writeInt64(out, 5))
	require.NoError(t, writeInt64(out, 6)) // disagreeing second copy
	require.NoError(t, out.Close())

	gen, ok, err := readSegmentsGen(dir)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), gen)
}

func TestSegmentsGen_FormatTooNewIsAnError(t *testing.T) {
	dir, err := NewFSDirectory(t.TempDir())
	require.NoError(t, err)

	out, err := dir.CreateOutput(segdirent.SegmentsGenName)
	require.NoError(t, err)
	require.NoError(t, writeInt32(out, -99))
	require.NoError(t, writeInt64(out, 1))
	require.NoError(t, writeInt64(out, 1))
	require.NoError(t, out.Close())

	_, ok, err := readSegmentsGen(dir)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, segdirent.ErrFormatTooNew))
}
