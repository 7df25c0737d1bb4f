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

// Package segdir implements the on-disk half of the segment-set commit
// manager: the directory abstraction, the segments_N wire codec, the
// segments.gen sidecar, the two-phase CommitEngine and the
// GenerationFinder reader-side discovery loop.
package segdir

import (
	"encoding/binary"
	"hash"
	"hash/crc64"
	"io"

	"github.com/pkg/errors"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// checksumTable is the fixed CRC-64 polynomial (ISO 3309) both the writer
// and every reader use; it must never change, since an old checksum would
// otherwise silently mis-verify (spec §4.1).
var checksumTable = crc64.MakeTable(crc64.ISO)

// checksumWriter wraps an io.Writer and maintains a running CRC-64 over
// every payload byte written through it. Finish emits the running
// checksum as a trailing big-endian uint64 and must be called exactly
// once, after all payload bytes have been written.
type checksumWriter struct {
	w   io.Writer
	sum hash.Hash64
	mw  io.Writer
}

func newChecksumWriter(w io.Writer) *checksumWriter {
	sum := crc64.New(checksumTable)
	return &checksumWriter{
		w:   w,
		sum: sum,
		mw:  io.MultiWriter(w, sum),
	}
}

// Write feeds p to both the underlying writer and the running checksum.
func (c *checksumWriter) Write(p []byte) (int, error) {
	return c.mw.Write(p)
}

// Finish writes the running checksum as a trailing 8-byte big-endian
// value directly to the underlying writer — the checksum itself is never
// hashed into its own value.
func (c *checksumWriter) Finish() error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.sum.Sum64())
	_, err := c.w.Write(buf[:])
	return errors.Wrap(err, "write trailing checksum")
}

// checksumReader wraps an io.Reader and maintains a running CRC-64 over
// every payload byte read through it. Verify reads the trailing 8-byte
// checksum directly from the underlying reader and compares it to the
// running checksum accumulated so far.
type checksumReader struct {
	r   io.Reader
	sum hash.Hash64
	tee io.Reader
}

func newChecksumReader(r io.Reader) *checksumReader {
	sum := crc64.New(checksumTable)
	return &checksumReader{
		r:   r,
		sum: sum,
		tee: io.TeeReader(r, sum),
	}
}

func (c *checksumReader) Read(p []byte) (int, error) {
	return c.tee.Read(p)
}

// Verify reads the trailing checksum and compares it against the running
// checksum of everything read so far. A mismatch is ErrCorruptManifest,
// per spec §4.1 and §7: any checksum failure must be treated by the
// caller as "possibly stale, try again", never as a hard error.
func (c *checksumReader) Verify() error {
	var buf [8]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return errors.Wrap(segdirent.ErrCorruptManifest, err.Error())
	}
	want := binary.BigEndian.Uint64(buf[:])
	got := c.sum.Sum64()
	if want != got {
		return errors.Wrapf(segdirent.ErrCorruptManifest,
			"checksum mismatch: file declares %x, computed %x", want, got)
	}
	return nil
}
