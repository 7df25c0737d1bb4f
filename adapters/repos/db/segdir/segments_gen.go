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
	"github.com/pkg/errors"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// formatSegmentsGenCurrent is the only format this module writes or
// understands for segments.gen (spec §4.5).
const formatSegmentsGenCurrent int32 = -2

// writeSegmentsGen (re)writes the segments.gen hint: the generation
// written twice, for torn-write detection on read. It is purely advisory
// — CommitEngine.finish silently deletes it on any write failure rather
// than failing the commit (spec §4.4).
func writeSegmentsGen(dir Directory, gen int64) error {
	out, err := dir.CreateOutput(segdirent.SegmentsGenName)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := writeInt32(out, formatSegmentsGenCurrent); err != nil {
		return err
	}
	if err := writeInt64(out, gen); err != nil {
		return err
	}
	if err := writeInt64(out, gen); err != nil {
		return err
	}
	return out.Sync()
}

// readSegmentsGen reads the hint and returns the generation it names. A
// format mismatch is FormatTooNew; a torn write (the two copies disagree)
// or any I/O error is reported as "absent" (ok == false) rather than an
// error, since the file is only ever a fallback hint (spec §4.5) —
// GenerationFinder's Method B treats it exactly that way.
func readSegmentsGen(dir Directory) (gen int64, ok bool, err error) {
	in, openErr := dir.OpenInput(segdirent.SegmentsGenName)
	if openErr != nil {
		return 0, false, nil
	}
	defer in.Close()

	format, readErr := readInt32(in)
	if readErr != nil {
		return 0, false, nil
	}
	if format != formatSegmentsGenCurrent {
		return 0, false, errors.Wrapf(segdirent.ErrFormatTooNew, "segments.gen format %d", format)
	}
	first, readErr := readInt64(in)
	if readErr != nil {
		return 0, false, nil
	}
	second, readErr := readInt64(in)
	if readErr != nil {
		return 0, false, nil
	}
	if first != second {
		return 0, false, nil
	}
	return first, true, nil
}
