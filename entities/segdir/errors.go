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

// Package segdir holds the pure data types of the segment-set commit
// manager: segment descriptors, segment sets, the error taxonomy shared by
// every layer, and the discovery/codec configuration knobs.
package segdir

import "errors"

// Sentinel error kinds. Commit and discovery code wraps these with
// github.com/pkg/errors to attach context; callers compare with errors.Is.
var (
	// ErrCorruptManifest is returned when a segments_N file's trailing
	// checksum does not match its payload, or its framing is malformed.
	ErrCorruptManifest = errors.New("segdir: corrupt manifest")

	// ErrFormatTooNew is returned when a segments_N or segments.gen file
	// declares a format version newer than this reader understands.
	ErrFormatTooNew = errors.New("segdir: format too new")

	// ErrIndexNotFound is returned when a directory contains no segments*
	// file at all.
	ErrIndexNotFound = errors.New("segdir: index not found")

	// ErrNoSuchDirectory is returned when the directory itself does not
	// exist, as distinct from an empty or corrupt one.
	ErrNoSuchDirectory = errors.New("segdir: no such directory")

	// ErrDuplicateSegment is returned by SegmentSet.Add when the same
	// descriptor identity is already a member.
	ErrDuplicateSegment = errors.New("segdir: duplicate segment")

	// ErrIllegalState is returned when CommitEngine's prepare/finish/
	// rollback are called out of order, or a precondition such as
	// SegmentSet.Files(includeSegmentsFile=true) with lastGeneration == -1
	// is violated.
	ErrIllegalState = errors.New("segdir: illegal state")

	// ErrIOFailure wraps an underlying IndexDirectory I/O error that does
	// not fall into one of the more specific kinds above.
	ErrIOFailure = errors.New("segdir: I/O failure")

	// ErrBadRequest is returned by AdminDispatcher when a required
	// parameter is missing.
	ErrBadRequest = errors.New("segdir: bad request")

	// ErrServerError is returned by AdminDispatcher on enqueue timeout or
	// a watch firing without a response payload.
	ErrServerError = errors.New("segdir: server error")
)
