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

import segdirent "github.com/weaviate/segdir/entities/segdir"

// upgradeLegacySidecars writes a legacy-layout ".si" sidecar for every
// descriptor in set that is legacy (absent or "3."-prefixed version, spec
// §3) and does not already have one on disk. It returns the names it
// created, in creation order, so the caller can delete exactly those on
// failure (spec §4.2: "the write is atomic from the manifest's
// perspective").
func upgradeLegacySidecars(dir Directory, set *segdirent.SegmentSet) ([]string, error) {
	var written []string
	for _, d := range set.Segments() {
		if !d.IsLegacy() {
			continue
		}
		exists, err := dir.FileExists(d.SidecarName())
		if err != nil {
			return written, err
		}
		if exists {
			continue
		}
		if err := writeLegacySidecar(dir, d); err != nil {
			return written, err
		}
		written = append(written, d.SidecarName())
	}
	return written, nil
}
