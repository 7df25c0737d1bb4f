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

import "fmt"

// Codec is the opaque per-segment reader/writer this package dispatches
// to by name. Its actual postings/deletion/norms implementation is a
// collaborator outside this module's scope (spec §1); only the name and
// the sidecar file convention it produces matter here.
type Codec struct {
	Name string
}

// CodecRegistry is a static registration table of known per-segment
// codecs, populated at program start. This replaces the source's dynamic
// class-path service enumeration (the Android shim, spec §9): there is no
// class loader in Go, so known codecs are registered explicitly instead of
// discovered.
type CodecRegistry struct {
	byName map[string]Codec
}

// NewCodecRegistry returns a registry pre-populated with the legacy codec
// every manifest reader must recognize, plus any additional codecs.
func NewCodecRegistry(additional ...Codec) *CodecRegistry {
	r := &CodecRegistry{byName: make(map[string]Codec)}
	r.Register(Codec{Name: LegacyCodecName})
	for _, c := range additional {
		r.Register(c)
	}
	return r
}

// Register adds c to the table, overwriting any previous entry with the
// same name.
func (r *CodecRegistry) Register(c Codec) {
	r.byName[c.Name] = c
}

// Lookup resolves a codec by name.
func (r *CodecRegistry) Lookup(name string) (Codec, error) {
	c, ok := r.byName[name]
	if !ok {
		return Codec{}, fmt.Errorf("segdir: unknown codec %q", name)
	}
	return c, nil
}

// Names returns every registered codec name, for diagnostics.
func (r *CodecRegistry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}
