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
)

func TestCodecRegistry(t *testing.T) {
	r := NewCodecRegistry(Codec{Name: "Lucene99"})

	c, err := r.Lookup("Lucene99")
	require.NoError(t, err)
	assert.Equal(t, "Lucene99", c.Name)

	_, err = r.Lookup(LegacyCodecName)
	require.NoError(t, err, "legacy codec is always pre-registered")

	_, err = r.Lookup("does-not-exist")
	assert.Error(t, err)
}
