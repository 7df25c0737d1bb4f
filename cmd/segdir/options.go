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

package main

import "time"

// Options represents segdir's command line options.
type Options struct {
	Action       string        `long:"action" description:"one of commit, inspect, watch" required:"true"`
	Dir          string        `long:"dir" description:"directory holding the segments_N files" required:"true"`
	Anchor       string        `long:"anchor" description:"an explicit segments_N file name to trust outright, bypassing discovery"`
	PollInterval time.Duration `long:"poll-interval" description:"how often watch re-checks the directory" default:"1s"`
}
