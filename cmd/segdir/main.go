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

// Command segdir is a small demonstration CLI over the segment-set commit
// manager: it can perform a one-shot commit of a new, empty segment set
// (written as generation 1), inspect the current generation of a
// directory, or watch a directory for commits made by another process.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	segdir "github.com/weaviate/segdir/adapters/repos/db/segdir"
	segdirent "github.com/weaviate/segdir/entities/segdir"
)

func main() {
	var opts Options
	log := logrus.WithFields(logrus.Fields{"app": "segdir"}).Logger

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	switch opts.Action {
	case "commit":
		runCommit(opts, log)
	case "inspect":
		runInspect(opts, log)
	case "watch":
		runWatch(opts, log)
	default:
		log.Fatal("--action must be one of commit, inspect, watch")
	}
}

func runCommit(opts Options, log *logrus.Logger) {
	dir, err := segdir.NewFSDirectory(opts.Dir)
	if err != nil {
		log.WithError(err).Fatal("open directory")
	}

	set := segdirent.NewSegmentSet()
	registry := segdirent.NewCodecRegistry()
	metrics := segdir.NewMetrics(nil)
	engine := segdir.NewCommitEngine(dir, set, registry, log, metrics)

	if err := engine.Prepare(); err != nil {
		log.WithError(err).Fatal("prepare")
	}
	if err := engine.Finish(); err != nil {
		log.WithError(err).Fatal("finish")
	}
	fmt.Printf("committed generation %d\n", set.LastGeneration)
}

func runInspect(opts Options, log *logrus.Logger) {
	dir, err := segdir.NewFSDirectory(opts.Dir)
	if err != nil {
		log.WithError(err).Fatal("open directory")
	}

	registry := segdirent.NewCodecRegistry()
	codec := segdir.NewManifestCodec(registry)
	finder := segdir.NewGenerationFinder(dir, segdirent.DefaultFinderConfig())

	set, err := segdir.Find(finder, opts.Anchor, func(name string) (*segdirent.SegmentSet, error) {
		return codec.ReadManifest(dir, name)
	})
	if err != nil {
		log.WithError(err).Fatal("locate current generation")
	}
	fmt.Printf("generation=%d version=%d segments=%s\n", set.Generation, set.Version, set.String())
}

func runWatch(opts Options, log *logrus.Logger) {
	dir, err := segdir.NewFSDirectory(opts.Dir)
	if err != nil {
		log.WithError(err).Fatal("open directory")
	}

	registry := segdirent.NewCodecRegistry()
	codec := segdir.NewManifestCodec(registry)
	finder := segdir.NewGenerationFinder(dir, segdirent.DefaultFinderConfig())

	var lastGen int64 = -1
	for {
		set, err := segdir.Find(finder, "", func(name string) (*segdirent.SegmentSet, error) {
			return codec.ReadManifest(dir, name)
		})
		if err != nil {
			log.WithError(err).Warn("poll failed, retrying")
		} else if set.Generation != lastGen {
			lastGen = set.Generation
			fmt.Printf("generation=%d segments=%s\n", set.Generation, set.String())
		}
		time.Sleep(opts.PollInterval)
	}
}
