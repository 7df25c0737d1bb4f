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

package admin

import "sync"

// InMemoryQueue is a single-process OverseerQueue backed by a worker
// function, standing in for the distributed overseer the teacher's own
// cluster code would dispatch to. It is the demonstration/default
// implementation used by this package's tests.
type InMemoryQueue struct {
	mu     sync.Mutex
	worker func(Request) Response
}

// NewInMemoryQueue binds a queue to the given worker, invoked once per
// Enqueue call in its own goroutine to produce the Response delivered on
// the returned channel.
func NewInMemoryQueue(worker func(Request) Response) *InMemoryQueue {
	return &InMemoryQueue{worker: worker}
}

// Enqueue runs the bound worker in a new goroutine and delivers its
// result on the returned channel exactly once.
func (q *InMemoryQueue) Enqueue(req Request) (<-chan Response, error) {
	ch := make(chan Response, 1)
	go func() {
		q.mu.Lock()
		worker := q.worker
		q.mu.Unlock()
		ch <- worker(req)
	}()
	return ch, nil
}
