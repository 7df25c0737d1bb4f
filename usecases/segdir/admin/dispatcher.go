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

// Package admin implements the AdminDispatcher collaborator (spec §4.7):
// the thin ingress that turns CREATE/DELETE/RELOAD/SYNCSHARD requests
// into either a queued-and-awaited overseer operation or, for SYNCSHARD, a
// direct synchronous RPC to the resolved shard leader. It is not part of
// the commit manager's hard core; it is specified here only because the
// broader repository this module was extracted from includes it (spec
// §1).
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	segdirent "github.com/weaviate/segdir/entities/segdir"
)

// Action identifies one of the four operations AdminDispatcher accepts.
type Action string

const (
	ActionCreate    Action = "CREATE"
	ActionDelete    Action = "DELETE"
	ActionReload    Action = "RELOAD"
	ActionSyncShard Action = "SYNCSHARD"
)

// ErrBadRequest and ErrServerError are the same sentinel kinds the rest
// of this module uses (spec §7); AdminDispatcher does not invent its own
// taxonomy.
var (
	ErrBadRequest  = segdirent.ErrBadRequest
	ErrServerError = segdirent.ErrServerError
)

// defaultZKTimeout is the default bounded wait on a queued operation
// (spec §6's zk_timeout knob), named for the original's ZooKeeper-backed
// overseer queue even though this module's OverseerQueue is transport
// agnostic.
const defaultZKTimeout = time.Duration(segdirent.DefaultZKTimeout) * time.Second

// requiredParams lists, per action, the request parameters that must be
// present or AdminDispatcher fails fast with ErrBadRequest before ever
// touching the queue or the cluster-state oracle.
var requiredParams = map[Action][]string{
	ActionCreate:    {"name"},
	ActionDelete:    {"name"},
	ActionReload:    {"name"},
	ActionSyncShard: {"collection", "shard"},
}

// Request is the {operation, args} blob enqueued on the overseer queue
// (spec §4.7).
type Request struct {
	ID        string
	Operation Action
	Args      map[string]string
}

// Response is what the overseer eventually produces for a queued Request,
// or the error it reported.
type Response struct {
	Payload map[string]string
	Err     error
}

// OverseerQueue is the external collaborator AdminDispatcher enqueues
// CREATE/DELETE/RELOAD operations on. Implementations deliver exactly one
// Response on the returned channel, or close it without a value if a
// watch fired without ever producing one (spec §4.7).
type OverseerQueue interface {
	Enqueue(req Request) (<-chan Response, error)
}

// ClusterStateOracle resolves which node currently leads a shard, for the
// SYNCSHARD path (spec §4.7).
type ClusterStateOracle interface {
	ShardLeader(collection, shard string) (string, error)
}

// ShardRPC issues the direct synchronous sync-shard call to a resolved
// leader, bypassing the overseer queue entirely.
type ShardRPC interface {
	SyncShard(ctx context.Context, leader, collection, shard string) error
}

// AdminDispatcher is the collaborator spec'd in §4.7. It is deliberately
// thin: parameter validation, then either an enqueue-and-await or a
// direct RPC.
type AdminDispatcher struct {
	queue   OverseerQueue
	oracle  ClusterStateOracle
	rpc     ShardRPC
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewAdminDispatcher constructs a dispatcher with the default 60s
// zk_timeout (spec §6); use WithTimeout to override it.
func NewAdminDispatcher(queue OverseerQueue, oracle ClusterStateOracle, rpc ShardRPC, logger logrus.FieldLogger) *AdminDispatcher {
	if logger == nil {
		logger = discardFieldLogger()
	}
	return &AdminDispatcher{
		queue:   queue,
		oracle:  oracle,
		rpc:     rpc,
		timeout: defaultZKTimeout,
		logger:  logger,
	}
}

// WithTimeout overrides the default zk_timeout.
func (d *AdminDispatcher) WithTimeout(timeout time.Duration) *AdminDispatcher {
	d.timeout = timeout
	return d
}

// Dispatch validates params for action, then routes CREATE/DELETE/RELOAD
// through the overseer queue with a bounded wait, or SYNCSHARD through a
// direct RPC to the resolved shard leader (spec §4.7).
func (d *AdminDispatcher) Dispatch(ctx context.Context, action Action, params map[string]string) (map[string]string, error) {
	for _, p := range requiredParams[action] {
		if params[p] == "" {
			return nil, errors.Wrapf(ErrBadRequest, "missing required parameter %q", p)
		}
	}

	if action == ActionSyncShard {
		return d.syncShard(ctx, params)
	}
	return d.enqueueAndAwait(ctx, action, params)
}

func (d *AdminDispatcher) syncShard(ctx context.Context, params map[string]string) (map[string]string, error) {
	leader, err := d.oracle.ShardLeader(params["collection"], params["shard"])
	if err != nil {
		return nil, errors.Wrap(err, "resolve shard leader")
	}
	if err := d.rpc.SyncShard(ctx, leader, params["collection"], params["shard"]); err != nil {
		return nil, errors.Wrapf(err, "sync shard on leader %s", leader)
	}
	return map[string]string{"leader": leader}, nil
}

// enqueueAndAwait submits req and blocks, with a bounded timeout, for the
// overseer's response. On timeout it returns ErrServerError("timeout");
// on a watch firing without a response it returns ErrServerError with the
// watch details; on a genuine response it returns the response payload
// (spec §4.7).
func (d *AdminDispatcher) enqueueAndAwait(ctx context.Context, action Action, params map[string]string) (map[string]string, error) {
	req := Request{ID: uuid.NewString(), Operation: action, Args: params}
	ch, err := d.queue.Enqueue(req)
	if err != nil {
		return nil, errors.Wrap(err, "enqueue admin operation")
	}

	boundedCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// A single watcher goroutine waits on the overseer's response channel;
	// errgroup propagates its error and ties it to the bounded context.
	// errgroup does not recover panics: a panic in the watcher is not
	// caught here.
	var resp Response
	var gotResponse bool
	g, gctx := errgroup.WithContext(boundedCtx)
	g.Go(func() error {
		select {
		case r, ok := <-ch:
			if !ok {
				return errors.Wrapf(ErrServerError, "watch fired without response for request %s", req.ID)
			}
			resp = r
			gotResponse = true
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			d.logger.WithField("action", "admin_dispatch_timeout").
				WithField("operation", string(action)).
				WithField("request_id", req.ID).
				Warn("timed out waiting for overseer response")
			return nil, errors.Wrap(ErrServerError, "timeout")
		}
		return nil, err
	}
	if !gotResponse {
		return nil, errors.Wrap(ErrServerError, "no response received")
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Payload, nil
}
