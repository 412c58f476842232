// Package indexsync propagates post mutations from the record store into the
// search index. The record store write has already committed by the time the
// bridge runs, so index failures are reported as a Result and logged, never
// returned to the caller as an error.
package indexsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/models"
	"github.com/BorisDmv/blog-cms/internal/search"
)

// Indexer is the write side of the search index.
type Indexer interface {
	Put(ctx context.Context, id string, doc models.SearchDocument) error
	Delete(ctx context.Context, id string) error
}

type Op string

const (
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// IndexingError records a failed propagation for one post.
type IndexingError struct {
	PostID string
	Op     Op
	Err    error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("%s post %s in search index: %v", e.Op, e.PostID, e.Err)
}

func (e *IndexingError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one propagation. Err is nil on success and when
// there was nothing to do.
type Result struct {
	PostID  string
	Op      Op
	Skipped bool
	Err     *IndexingError
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Bridge struct {
	index   Indexer
	log     *logrus.Entry
	timeout time.Duration
	locks   *keyedMutex
}

// New returns a bridge writing to index. A nil index disables propagation;
// every call then yields a skipped Result.
func New(index Indexer, log *logrus.Entry, timeout time.Duration) *Bridge {
	return &Bridge{
		index:   index,
		log:     log,
		timeout: timeout,
		locks:   newKeyedMutex(),
	}
}

// Enabled reports whether an index is attached.
func (b *Bridge) Enabled() bool {
	return b.index != nil
}

// Lock serializes work on one post. Holding it across the record store
// write and the propagation keeps index operations for that post in commit
// order.
func (b *Bridge) Lock(postID string) (unlock func()) {
	return b.locks.Lock(postID)
}

// PostSaved upserts the search document of post. Repeating the call with the
// same post state leaves the index unchanged.
func (b *Bridge) PostSaved(ctx context.Context, post models.Post) Result {
	res := Result{PostID: post.ID, Op: OpUpsert}
	if b.index == nil {
		res.Skipped = true
		return res
	}

	ctx, cancel := b.detach(ctx)
	defer cancel()

	if err := b.index.Put(ctx, post.ID, post.SearchDocument()); err != nil {
		res.Err = &IndexingError{PostID: post.ID, Op: OpUpsert, Err: err}
	}
	b.report(res)
	return res
}

// PostDeleted removes the search document of postID. A document that is
// already gone is not a failure.
func (b *Bridge) PostDeleted(ctx context.Context, postID string) Result {
	res := Result{PostID: postID, Op: OpDelete}
	if b.index == nil {
		res.Skipped = true
		return res
	}

	ctx, cancel := b.detach(ctx)
	defer cancel()

	err := b.index.Delete(ctx, postID)
	switch {
	case err == nil:
	case errors.Is(err, search.ErrNotFound):
		res.Skipped = true
	default:
		res.Err = &IndexingError{PostID: postID, Op: OpDelete, Err: err}
	}
	b.report(res)
	return res
}

// detach keeps the propagation alive when the request that triggered it is
// cancelled, bounded by the bridge timeout.
func (b *Bridge) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *Bridge) report(res Result) {
	entry := b.log.WithFields(logrus.Fields{"post_id": res.PostID, "op": string(res.Op)})
	switch {
	case res.Err != nil:
		entry.WithError(res.Err.Err).Error("search index propagation failed")
	case res.Skipped:
		entry.Debug("search document already absent")
	default:
		entry.Debug("search index updated")
	}
}
