package seeder

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/offergrid/offergrid/models"
)

// Executor runs one parameterized statement against the backing store. The
// writers never classify execution errors; they propagate them unchanged.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// OfferBatchSize is the number of offers accumulated before the writer
// flushes both relations together.
const OfferBatchSize = 500

var (
	segmentColumns = []string{"segment_id", "valid_interval", "filter_kind", "filter_value"}
	offerColumns   = []string{"customer_id", "notification_zone", "segment_ids", "notification_content", "notification_target", "maximum_bid_cents"}
)

// SegmentWriter commits segment descriptors with replace-on-conflict
// semantics, so re-writing an already known segment refreshes its columns
// instead of erroring. Identity is always recomputed from the descriptor
// fields; callers never supply ids.
type SegmentWriter struct {
	exec Executor
}

func NewSegmentWriter(exec Executor) *SegmentWriter {
	return &SegmentWriter{exec: exec}
}

// WriteSegments upserts the given segments in one statement. Repeated ids
// within one call collapse to their first occurrence, since a single
// statement must not target the same conflicting row twice.
func (w *SegmentWriter) WriteSegments(ctx context.Context, segments []models.Segment) error {
	if len(segments) == 0 {
		return nil
	}

	builder := NewUpsertBuilder("segments", []string{"segment_id"}, segmentColumns...)
	seen := make(map[int64]struct{}, len(segments))
	for _, seg := range segments {
		id := models.DeriveSegmentID(seg.ValidInterval, seg.FilterKind, seg.FilterValue)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := builder.Append(id, seg.ValidInterval, seg.FilterKind, seg.FilterValue); err != nil {
			return err
		}
	}

	stmt, args := builder.Build()
	if stmt == "" {
		return nil
	}
	return w.exec.Exec(ctx, stmt, args...)
}

// OfferWriter accumulates offer rows together with the union of their
// segments, and flushes both relations at each batch boundary. Append and
// Flush are the explicit state transitions; WriteOffers is the driving loop.
// A writer owns its builder and pending segments and must not be shared
// across goroutines.
type OfferWriter struct {
	exec       Executor
	segments   *SegmentWriter
	customerID int64

	builder  *UpsertBuilder
	pending  []models.Segment
	appended int
	flushes  int
}

// NewOfferWriter creates a writer that stamps every offer row with the given
// owning customer id.
func NewOfferWriter(exec Executor, customerID int64) *OfferWriter {
	return &OfferWriter{
		exec:       exec,
		segments:   NewSegmentWriter(exec),
		customerID: customerID,
		builder:    NewUpsertBuilder("offers", nil, offerColumns...),
	}
}

// Append accumulates one offer and flushes when the batch threshold is
// reached. The offer's segment ids are derived and serialized here, in
// declaration order; its segments join the pending union, where duplicates
// across offers are tolerated and collapsed at flush time.
func (w *OfferWriter) Append(ctx context.Context, offer models.Offer) error {
	ids, err := json.Marshal(offer.DerivedSegmentIDs())
	if err != nil {
		return fmt.Errorf("failed to serialize segment ids: %w", err)
	}

	if err := w.builder.Append(
		w.customerID,
		offer.NotificationZone,
		string(ids),
		offer.NotificationContent,
		offer.NotificationTarget,
		offer.MaximumBidCents,
	); err != nil {
		return err
	}
	w.pending = append(w.pending, offer.Segments...)
	w.appended++

	if w.appended >= OfferBatchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush executes the offers statement and the pending segments write
// concurrently, waits for both, then resets the batch. Flushing with
// nothing accumulated is a no-op. On failure the batch is kept intact, so
// calling Flush again retries the whole flush.
func (w *OfferWriter) Flush(ctx context.Context) error {
	if w.appended == 0 {
		return nil
	}

	stmt, args := w.builder.Build()
	pending := w.pending

	var g errgroup.Group
	g.Go(func() error {
		return w.exec.Exec(ctx, stmt, args...)
	})
	g.Go(func() error {
		return w.segments.WriteSegments(ctx, pending)
	})
	if err := g.Wait(); err != nil {
		return &FlushError{Index: w.flushes, Err: err}
	}

	w.builder.Clear()
	w.pending = w.pending[:0]
	w.appended = 0
	w.flushes++
	return nil
}

// Flushes returns how many flushes have completed since the last reset.
func (w *OfferWriter) Flushes() int {
	return w.flushes
}

// Pending returns how many offers are accumulated and not yet flushed.
func (w *OfferWriter) Pending() int {
	return w.appended
}

// WriteOffers writes all offers in input order, flushing at every batch
// boundary and once more for any remainder. The total of rows written
// equals the input length, and each offer's segments are committed within
// the same flush as its row.
func (w *OfferWriter) WriteOffers(ctx context.Context, offers []models.Offer) error {
	w.reset()
	for _, offer := range offers {
		if err := w.Append(ctx, offer); err != nil {
			return err
		}
	}
	return w.Flush(ctx)
}

func (w *OfferWriter) reset() {
	w.builder.Clear()
	w.pending = w.pending[:0]
	w.appended = 0
	w.flushes = 0
}
