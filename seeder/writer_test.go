package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offergrid/offergrid/models"
	"github.com/offergrid/offergrid/utils"
)

type recordedCall struct {
	query string
	args  []any
}

// recordingExecutor captures statements instead of executing them. Exec is
// safe for the concurrent flush path; failOn, when set, is consulted under
// the same lock and its statement is not recorded.
type recordingExecutor struct {
	mu     sync.Mutex
	calls  []recordedCall
	failOn func(query string) error
}

func (e *recordingExecutor) Exec(_ context.Context, query string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOn != nil {
		if err := e.failOn(query); err != nil {
			return err
		}
	}
	e.calls = append(e.calls, recordedCall{query: query, args: args})
	return nil
}

func (e *recordingExecutor) callsFor(table string) []recordedCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []recordedCall
	for _, c := range e.calls {
		if strings.HasPrefix(c.query, "INSERT INTO "+table+" ") {
			out = append(out, c)
		}
	}
	return out
}

func (e *recordingExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func rowCount(c recordedCall, columns int) int {
	return len(c.args) / columns
}

func makeOffers(n int) []models.Offer {
	offers := make([]models.Offer, 0, n)
	for i := 0; i < n; i++ {
		offers = append(offers, models.Offer{
			NotificationZone:    "POLYGON((0 0,1 0,1 1,0 1,0 0))",
			NotificationContent: fmt.Sprintf("%d%% off at Prada", 10+i%40),
			NotificationTarget:  "https://www.prada.com/offers/5",
			MaximumBidCents:     int64(2 + i%13),
			Segments: []models.Segment{
				models.NewSegment(models.SegmentIntervalDay, models.SegmentKindPurchase, "vendor-"+strconv.Itoa(i)),
			},
		})
	}
	return offers
}

func TestSegmentWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("UpsertsDerivedIDsWithAllColumns", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewSegmentWriter(exec)

		first := models.NewSegment(models.SegmentIntervalMinute, models.SegmentKindPurchase, "Prada")
		second := models.NewSegment(models.SegmentIntervalHour, models.SegmentKindGeocode8, "87G8Q2XF+")
		require.NoError(t, w.WriteSegments(ctx, []models.Segment{first, second}))

		calls := exec.callsFor("segments")
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].query, "ON CONFLICT (segment_id) DO UPDATE SET")
		assert.Equal(t, []any{
			first.SegmentID, models.SegmentIntervalMinute, models.SegmentKindPurchase, "Prada",
			second.SegmentID, models.SegmentIntervalHour, models.SegmentKindGeocode8, "87G8Q2XF+",
		}, calls[0].args)
	})

	t.Run("CollapsesDuplicateIDsToFirstOccurrence", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewSegmentWriter(exec)

		dup := models.NewSegment(models.SegmentIntervalWeek, models.SegmentKindRequest, "prada.com")
		other := models.NewSegment(models.SegmentIntervalMonth, models.SegmentKindPurchase, "Zara")
		require.NoError(t, w.WriteSegments(ctx, []models.Segment{dup, dup, other}))

		calls := exec.callsFor("segments")
		require.Len(t, calls, 1)
		assert.Equal(t, 2, rowCount(calls[0], len(segmentColumns)))
		assert.Equal(t, dup.SegmentID, calls[0].args[0])
		assert.Equal(t, other.SegmentID, calls[0].args[4])
	})

	t.Run("EmptyInputIssuesNoStatement", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewSegmentWriter(exec)

		require.NoError(t, w.WriteSegments(ctx, nil))

		assert.Zero(t, exec.callCount())
	})

	t.Run("PropagatesExecutorError", func(t *testing.T) {
		boom := errors.New("connection reset")
		exec := &recordingExecutor{failOn: func(string) error { return boom }}
		w := NewSegmentWriter(exec)

		err := w.WriteSegments(ctx, []models.Segment{models.NewSegment(models.SegmentIntervalDay, models.SegmentKindPurchase, "Dior")})

		assert.ErrorIs(t, err, boom)
	})
}

func TestOfferWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("FlushesMatchBatchBoundaries", func(t *testing.T) {
		testCases := []struct {
			offers      int
			wantFlushes int
		}{
			{offers: 0, wantFlushes: 0},
			{offers: 1, wantFlushes: 1},
			{offers: 499, wantFlushes: 1},
			{offers: 500, wantFlushes: 1},
			{offers: 501, wantFlushes: 2},
			{offers: 1000, wantFlushes: 2},
		}

		for _, tc := range testCases {
			t.Run(fmt.Sprintf("%dOffers", tc.offers), func(t *testing.T) {
				exec := &recordingExecutor{}
				w := NewOfferWriter(exec, 1)

				require.NoError(t, w.WriteOffers(ctx, makeOffers(tc.offers)))

				assert.Equal(t, tc.wantFlushes, w.Flushes())
				offerCalls := exec.callsFor("offers")
				require.Len(t, offerCalls, tc.wantFlushes)
				assert.Len(t, exec.callsFor("segments"), tc.wantFlushes)

				total := 0
				for _, c := range offerCalls {
					total += rowCount(c, len(offerColumns))
				}
				assert.Equal(t, tc.offers, total)
			})
		}
	})

	t.Run("ZeroInputTouchesNothing", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewOfferWriter(exec, 1)

		require.NoError(t, w.WriteOffers(ctx, nil))

		assert.Zero(t, exec.callCount())
		assert.Zero(t, w.Flushes())
		assert.Zero(t, w.Pending())
	})

	t.Run("FinalFlushCarriesRemainder", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewOfferWriter(exec, 1)

		require.NoError(t, w.WriteOffers(ctx, makeOffers(501)))

		offerCalls := exec.callsFor("offers")
		require.Len(t, offerCalls, 2)
		assert.Equal(t, 500, rowCount(offerCalls[0], len(offerColumns)))
		assert.Equal(t, 1, rowCount(offerCalls[1], len(offerColumns)))
	})

	t.Run("SegmentsCommitWithinTheirOffersFlush", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewOfferWriter(exec, 1)

		shared := models.NewSegment(models.SegmentIntervalDay, models.SegmentKindPurchase, "Gucci")
		extra := models.NewSegment(models.SegmentIntervalHour, models.SegmentKindRequest, "gucci.io")
		offers := makeOffers(2)
		offers[0].Segments = []models.Segment{shared}
		offers[1].Segments = []models.Segment{shared, extra}

		require.NoError(t, w.WriteOffers(ctx, offers))

		segmentCalls := exec.callsFor("segments")
		require.Len(t, segmentCalls, 1)
		assert.Equal(t, 2, rowCount(segmentCalls[0], len(segmentColumns)))
		assert.Equal(t, shared.SegmentID, segmentCalls[0].args[0])
		assert.Equal(t, extra.SegmentID, segmentCalls[0].args[4])
	})

	t.Run("RepeatedSegmentAcrossFlushesIsRewrittenSafely", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewOfferWriter(exec, 1)

		same := models.NewSegment(models.SegmentIntervalMinute, models.SegmentKindGeocode6, "87G8Q200+")
		offers := makeOffers(501)
		for i := range offers {
			offers[i].Segments = []models.Segment{same}
		}

		require.NoError(t, w.WriteOffers(ctx, offers))

		segmentCalls := exec.callsFor("segments")
		require.Len(t, segmentCalls, 2)
		for _, c := range segmentCalls {
			assert.Equal(t, 1, rowCount(c, len(segmentColumns)))
			assert.Equal(t, same.SegmentID, c.args[0])
		}
	})

	t.Run("SegmentIDsColumnIsOrderedJSON", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewOfferWriter(exec, 77)

		offer := makeOffers(1)[0]
		offer.Segments = []models.Segment{
			models.NewSegment(models.SegmentIntervalMonth, models.SegmentKindPurchase, "Omega"),
			models.NewSegment(models.SegmentIntervalMinute, models.SegmentKindGeocode8, "87G8Q2XF+"),
		}

		require.NoError(t, w.WriteOffers(ctx, []models.Offer{offer}))

		offerCalls := exec.callsFor("offers")
		require.Len(t, offerCalls, 1)
		assert.Equal(t, int64(77), offerCalls[0].args[0])

		raw, ok := offerCalls[0].args[2].(string)
		require.True(t, ok)
		var ids models.SegmentIDList
		require.NoError(t, json.Unmarshal([]byte(raw), &ids))
		assert.Equal(t, offer.DerivedSegmentIDs(), ids)
	})

	t.Run("FlushFailureReportsIndexAndCause", func(t *testing.T) {
		boom := errors.New("deadlock detected")
		offerStmts := 0
		exec := &recordingExecutor{failOn: func(query string) error {
			if strings.HasPrefix(query, "INSERT INTO offers ") {
				offerStmts++
				if offerStmts == 2 {
					return boom
				}
			}
			return nil
		}}
		w := NewOfferWriter(exec, 1)

		err := w.WriteOffers(ctx, makeOffers(501))

		require.Error(t, err)
		fe, ok := AsFlushError(err)
		require.True(t, ok)
		assert.Equal(t, 1, fe.Index)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, w.Flushes())
	})

	t.Run("FailedFlushKeepsBatchForRetry", func(t *testing.T) {
		boom := errors.New("server unavailable")
		remaining := 1
		exec := &recordingExecutor{failOn: func(query string) error {
			if remaining > 0 && strings.HasPrefix(query, "INSERT INTO offers ") {
				remaining--
				return boom
			}
			return nil
		}}
		w := NewOfferWriter(exec, 1)

		require.NoError(t, w.Append(ctx, makeOffers(1)[0]))
		err := w.Flush(ctx)
		require.Error(t, err)
		assert.Equal(t, 1, w.Pending())
		assert.Zero(t, w.Flushes())

		require.NoError(t, w.Flush(ctx))
		assert.Zero(t, w.Pending())
		assert.Equal(t, 1, w.Flushes())
		offerCalls := exec.callsFor("offers")
		require.Len(t, offerCalls, 1)
		assert.Equal(t, 1, rowCount(offerCalls[0], len(offerColumns)))
	})

	t.Run("GeneratedCityWritesInThreeFlushes", func(t *testing.T) {
		exec := &recordingExecutor{}
		w := NewOfferWriter(exec, utils.DefaultCustomerID)

		city := models.NewCity("New York", -73.993562, 40.727063, 0.15)
		gen := NewGenerator(DefaultVendors, 7)
		offers := gen.RandomOffers(city, 1200)
		require.Len(t, offers, 1200)

		require.NoError(t, w.WriteOffers(ctx, offers))

		assert.Equal(t, 3, w.Flushes())
		offerCalls := exec.callsFor("offers")
		require.Len(t, offerCalls, 3)
		assert.Equal(t, 500, rowCount(offerCalls[0], len(offerColumns)))
		assert.Equal(t, 500, rowCount(offerCalls[1], len(offerColumns)))
		assert.Equal(t, 200, rowCount(offerCalls[2], len(offerColumns)))

		for _, c := range offerCalls {
			for row := 0; row < rowCount(c, len(offerColumns)); row++ {
				base := row * len(offerColumns)
				assert.Equal(t, utils.DefaultCustomerID, c.args[base])
				assert.True(t, strings.HasPrefix(c.args[base+1].(string), "POLYGON(("))

				var ids []int64
				require.NoError(t, json.Unmarshal([]byte(c.args[base+2].(string)), &ids))
				require.NotEmpty(t, ids)
				assert.LessOrEqual(t, len(ids), 2)
				for _, id := range ids {
					assert.GreaterOrEqual(t, id, int64(0))
				}

				bid := c.args[base+5].(int64)
				assert.GreaterOrEqual(t, bid, int64(2))
				assert.Less(t, bid, int64(15))
			}
		}

		segmentCalls := exec.callsFor("segments")
		require.Len(t, segmentCalls, 3)
		for _, c := range segmentCalls {
			for row := 0; row < rowCount(c, len(segmentColumns)); row++ {
				base := row * len(segmentColumns)
				assert.GreaterOrEqual(t, c.args[base].(int64), int64(0))
				assert.True(t, c.args[base+1].(models.SegmentInterval).Valid())
				assert.True(t, c.args[base+2].(models.SegmentKind).Valid())
				assert.NotEmpty(t, c.args[base+3].(string))
			}
		}
	})
}
