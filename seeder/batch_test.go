package seeder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertBuilder(t *testing.T) {
	t.Run("BuildWithNoRowsReturnsEmptyStatement", func(t *testing.T) {
		b := NewUpsertBuilder("segments", []string{"segment_id"}, "segment_id", "filter_value")

		stmt, args := b.Build()

		assert.Empty(t, stmt)
		assert.Nil(t, args)
		assert.Equal(t, 0, b.Len())
	})

	t.Run("SingleRowInsertWithoutConflictKeys", func(t *testing.T) {
		b := NewUpsertBuilder("offers", nil, "customer_id", "maximum_bid_cents")

		require.NoError(t, b.Append(int64(1), int64(7)))
		stmt, args := b.Build()

		assert.Equal(t, "INSERT INTO offers (customer_id, maximum_bid_cents) VALUES (?,?)", stmt)
		assert.Equal(t, []any{int64(1), int64(7)}, args)
	})

	t.Run("MultiRowFlattensParamsInRowOrder", func(t *testing.T) {
		b := NewUpsertBuilder("offers", nil, "customer_id", "maximum_bid_cents")

		require.NoError(t, b.Append(int64(1), int64(2)))
		require.NoError(t, b.Append(int64(3), int64(4)))
		require.NoError(t, b.Append(int64(5), int64(6)))
		stmt, args := b.Build()

		assert.Equal(t, "INSERT INTO offers (customer_id, maximum_bid_cents) VALUES (?,?),(?,?),(?,?)", stmt)
		assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5), int64(6)}, args)
		assert.Equal(t, 3, b.Len())
	})

	t.Run("ConflictKeysProduceReplaceClause", func(t *testing.T) {
		b := NewUpsertBuilder("segments", []string{"segment_id"}, "segment_id", "valid_interval", "filter_kind", "filter_value")

		require.NoError(t, b.Append(int64(10), "minute", "purchase", "Prada"))
		stmt, _ := b.Build()

		assert.Equal(t,
			"INSERT INTO segments (segment_id, valid_interval, filter_kind, filter_value) VALUES (?,?,?,?)"+
				" ON CONFLICT (segment_id) DO UPDATE SET valid_interval = EXCLUDED.valid_interval,"+
				" filter_kind = EXCLUDED.filter_kind, filter_value = EXCLUDED.filter_value",
			stmt)
	})

	t.Run("AllColumnsAsKeysFallBackToDoNothing", func(t *testing.T) {
		b := NewUpsertBuilder("memberships", []string{"offer_id", "segment_id"}, "offer_id", "segment_id")

		require.NoError(t, b.Append(int64(1), int64(2)))
		stmt, _ := b.Build()

		assert.Equal(t, "INSERT INTO memberships (offer_id, segment_id) VALUES (?,?) ON CONFLICT (offer_id, segment_id) DO NOTHING", stmt)
	})

	t.Run("AppendRejectsWrongArity", func(t *testing.T) {
		b := NewUpsertBuilder("segments", nil, "segment_id", "filter_kind", "filter_value")

		err := b.Append(int64(1), "purchase")

		require.Error(t, err)
		assert.True(t, IsShapeMismatch(err))
		assert.Contains(t, err.Error(), "segments")
		assert.Equal(t, 0, b.Len())
	})

	t.Run("ClearThenBuildYieldsEmptyStatement", func(t *testing.T) {
		b := NewUpsertBuilder("offers", nil, "customer_id")

		require.NoError(t, b.Append(int64(1)))
		require.NoError(t, b.Append(int64(2)))
		b.Clear()
		stmt, args := b.Build()

		assert.Empty(t, stmt)
		assert.Nil(t, args)

		require.NoError(t, b.Append(int64(3)))
		stmt, args = b.Build()
		assert.Equal(t, "INSERT INTO offers (customer_id) VALUES (?)", stmt)
		assert.Equal(t, []any{int64(3)}, args)
	})

	t.Run("BuildDoesNotConsumeRows", func(t *testing.T) {
		b := NewUpsertBuilder("offers", nil, "customer_id")

		require.NoError(t, b.Append(int64(9)))
		first, _ := b.Build()
		second, args := b.Build()

		assert.Equal(t, first, second)
		assert.Equal(t, []any{int64(9)}, args)
		assert.Equal(t, 1, b.Len())
	})
}
