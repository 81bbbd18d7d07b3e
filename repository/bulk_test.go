package repository

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteich/elastic-repository/elastic"
	"github.com/pteich/elastic-repository/elastic/elastictest"
)

func TestRepository_BulkEmptyIsNoop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.repo.SaveBulk(ctx, nil))
	require.NoError(t, f.repo.SaveBulk(ctx, map[string]any{}))
	require.NoError(t, f.repo.DeleteBulk(ctx))

	assert.Empty(t, f.client.Calls())
	assert.Equal(t, 0, f.logs.Len())
	assert.Empty(t, f.hooks.savedBulk)
	assert.Empty(t, f.hooks.deletedBulk)
}

func TestRepository_SaveBulk(t *testing.T) {
	f := newFixture(t, map[string]any{OptionIndex: "products", OptionForceRefreshOnWrite: true})

	err := f.repo.SaveBulk(context.Background(), map[string]any{
		"b": map[string]any{"n": 2},
		"a": map[string]any{"n": 1},
	})

	require.NoError(t, err)
	calls := f.client.CallsTo(elastictest.MethodBulk)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Request.Refresh)
	assert.Equal(t,
		`[{"index":{"_id":"a","_index":"products"}},{"n":1},{"index":{"_id":"b","_index":"products"}},{"n":2}]`,
		calls[0].BodyJSON())

	require.Len(t, f.hooks.savedBulk, 1)
	assert.Equal(t, map[string]map[string]any{
		"a": {"n": 1},
		"b": {"n": 2},
	}, f.hooks.savedBulk[0])
}

func TestRepository_SaveBulkWithType(t *testing.T) {
	f := newFixture(t, map[string]any{OptionIndex: "products", OptionType: "product"})

	require.NoError(t, f.repo.SaveBulk(context.Background(), map[string]any{"a": map[string]any{}}))

	call := f.client.CallsTo(elastictest.MethodBulk)[0]
	assert.Equal(t, "product", call.Request.Type)
	assert.Equal(t, `[{"index":{"_id":"a","_index":"products"}},{}]`, call.BodyJSON())
}

func TestRepository_DeleteBulk(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.repo.DeleteBulk(context.Background(), "1", "2"))

	assert.Equal(t,
		`[{"delete":{"_id":"1","_index":"products"}},{"delete":{"_id":"2","_index":"products"}}]`,
		f.client.CallsTo(elastictest.MethodBulk)[0].BodyJSON())
	assert.Equal(t, [][]string{{"1", "2"}}, f.hooks.deletedBulk)
}

func TestRepository_BulkItemErrors(t *testing.T) {
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	f := newFixture(t, nil, WithMetrics(metrics))
	f.client.Respond(elastictest.MethodBulk, elastic.Response{
		"errors": true,
		"items": []any{
			map[string]any{"delete": map[string]any{"_id": "1", "status": float64(200)}},
			map[string]any{"delete": map[string]any{
				"_id":    "2",
				"status": float64(409),
				"error":  map[string]any{"type": "version_conflict_engine_exception", "reason": "conflict"},
			}},
		},
	}, nil)

	err = f.repo.DeleteBulk(context.Background(), "1", "2")

	require.ErrorIs(t, err, ErrBulk)
	var items *BulkItemError
	require.ErrorAs(t, err, &items)
	assert.Equal(t, 1, items.Failed)
	assert.Equal(t, 2, items.Total)
	require.NotNil(t, items.First)
	assert.Equal(t, 409, items.First.Status)
	assert.Equal(t, "version_conflict_engine_exception", items.First.Type)

	assert.Empty(t, f.hooks.deletedBulk)
	assert.Len(t, f.errorLogs(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpDeleteBulk, statusError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.operations.WithLabelValues(OpDeleteBulk, statusOK)))
}

func TestRepository_SaveBulkTransportError(t *testing.T) {
	f := newFixture(t, nil)
	f.client.Respond(elastictest.MethodBulk, nil, &elastic.Error{Status: 503, Type: "unavailable"})

	err := f.repo.SaveBulk(context.Background(), map[string]any{"a": map[string]any{"n": 1}})

	require.ErrorIs(t, err, ErrBulk)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Len(t, opErr.Operations, 2)
	assert.Empty(t, f.hooks.savedBulk)
}
