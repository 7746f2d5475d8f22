package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	m := collectMetric(t, reader, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewDBMetrics_Defaults(t *testing.T) {
	_, provider := newTestMeter(t)

	metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{Enabled: true}, nil)
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	assert.NotNil(t, metrics.logger)
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("counts queries by operation", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{Enabled: true}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "select", "debts", 5*time.Millisecond)
		metrics.RecordQuery(ctx, "INSERT", "payments", 2*time.Millisecond)
		metrics.RecordQuery(ctx, "", "debts", time.Millisecond)

		assert.Equal(t, int64(3), counterValue(t, reader, "db_query_total"))
		assert.Equal(t, int64(0), counterValue(t, reader, "db_slow_query_total"))
	})

	t.Run("flags queries over the slow threshold", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 10 * time.Millisecond,
		}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "debts", 50*time.Millisecond)
		metrics.RecordQuery(ctx, "SELECT", "", 50*time.Millisecond)

		assert.Equal(t, int64(2), counterValue(t, reader, "db_slow_query_total"))
	})

	t.Run("records latency distribution", func(t *testing.T) {
		reader, provider := newTestMeter(t)
		metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{Enabled: true}, zap.NewNop())
		require.NoError(t, err)

		metrics.RecordQuery(ctx, "SELECT", "debts", 5*time.Millisecond)

		m := collectMetric(t, reader, "db_query_duration_seconds")
		require.NotNil(t, m)
		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok)
		require.Len(t, hist.DataPoints, 1)
		assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	})
}

func TestDBMetrics_PoolStats(t *testing.T) {
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{
		Enabled:           true,
		PoolStatsInterval: time.Hour, // only the immediate sample matters here
	}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	metrics.SetSQLDB(sqlDB)
	metrics.StartPoolStatsCollection(context.Background())
	metrics.Stop()

	m := collectMetric(t, reader, "db_pool_connections")
	require.NotNil(t, m)

	// Stop twice must not panic.
	metrics.Stop()
}

func TestDBMetrics_PoolStatsWithoutDB(t *testing.T) {
	_, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	// No SetSQLDB: collection refuses to start, Stop still works.
	metrics.StartPoolStatsCollection(context.Background())
	metrics.Stop()
}

func TestDBMetricsPlugin(t *testing.T) {
	reader, provider := newTestMeter(t)
	metrics, err := NewDBMetrics(provider.Meter("test"), DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())
	assert.Equal(t, "db_metrics", plugin.Name())
	require.NoError(t, db.Use(plugin))

	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	var count int64
	require.NoError(t, db.Table("debts").Count(&count).Error)

	assert.Equal(t, int64(1), counterValue(t, reader, "db_query_total"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSniffOperation(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM debts":               "SELECT",
		"  insert into payments values (1)": "INSERT",
		"UPDATE debts SET paid = true":      "UPDATE",
		"delete from debts":                 "DELETE",
		"TRUNCATE debts":                    "OTHER",
		"":                                  "OTHER",
	}
	for sql, want := range cases {
		assert.Equal(t, want, sniffOperation(sql), sql)
	}
}
