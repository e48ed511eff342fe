package core

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalhub/internal/config"
	"proposalhub/internal/infra/persistence/blobslot"
	"proposalhub/internal/infra/persistence/memory"
	"proposalhub/internal/infra/persistence/redis"
	"proposalhub/internal/infra/persistence/sqlite"
	"proposalhub/pkg/domain"
)

func TestOpenSlotSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		driver string
		mutate func(*config.Config)
		check  func(t *testing.T, slot domain.Slot)
	}{
		{config.DriverMemory, nil, func(t *testing.T, slot domain.Slot) {
			assert.IsType(t, &memory.Slot{}, slot)
		}},
		{config.DriverFS, func(c *config.Config) { c.Blob.FSRoot = filepath.Join(dir, "blobs") }, func(t *testing.T, slot domain.Slot) {
			assert.IsType(t, &blobslot.Slot{}, slot)
		}},
		{config.DriverSQLite, func(c *config.Config) { c.Storage.SQLitePath = filepath.Join(dir, "hub.db") }, func(t *testing.T, slot domain.Slot) {
			assert.IsType(t, &sqlite.Slot{}, slot)
		}},
		{config.DriverRedis, func(c *config.Config) { c.Storage.Redis.Addr = mr.Addr() }, func(t *testing.T, slot domain.Slot) {
			assert.IsType(t, &redis.Slot{}, slot)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Driver = tc.driver
			if tc.mutate != nil {
				tc.mutate(&cfg)
			}
			slot, closer, err := OpenSlot(ctx, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { _ = closer.Close() })
			tc.check(t, slot)
		})
	}

	cfg := config.Default()
	cfg.Storage.Driver = "etcd"
	_, _, err := OpenSlot(ctx, cfg)
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestOpenServicePersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	configs := map[string]func(*config.Config){
		config.DriverSQLite: func(c *config.Config) { c.Storage.SQLitePath = filepath.Join(dir, "restart.db") },
		config.DriverFS:     func(c *config.Config) { c.Blob.FSRoot = filepath.Join(dir, "restart-blobs") },
		config.DriverRedis:  func(c *config.Config) { c.Storage.Redis.Addr = mr.Addr() },
	}
	for driver, mutate := range configs {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Driver = driver
			mutate(&cfg)

			svc, err := OpenService(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			p := mustProposal(t, svc, "Durable", "Survives a process restart intact")
			_, err = svc.Questions.Generate(ctx, p.ID, p.Title, p.Description)
			require.NoError(t, err)
			token, err := svc.ShareTokens.GetOrCreate(ctx, p.ID)
			require.NoError(t, err)
			require.NoError(t, svc.Close())

			reopened, err := OpenService(ctx, cfg, zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = reopened.Close() })

			got, ok, err := reopened.Proposals.Get(ctx, p.ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Durable", got.Title)
			questions, err := reopened.Questions.List(ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, questions, 7)
			again, err := reopened.ShareTokens.GetOrCreate(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, token.Token, again.Token)

			next := mustProposal(t, reopened, "Next", "")
			assert.Greater(t, next.ID, p.ID, "ids are never reused after reload")
		})
	}
}

func TestOpenServiceAttachesConfiguredMetrics(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory

	plain, err := OpenService(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, noopMetrics{}, plain.Metrics())
	require.NoError(t, plain.Close())

	cfg.Metrics = config.MetricsConfig{Expvar: true, Prometheus: true}
	svc, err := OpenService(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	p := mustProposal(t, svc, "Observed", "")
	_, ok, err := svc.Proposals.Get(ctx, p.ID+100)
	require.NoError(t, err)
	require.False(t, ok)

	metrics, ok := svc.Metrics().(*Metrics)
	require.True(t, ok, "configured recorders are attached")
	require.NotNil(t, metrics.Expvar)
	require.NotNil(t, metrics.Prometheus)

	snap := metrics.Expvar.Snapshot()
	assert.Equal(t, int64(1), snap.Results["proposals.create"]["success"])
	assert.Equal(t, int64(1), snap.Results["proposals.get"]["success"])

	ops, _ := metrics.Prometheus.Collectors()
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("proposals.create", "success")))

	var buf bytes.Buffer
	require.NoError(t, metrics.WritePrometheus(&buf))
	assert.Contains(t, buf.String(), `proposalhub_store_operations_total{operation="proposals.create",result="success"} 1`)
}

func TestOpenServiceMetricsSelection(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Driver = config.DriverMemory
	cfg.Metrics.Expvar = true

	svc, err := OpenService(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	metrics, ok := svc.Metrics().(*Metrics)
	require.True(t, ok)
	assert.Nil(t, metrics.Prometheus)
	assert.Error(t, metrics.WritePrometheus(&bytes.Buffer{}))

	custom := NewExpvarMetricsRecorder("")
	overridden, err := OpenService(ctx, cfg, zerolog.Nop(), WithMetrics(custom))
	require.NoError(t, err)
	t.Cleanup(func() { _ = overridden.Close() })
	assert.Same(t, custom, overridden.Metrics())
}
