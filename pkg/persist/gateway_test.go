package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/model"
)

func backends(t *testing.T) map[string]KV {
	t.Helper()
	dir := t.TempDir()
	fileKV, err := NewFileKV(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqliteKV, err := OpenSQLite(filepath.Join(dir, "db", "eisen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })
	return map[string]KV{"file": fileKV, "sqlite": sqliteKV}
}

func sampleData() model.Data {
	created := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2025, 2, 3, 17, 30, 0, 0, time.UTC)
	return model.Data{
		Tasks: []model.Task{
			{ID: 3, Title: "Pay invoice", DueDate: &model.Timestamp{Time: due}, Importance: model.Important,
				Quadrant: model.UrgentImportant, Priority: model.Critical, CreatedAt: created},
			{ID: 1, Title: "Read book", Description: "chapter 4", Importance: model.NotImportant,
				Quadrant: model.NotUrgentNotImportant, Priority: model.Low, CreatedAt: created},
		},
		CompletedTasks: []model.CompletedTask{
			{Task: model.Task{ID: 2, Title: "File taxes", Importance: model.Important,
				Quadrant: model.NotUrgentImportant, Priority: model.High, CreatedAt: created},
				CompletedAt: created.Add(time.Hour)},
		},
		TaskIDCounter: 4,
	}
}

func TestGatewayRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := NewGateway(kv, zap.NewNop())

			d, found, err := g.Load()
			require.NoError(t, err)
			assert.False(t, found)
			assert.Equal(t, model.Empty(), d)

			for _, want := range []model.Data{model.Empty(), sampleData()} {
				_, err := g.Save(want, time.Now())
				require.NoError(t, err)

				got, found, err := g.Load()
				require.NoError(t, err)
				require.True(t, found)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestGatewayStampStrictlyIncreases(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	g := NewGateway(kv, nil)

	last, err := g.LastModified()
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	frozen := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	var prev time.Time
	for i := 0; i < 3; i++ {
		stamp, err := g.Save(model.Empty(), frozen)
		require.NoError(t, err)
		assert.True(t, stamp.After(prev), "stamp %d did not advance", i)
		prev = stamp
	}

	last, err = g.LastModified()
	require.NoError(t, err)
	assert.True(t, last.Equal(prev))
}

func TestGatewayAdoptAndRecordSync(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	g := NewGateway(kv, nil)

	remoteTime := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, g.Adopt(sampleData(), remoteTime))

	last, err := g.LastModified()
	require.NoError(t, err)
	assert.True(t, last.Equal(remoteTime))

	got, _, err := g.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleData(), got)

	require.NoError(t, g.RecordSync(remoteTime.Add(time.Minute)))
	meta, err := g.Meta()
	require.NoError(t, err)
	require.NotNil(t, meta.LastSyncTime)
	assert.True(t, meta.LastSyncTime.Equal(remoteTime.Add(time.Minute)))
	assert.True(t, meta.LastLocalUpdate.Equal(remoteTime))
}

func TestGatewayCorruptDataStartsEmpty(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeyData, []byte("{not json")))

	g := NewGateway(kv, nil)
	_, _, err = g.Load()
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, model.Empty(), g.LoadOrEmpty())
}

func TestPartialDocumentGetsDefaults(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, kv.Set(KeyData, []byte(`{"tasks":[{"id":5,"title":"x","dueDate":"2025-01-01T10:00"}]}`)))

	d, found, err := NewGateway(kv, nil).Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, d.TaskIDCounter)
	assert.NotNil(t, d.CompletedTasks)
	require.Len(t, d.Tasks, 1)
	require.NotNil(t, d.Tasks[0].Due())
	assert.Equal(t, 10, d.Tasks[0].Due().Hour())
}

func TestKVDelete(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, kv.Set("k", []byte("v")))
			v, ok, err := kv.Get("k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "v", string(v))

			require.NoError(t, kv.Delete("k"))
			require.NoError(t, kv.Delete("k"))
			_, ok, err = kv.Get("k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestGatewayInsightsRoundTrip(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			g := NewGateway(kv, zap.NewNop())

			entries, err := g.LoadInsights()
			require.NoError(t, err)
			assert.Nil(t, entries)

			want := []string{"[09:05] Deleted Write report", "[09:00] Added task to Schedule"}
			require.NoError(t, g.SaveInsights(want))
			entries, err = g.LoadInsights()
			require.NoError(t, err)
			assert.Equal(t, want, entries)

			require.NoError(t, kv.Set(KeyInsights, []byte("{not json")))
			_, err = g.LoadInsights()
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}
