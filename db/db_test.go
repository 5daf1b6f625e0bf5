package db

import (
	"errors"
	"testing"
	"time"

	"datachat/dataset"
	"datachat/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func ts(offset time.Duration) string {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(offset).Format(time.RFC3339Nano)
}

func TestSessions(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Ping())

	require.NoError(t, d.SaveSession(&models.ChatSession{ID: "s1", Title: "old", CreatedAt: ts(0), UpdatedAt: ts(0)}))
	require.NoError(t, d.SaveSession(&models.ChatSession{ID: "s2", Title: "new", CreatedAt: ts(time.Second), UpdatedAt: ts(time.Minute)}))

	sessions, err := d.ListSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID)

	got, err := d.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "old", got.Title)

	_, err = d.GetSession("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessagesKeepInsertionOrder(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.SaveSession(&models.ChatSession{ID: "s1"}))

	second := &models.Message{ID: "m2", SessionID: "s1", Type: models.MessageTypeAI, CreatedAt: ts(time.Millisecond)}
	first := &models.Message{ID: "m1", SessionID: "s1", Type: models.MessageTypeUser, CreatedAt: ts(0)}
	require.NoError(t, d.SaveMessage(second))
	require.NoError(t, d.SaveMessage(first))

	second.Analysis = "updated"
	second.CreatedAt = ts(time.Hour)
	require.NoError(t, d.SaveMessage(second))

	msgs, err := d.ListMessages("s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "updated", msgs[1].Analysis)

	got, err := d.GetMessage("m2")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.Analysis)

	_, err = d.GetMessage("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSessionCascades(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.SaveSession(&models.ChatSession{ID: "s1"}))
	require.NoError(t, d.SaveSession(&models.ChatSession{ID: "s2"}))
	require.NoError(t, d.SaveMessage(&models.Message{ID: "m1", SessionID: "s1", CreatedAt: ts(0)}))
	require.NoError(t, d.SaveMessage(&models.Message{ID: "other", SessionID: "s2", CreatedAt: ts(0)}))

	ds, err := dataset.FromRecords([]string{"a"}, [][]string{{"1"}})
	require.NoError(t, err)
	require.NoError(t, d.SaveDataset("m1", &DatasetRecord{Dataset: ds, Selection: dataset.DefaultSelection(ds)}))
	require.NoError(t, d.SaveCharts("m1", []models.ChartResult{{Index: 0, Type: "bar"}}))
	require.NoError(t, d.SaveQAPairs("m1", []models.QAPair{{Question: "q", Answer: "a"}}))

	require.NoError(t, d.DeleteSession("s1"))

	_, err = d.GetSession("s1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.GetMessage("m1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.GetDataset("m1")
	assert.ErrorIs(t, err, ErrNotFound)
	charts, err := d.GetCharts("m1")
	require.NoError(t, err)
	assert.Empty(t, charts)
	pairs, err := d.GetQAPairs("m1")
	require.NoError(t, err)
	assert.Empty(t, pairs)

	others, err := d.ListMessages("s2")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	assert.ErrorIs(t, d.DeleteSession("s1"), ErrNotFound)
}

func TestUpdateSelection(t *testing.T) {
	d := newTestDB(t)
	ds, err := dataset.FromRecords([]string{"a", "b"}, [][]string{{"1", "2"}, {"3", "4"}})
	require.NoError(t, err)
	require.NoError(t, d.SaveDataset("m1", &DatasetRecord{Dataset: ds, Selection: dataset.DefaultSelection(ds)}))

	rec, err := d.UpdateSelection("m1", func(ds *dataset.Dataset, sel *dataset.Selection) error {
		return sel.ToggleRow(ds, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, rec.Selection.Rows)

	boom := errors.New("boom")
	_, err = d.UpdateSelection("m1", func(ds *dataset.Dataset, sel *dataset.Selection) error {
		sel.Rows = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := d.GetDataset("m1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, stored.Selection.Rows)

	_, err = d.UpdateSelection("missing", func(*dataset.Dataset, *dataset.Selection) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetChartImage(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.SaveCharts("m1", []models.ChartResult{
		{Index: 0, Type: "bar", Code: "a"},
		{Index: 1, Type: "line", Code: "b"},
	}))

	updated, err := d.SetChartImage("m1", 1, "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "line", updated.Type)

	charts, err := d.GetCharts("m1")
	require.NoError(t, err)
	assert.Equal(t, "", charts[0].Image)
	assert.Equal(t, "data:image/png;base64,AAAA", charts[1].Image)

	_, err = d.SetChartImage("m1", 5, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = d.SetChartImage("missing", 0, "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
