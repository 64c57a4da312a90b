package ga4

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRender(t *testing.T) {
	assert.Equal(t, "hello", StringValue("hello").Render())
	assert.Equal(t, "42", NumberValue(42).Render())
	assert.Equal(t, "3.25", NumberValue(3.25).Render())
	assert.Equal(t, "", NullValue().Render())
}

func TestValueMarshalJSON(t *testing.T) {
	row := []Value{StringValue("US"), NumberValue(1234), NullValue()}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `["US", 1234, null]`, string(data))
}

func TestTableAppendRow(t *testing.T) {
	table := NewTable([]string{"date", "sessions"})
	require.NoError(t, table.AppendRow([]Value{StringValue("2024-03-01"), NumberValue(10)}))

	err := table.AppendRow([]Value{StringValue("2024-03-02")})
	assert.Error(t, err)
	assert.Len(t, table.Rows, 1)
}

func TestTableAppendTable(t *testing.T) {
	a := NewTable([]string{"date", "sessions"})
	require.NoError(t, a.AppendRow([]Value{StringValue("2024-03-01"), NumberValue(10)}))

	b := NewTable([]string{"date", "sessions"})
	require.NoError(t, b.AppendRow([]Value{StringValue("2024-03-02"), NumberValue(20)}))
	b.Truncated = true

	require.NoError(t, a.AppendTable(b))
	assert.Len(t, a.Rows, 2)
	assert.True(t, a.Truncated, "truncation flag propagates on concat")
}

func TestTableAppendTableSchemaMismatch(t *testing.T) {
	a := NewTable([]string{"date", "sessions"})
	b := NewTable([]string{"date", "totalUsers"})

	err := a.AppendTable(b)
	var mismatch *SchemaMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"date", "sessions"}, mismatch.Want)
	assert.Equal(t, []string{"date", "totalUsers"}, mismatch.Got)
}

func TestInsertLabelColumn(t *testing.T) {
	table := NewTable([]string{"date", "sessions"})
	require.NoError(t, table.AppendRow([]Value{StringValue("2024-03-01"), NumberValue(10)}))
	require.NoError(t, table.AppendRow([]Value{StringValue("2024-03-02"), NumberValue(20)}))

	table.InsertLabelColumn(LabelColumn, "US")

	assert.Equal(t, []string{LabelColumn, "date", "sessions"}, table.Columns)
	for _, row := range table.Rows {
		assert.Equal(t, "US", row[0].Str())
	}
}

func TestAddColumn(t *testing.T) {
	table := NewTable([]string{"sessions"})
	require.NoError(t, table.AppendRow([]Value{NumberValue(100)}))

	require.NoError(t, table.AddColumn("rate", []Value{NumberValue(2.5)}))
	assert.Equal(t, []string{"sessions", "rate"}, table.Columns)
	assert.Equal(t, 2.5, table.Rows[0][1].Num())

	err := table.AddColumn("bad", []Value{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	table := NewTable([]string{LabelColumn, "date", "conversion_rate"})
	require.NoError(t, table.AppendRow([]Value{StringValue("US"), StringValue("2024-03-01"), NumberValue(2.5)}))
	require.NoError(t, table.AppendRow([]Value{StringValue("UK"), StringValue("2024-03-01"), NullValue()}))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	want := "source_label,date,conversion_rate\n" +
		"US,2024-03-01,2.5\n" +
		"UK,2024-03-01,\n"
	assert.Equal(t, want, buf.String())
}

func TestColumnIndex(t *testing.T) {
	table := NewTable([]string{"a", "b"})
	assert.Equal(t, 1, table.ColumnIndex("b"))
	assert.Equal(t, -1, table.ColumnIndex("z"))
}
