package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/peyecoder/peyecoder/internal/export"
	"github.com/peyecoder/peyecoder/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.gz"))
	assert.Error(t, m.Connect())
	assert.NoError(t, m.Close())
}

func TestWritePoint_NoWriter(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.WritePoint(context.Background(), BucketExports, ExportPoint("1", export.Long, export.InvertNone, &export.Table{}, 0, time.Now()))
	assert.Error(t, err)
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1")

	backup := filepath.Join(t.TempDir(), "backup.gz")
	m := NewManager(zerolog.Nop(), backup)
	require.NoError(t, m.Connect())
	assert.False(t, m.IsValid)

	stats := reliability.Stats{FrameAgreement: 100, ComparableTrials: 50, ShiftAgreement: 75, CommonTrials: 2}
	at := time.Unix(1700000000, 0)
	require.NoError(t, m.WritePoint(context.Background(), BucketReliability, ReliabilityPoint("7", "A", "B", stats, at)))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	line := string(data)
	assert.Contains(t, line, "reliability,coder=A,other_coder=B,subject=7 ")
	assert.Contains(t, line, "frame_agreement=100")
	assert.Contains(t, line, "common_trials=2i")
	assert.Contains(t, line, "1700000000000000000")
}

func TestExportPoint(t *testing.T) {
	table := &export.Table{Header: []string{"a", "b"}, Rows: [][]string{{"1", "2"}, {"3", "4"}}, Trials: 1}
	p := ExportPoint("12", export.Wide, export.InvertTrialOrder, table, 1500*time.Microsecond, time.Unix(0, 0))

	assert.Equal(t, "export", p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"subject": "12", "format": "wide", "inversion": "Target Side and Images"}, tags)

	fields := map[string]any{}
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	assert.Equal(t, int64(2), fields["rows"])
	assert.Equal(t, int64(2), fields["columns"])
	assert.Equal(t, int64(1), fields["trials"])
	assert.Equal(t, 1.5, fields["duration_ms"])
}
