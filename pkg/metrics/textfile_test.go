package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_runs_total", Help: "Runs."})
	reg.MustRegister(c)
	c.Add(3)

	path := filepath.Join(t.TempDir(), "textfile", "ingest.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "test_runs_total 3")
}

func TestWriteTextfile_EmptyPath(t *testing.T) {
	require.NoError(t, WriteTextfile("", nil))
}
