package format

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Namespace: "test"})

	require.NoError(t, m.Register(reg))
	// Registering twice is a no-op.
	require.NoError(t, m.Register(reg))

	// A second instance with the same names conflicts and leaves nothing
	// behind.
	other := NewMetrics(MetricsConfig{Namespace: "test"})
	assert.Error(t, other.Register(reg))

	m.Unregister(reg)
	require.NoError(t, other.Register(reg))
	other.Unregister(reg)
	other.Unregister(reg)
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(MetricsConfig{Namespace: "test", ConstLabels: prometheus.Labels{"app": "zpack"}})
	require.NoError(t, m.Register(reg))
	defer m.Unregister(reg)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	f := Instrument(NewZstd(3), m, logger)
	assert.Equal(t, "zstd", f.Name())
	assert.Equal(t, "zstd_CL_3_v1", f.KeySuffix())

	in := sampleText(50000, 20)
	c := roundTrip(t, f, in)

	assert.Equal(t, float64(len(in)), testutil.ToFloat64(m.bytesIn.WithLabelValues("zstd", "compress")))
	assert.Equal(t, float64(len(c)), testutil.ToFloat64(m.bytesOut.WithLabelValues("zstd", "compress")))
	assert.Equal(t, float64(len(c)), testutil.ToFloat64(m.bytesIn.WithLabelValues("zstd", "uncompress")))
	assert.Equal(t, float64(len(in)), testutil.ToFloat64(m.bytesOut.WithLabelValues("zstd", "uncompress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("zstd", "compress")))
	assert.Empty(t, hook.AllEntries())

	_, err := f.Uncompress(make([]byte, 10), c)
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("zstd", "uncompress")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("zstd", "uncompress")))
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, "uncompress", hook.LastEntry().Data["operation"])
	assert.Equal(t, "zstd", hook.LastEntry().Data["format"])

	assert.Equal(t, 5, testutil.CollectAndCount(m.operations)+testutil.CollectAndCount(m.errors)+testutil.CollectAndCount(m.bytesIn))
}

func TestInstrumentWithoutLogger(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	f := Instrument(NewSnappy(), m, nil)
	_, err := f.Uncompress(nil, []byte{0xff})
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("snappy", "uncompress")))
}
