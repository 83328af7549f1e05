package webtiming

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

// speedTestEndpoint mimics the usual down/up endpoints: GET /__down?bytes=N
// pours N bytes, POST /__up swallows whatever is sent.
func speedTestEndpoint(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/__down", func(w http.ResponseWriter, r *http.Request) {
		size, err := strconv.ParseInt(r.URL.Query().Get("bytes"), 10, 64)
		if err != nil {
			http.Error(w, "bad size", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = io.CopyN(w, neverEndingReader{}, size)
	})
	mux.HandleFunc("/__up", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

type neverEndingReader struct{}

func (neverEndingReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'z'
	}

	return len(p), nil
}

func TestRunScript(t *testing.T) {
	server := speedTestEndpoint(t)

	spec := &Spec{
		Samples:       3,
		DownloadBytes: 64 * 1024,
		UploadBytes:   16 * 1024,
	}
	options := prob.RunOptions{Target: server.URL}

	status, artifacts, err := RunScript(context.Background(), spec, options, prometheus.NewRegistry(), log.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedSuccess, status)

	var report *speedtest.Report
	for _, artifact := range artifacts {
		if artifact.Rel != "report" {
			continue
		}

		report = &speedtest.Report{}
		require.NoError(t, json.Unmarshal(artifact.Content, report))
	}

	require.NotNil(t, report, "expected a report artifact")
	require.True(t, report.Success)
	require.Equal(t, server.URL, report.Endpoint)
	require.NotNil(t, report.Result)
	require.Greater(t, report.Result.Download, 0.0)
	require.Greater(t, report.Result.Upload, 0.0)
	require.GreaterOrEqual(t, report.Result.Latency, 0.0)

	var harFound bool
	for _, artifact := range artifacts {
		harFound = harFound || artifact.Rel == "har"
	}
	require.True(t, harFound, "expected a har artifact")
}

func TestRunScript_Failures(t *testing.T) {
	testCases := map[string]struct {
		spec         any
		target       string
		expectStatus prob.RunStatus
		expectError  error
	}{
		"wrong-spec-type": {
			spec:         struct{}{},
			target:       "http://localhost:0",
			expectStatus: prob.RunFinishedError,
			expectError:  prob.ErrUnexpectedSpecType,
		},
		"no-target": {
			spec:         &Spec{},
			target:       "",
			expectStatus: prob.RunFinishedError,
			expectError:  prob.ErrNoTarget,
		},
		"unreachable-target": {
			spec:         &Spec{Samples: 1},
			target:       "http://127.0.0.1:1",
			expectStatus: prob.RunFinishedFailed,
		},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			status, _, err := RunScript(context.Background(), test.spec, prob.RunOptions{Target: test.target}, prometheus.NewRegistry(), log.NewNopLogger())
			require.Equal(t, test.expectStatus, status)
			if test.expectError != nil {
				require.ErrorIs(t, err, test.expectError)
			}
		})
	}
}

func TestRunScript_CanceledContext(t *testing.T) {
	server := speedTestEndpoint(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, _, err := RunScript(ctx, &Spec{}, prob.RunOptions{Target: server.URL}, prometheus.NewRegistry(), log.NewNopLogger())
	require.NoError(t, err)
	require.Equal(t, prob.RunFinishedCanceled, status)
}

func TestStatistics(t *testing.T) {
	testCases := map[string]struct {
		samples      []float64
		expectMean   float64
		expectJitter float64
	}{
		"empty":    {samples: nil, expectMean: 0, expectJitter: 0},
		"single":   {samples: []float64{12}, expectMean: 12, expectJitter: 0},
		"steady":   {samples: []float64{10, 10, 10}, expectMean: 10, expectJitter: 0},
		"variable": {samples: []float64{10, 20, 10}, expectMean: 40.0 / 3, expectJitter: 10},
	}

	for name, tc := range testCases {
		test := tc
		t.Run(name, func(t *testing.T) {
			require.InDelta(t, test.expectMean, mean(test.samples), 1e-9)
			require.InDelta(t, test.expectJitter, jitter(test.samples), 1e-9)
		})
	}
}

func TestThroughput(t *testing.T) {
	require.Equal(t, 0.0, throughput(1000, 0))
	require.InDelta(t, 8_000_000.0, throughput(1_000_000, time.Second), 1e-6)
	require.InDelta(t, 16_000_000.0, throughput(1_000_000, 500*time.Millisecond), 1e-6)
}
