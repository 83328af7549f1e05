package webtiming

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptrace"
	"net/textproto"
	"net/url"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/google/martian/har"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

const (
	Kind           = prob.Kind("webtiming")
	ScriptMimeType = "application/json"

	defaultSamples       = 5
	defaultDownloadBytes = int64(10_000_000)
	defaultUploadBytes   = int64(1_000_000)
)

// Spec measures the link without a browser: plain HTTP transfers against the
// speed-test endpoints plus httptrace timings. A fallback for hosts that
// cannot run node, with numbers comparable to but coarser than the browser run.
type Spec struct {
	Samples int `json:"samples,omitempty" yaml:"samples,omitempty"`

	// Paths relative to the target URL; defaults match the usual
	// down/up endpoints of browser speed-test services.
	DownloadPath string `json:"downloadPath,omitempty" yaml:"downloadPath,omitempty"`
	UploadPath   string `json:"uploadPath,omitempty" yaml:"uploadPath,omitempty"`

	DownloadBytes int64 `json:"downloadBytes,omitempty" yaml:"downloadBytes,omitempty"`
	UploadBytes   int64 `json:"uploadBytes,omitempty" yaml:"uploadBytes,omitempty"`
}

func init() {
	moduleVersion := "devel"
	if bi, ok := debug.ReadBuildInfo(); ok {
		moduleVersion = strings.Trim(bi.Main.Version, "()")
	}

	// Ignore double registration error
	_ = prob.RegisterProbKind(
		Kind,
		&Spec{},
		prob.ProbRegistration{
			RunFunc:     RunScript,
			ContentType: ScriptMimeType,
			Version:     moduleVersion,
			Produce:     []string{"report", "har"},
		})
}

type httpRequestTracer struct {
	tracer *httptrace.ClientTrace

	dnsResolutionStarted  time.Time
	dnsResolutionFinished time.Time

	tlsStarted  time.Time
	tlsFinished time.Time

	connectionStarted  time.Time
	connectionFinished time.Time

	timeRequestWritten   time.Time
	timeResponseReceived time.Time
}

func newHttpRequestTracer(logger log.Logger) *httpRequestTracer {
	result := &httpRequestTracer{}

	tracer := &httptrace.ClientTrace{
		DNSStart: func(info httptrace.DNSStartInfo) {
			logger.Log("DNS resolving", "host", info.Host)
			result.dnsResolutionStarted = time.Now()
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			logger.Log("DNS resolved", "address", info.Addrs)
			result.dnsResolutionFinished = time.Now()
		},

		TLSHandshakeStart: func() {
			result.tlsStarted = time.Now()
		},
		TLSHandshakeDone: func(tlsState tls.ConnectionState, err error) {
			logger.Log("TLS handshake done", "version", tlsState.Version, "err", err)
			result.tlsFinished = time.Now()
		},

		ConnectStart: func(network, addr string) {
			result.connectionStarted = time.Now()
		},
		ConnectDone: func(network, addr string, err error) {
			logger.Log("connected", "addr", addr, "net", network, "err", err)
			result.connectionFinished = time.Now()
		},

		WroteRequest: func(info httptrace.WroteRequestInfo) {
			result.timeRequestWritten = time.Now()
		},
		Got1xxResponse: func(code int, header textproto.MIMEHeader) error {
			return nil
		},
		GotFirstResponseByte: func() {
			result.timeResponseReceived = time.Now()
		},
	}

	result.tracer = tracer

	return result
}

func (t *httpRequestTracer) TraceRequest(req *http.Request) *http.Request {
	return req.WithContext(httptrace.WithClientTrace(req.Context(), t.tracer))
}

// timeToFirstByte is the request-to-response latency of the last traced call.
func (t *httpRequestTracer) timeToFirstByte() time.Duration {
	if t.timeResponseReceived.IsZero() || t.timeRequestWritten.IsZero() {
		return 0
	}

	return t.timeResponseReceived.Sub(t.timeRequestWritten)
}

func (s *Spec) effective() Spec {
	result := *s
	if result.Samples <= 0 {
		result.Samples = defaultSamples
	}
	if result.DownloadPath == "" {
		result.DownloadPath = "/__down"
	}
	if result.UploadPath == "" {
		result.UploadPath = "/__up"
	}
	if result.DownloadBytes <= 0 {
		result.DownloadBytes = defaultDownloadBytes
	}
	if result.UploadBytes <= 0 {
		result.UploadBytes = defaultUploadBytes
	}

	return result
}

func RunScript(ctx context.Context, probSpec any, options prob.RunOptions, registry *prometheus.Registry, logger log.Logger) (prob.RunStatus, []prob.Artifact, error) {
	rawSpec, ok := probSpec.(*Spec)
	if !ok {
		return prob.RunFinishedError, nil, fmt.Errorf("%w: got %q, expected %q", prob.ErrUnexpectedSpecType, reflect.TypeOf(probSpec), reflect.TypeOf(&Spec{}))
	}

	if options.Target == "" {
		return prob.RunFinishedError, nil, prob.ErrNoTarget
	}

	base, err := url.Parse(options.Target)
	if err != nil {
		return prob.RunFinishedError, nil, fmt.Errorf("unparsable target %q: %w", options.Target, err)
	}

	spec := rawSpec.effective()

	harLogger := har.NewLogger()
	harLogger.SetOption(har.BodyLogging(options.Http.CaptureBody))

	client := http.Client{}
	tracer := newHttpRequestTracer(logger)

	// Unloaded latency: a run of zero-byte downloads.
	latencies := make([]float64, 0, spec.Samples)
	for i := 0; i < spec.Samples; i++ {
		if ctx.Err() != nil {
			return prob.RunFinishedCanceled, nil, nil
		}

		_, err := timedTransfer(ctx, &client, tracer, harLogger, downloadURL(base, spec.DownloadPath, 0), nil)
		if err != nil {
			logger.Log("latency sample failed", "sample", i, "err", err)
			return failureStatus(ctx), nil, nil
		}

		latencies = append(latencies, float64(tracer.timeToFirstByte())/float64(time.Millisecond))
	}

	metrics := speedtest.Metrics{
		Latency: mean(latencies),
		Jitter:  jitter(latencies),
	}

	// Throughput: one bulk download, one bulk upload.
	elapsed, err := timedTransfer(ctx, &client, tracer, harLogger, downloadURL(base, spec.DownloadPath, spec.DownloadBytes), nil)
	if err != nil {
		logger.Log("bulk download failed", "err", err)
		return failureStatus(ctx), nil, nil
	}
	metrics.Download = throughput(spec.DownloadBytes, elapsed)

	elapsed, err = timedTransfer(ctx, &client, tracer, harLogger, base.JoinPath(spec.UploadPath).String(), bytes.NewReader(make([]byte, spec.UploadBytes)))
	if err != nil {
		logger.Log("bulk upload failed", "err", err)
		return failureStatus(ctx), nil, nil
	}
	metrics.Upload = throughput(spec.UploadBytes, elapsed)

	logger.Log("measurement complete",
		"download_bps", metrics.Download,
		"upload_bps", metrics.Upload,
		"latency_ms", metrics.Latency,
		"jitter_ms", metrics.Jitter,
	)
	speedtest.ObserveMetrics(registry, &metrics)

	report := speedtest.Report{
		Success:  true,
		Endpoint: options.Target,
		Result:   &metrics,
	}
	reportData, err := json.Marshal(report)
	if err != nil {
		return prob.RunFinishedError, nil, fmt.Errorf("failed to serialize measurement report: %w", err)
	}

	artifacts := []prob.Artifact{{
		Rel:      "report",
		MimeType: "application/json",
		Content:  reportData,
	}}

	if harData, err := json.Marshal(harLogger.ExportAndReset()); err != nil {
		logger.Log("failed to serialize HAR recording", "err", err)
	} else {
		artifacts = append(artifacts, prob.Artifact{
			Rel:      "har",
			MimeType: "application/json",
			Content:  harData,
		})
	}

	return prob.RunFinishedSuccess, artifacts, nil
}

// timedTransfer performs one HTTP exchange, recording it into the HAR log,
// and returns the time spent transferring the body.
func timedTransfer(ctx context.Context, client *http.Client, tracer *httpRequestTracer, harLogger *har.Logger, target string, body io.Reader) (time.Duration, error) {
	method := http.MethodGet
	if body != nil {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, err
	}

	id := fmt.Sprintf("%d", time.Now().UnixNano())
	if err := harLogger.RecordRequest(id, req); err != nil {
		return 0, fmt.Errorf("failed to record request: %w", err)
	}

	started := time.Now()
	res, err := client.Do(tracer.TraceRequest(req))
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if err := harLogger.RecordResponse(id, res); err != nil {
		return 0, fmt.Errorf("failed to record response: %w", err)
	}

	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return 0, fmt.Errorf("failed while reading response body: %w", err)
	}

	if res.StatusCode >= 400 {
		return 0, fmt.Errorf("unexpected response status: %v", res.Status)
	}

	return time.Since(started), nil
}

func downloadURL(base *url.URL, path string, size int64) string {
	target := base.JoinPath(path)
	query := target.Query()
	query.Set("bytes", fmt.Sprintf("%d", size))
	target.RawQuery = query.Encode()

	return target.String()
}

func failureStatus(ctx context.Context) prob.RunStatus {
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return prob.RunFinishedTimeout
	case ctx.Err() != nil:
		return prob.RunFinishedCanceled
	}

	return prob.RunFinishedFailed
}

func throughput(transferred int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(transferred*8) / elapsed.Seconds()
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var total float64
	for _, s := range samples {
		total += s
	}

	return total / float64(len(samples))
}

// jitter is the mean delta between consecutive latency samples.
func jitter(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	var total float64
	for i := 1; i < len(samples); i++ {
		total += math.Abs(samples[i] - samples[i-1])
	}

	return total / float64(len(samples)-1)
}
