package prob

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const MetricsRelType = "metrics"

type Compression string

const (
	Identity Compression = "identity"
	Zstd     Compression = "zstd"
)

type RegistryOptions struct {
	EnableOpenMetrics bool

	// Compression of the serialized metrics artifact. Identity when empty.
	Compression Compression
}

func compressionWriter(rw io.Writer, compression Compression) (io.Writer, func(), error) {
	switch compression {
	case Zstd:
		z, err := zstd.NewWriter(rw, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, func() {}, err
		}

		return z, func() { _ = z.Close() }, nil
	case Identity, "":
		return rw, func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("content compression format not recognized: %s", compression)
	}
}

// MetricsArtifact serializes everything gathered into a per-attempt registry
// in prometheus exposition format, so that probe metrics can be stored next
// to the measurement report.
func MetricsArtifact(registry *prometheus.Registry, opts RegistryOptions) (Artifact, error) {
	gatherer := prometheus.ToTransactionalGatherer(registry)
	mfs, done, err := gatherer.Gather()
	if err != nil {
		return Artifact{}, err
	}
	defer done()

	var headers http.Header
	var contentType expfmt.Format
	if opts.EnableOpenMetrics {
		contentType = expfmt.NegotiateIncludingOpenMetrics(headers)
	} else {
		contentType = expfmt.Negotiate(headers)
	}

	var buf bytes.Buffer
	w, closeWriter, err := compressionWriter(&buf, opts.Compression)
	if err != nil {
		return Artifact{}, err
	}

	enc := expfmt.NewEncoder(w, contentType)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			closeWriter()
			return Artifact{}, fmt.Errorf("failed to encode metrics family %q:%w", *mf.Name, err)
		}
	}

	// Flush the compressor before taking the buffer content
	closeWriter()

	return Artifact{
		Rel:      MetricsRelType,
		MimeType: string(contentType),
		Content:  buf.Bytes(),
	}, nil
}
