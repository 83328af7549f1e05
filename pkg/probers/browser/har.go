package browser

import (
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/har"
)

// HARSummary condenses a captured HAR recording into the few numbers worth
// logging for an unattended run.
type HARSummary struct {
	Pages      int
	Entries    int
	TotalBytes int64
	OnLoadMs   float64
}

func (s HARSummary) String() string {
	return fmt.Sprintf("%d page(s), %d request(s), %d bytes transferred, onLoad=%.0fms",
		s.Pages, s.Entries, s.TotalBytes, s.OnLoadMs)
}

// SummarizeHAR parses a HAR recording produced during a measurement run.
func SummarizeHAR(data []byte) (HARSummary, error) {
	var recording har.HAR
	if err := json.Unmarshal(data, &recording); err != nil {
		return HARSummary{}, fmt.Errorf("failed to parse HAR content: %w", err)
	}

	summary := HARSummary{}
	if recording.Log == nil {
		return summary, nil
	}

	summary.Pages = len(recording.Log.Pages)
	summary.Entries = len(recording.Log.Entries)

	for _, entry := range recording.Log.Entries {
		if entry.Response != nil && entry.Response.BodySize > 0 {
			summary.TotalBytes += entry.Response.BodySize
		}
	}

	for _, page := range recording.Log.Pages {
		if page.PageTimings != nil && page.PageTimings.OnLoad > summary.OnLoadMs {
			summary.OnLoadMs = page.PageTimings.OnLoad
		}
	}

	return summary, nil
}
