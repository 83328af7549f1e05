package speedtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/netzbremse/nb-speedtest/pkg/prob"
)

const (
	FilePrefix = "speedtest-"
	fileSuffix = ".json"
)

var ErrMalformedFileName = fmt.Errorf("malformed report file name")

// RunReport is the complete result of one attempt: the measurement document
// plus everything captured while producing it.
type RunReport struct {
	Started  time.Time
	Duration time.Duration
	Status   prob.RunStatus

	Report    Report
	Artifacts []prob.Artifact
}

// FileName produces the canonical report file name for a measurement taken
// at the given time, e.g. "speedtest-2024-01-15T10-30-00-000Z.json".
// The timestamp is ISO 8601 UTC with ':' and '.' replaced by '-' so the name
// stays valid on every filesystem.
func FileName(t time.Time) string {
	ut := t.UTC()
	return fmt.Sprintf("%s%s-%03dZ%s",
		FilePrefix,
		ut.Format("2006-01-02T15-04-05"),
		ut.Nanosecond()/int(time.Millisecond),
		fileSuffix,
	)
}

// TimeFromFileName recovers the measurement timestamp encoded in a report
// file name.
func TimeFromFileName(name string) (time.Time, error) {
	core, found := strings.CutPrefix(name, FilePrefix)
	if !found {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedFileName, name)
	}

	core, found = strings.CutSuffix(core, fileSuffix)
	if !found {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedFileName, name)
	}

	parts := strings.SplitN(core, "T", 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[1], "Z") {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedFileName, name)
	}

	hms := strings.Split(strings.TrimSuffix(parts[1], "Z"), "-")
	if len(hms) != 4 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedFileName, name)
	}

	stamp, err := time.Parse("2006-01-02T15:04:05.000Z",
		fmt.Sprintf("%sT%s:%s:%s.%sZ", parts[0], hms[0], hms[1], hms[2], hms[3]))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedFileName, name, err)
	}

	return stamp, nil
}
