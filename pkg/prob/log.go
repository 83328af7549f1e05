package prob

import (
	"fmt"
	"log"
	"strings"
)

// RunLog captures everything a prober prints during an attempt so it can be
// attached to the results as a text artifact, while also mirroring it to the
// process log.
type RunLog struct {
	content strings.Builder
}

func (l *RunLog) Log(v ...any) {
	fmt.Fprint(&l.content, v...)
	fmt.Fprint(&l.content, "\n")

	log.Print(v...)
}

func (l *RunLog) Logf(format string, v ...any) {
	l.Log(fmt.Sprintf(format, v...))
}

// Write makes RunLog usable as stdout/stderr of a measurement subprocess.
func (l *RunLog) Write(data []byte) (int, error) {
	return l.content.Write(data)
}

func (l *RunLog) ToArtifact() Artifact {
	return Artifact{
		Rel:      "log",
		MimeType: "text/plain",
		Content:  []byte(l.content.String()),
	}
}

func (l *RunLog) Package() []Artifact {
	return []Artifact{l.ToArtifact()}
}
