package prob

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind identifies a registered prober type
type Kind string

// RunStatus represents the state of a measurement once an attempt completed
type RunStatus string

const (
	RunNotFinished      RunStatus = ""
	RunFinishedSuccess  RunStatus = "success"
	RunFinishedFailed   RunStatus = "failed"
	RunFinishedError    RunStatus = "errored"
	RunFinishedCanceled RunStatus = "canceled"
	RunFinishedTimeout  RunStatus = "timeout"
)

// Recoverable tells if a status counts against the consecutive-failure
// budget. Cancellation is an operator action, not a failed measurement.
func (s RunStatus) Recoverable() bool {
	switch s {
	case RunFinishedFailed, RunFinishedError, RunFinishedTimeout:
		return true
	}

	return false
}

type Artifact struct {
	// Relation type: report / har / log / metrics. Determines how content is consumed
	Rel string `form:"rel,omitempty" json:"rel,omitempty" yaml:"rel,omitempty"`

	// MimeType of the content
	MimeType string `form:"mimeType,omitempty" json:"mimeType,omitempty" yaml:"mimeType,omitempty"`

	// Blob content of the artifact
	Content []byte `form:"content,omitempty" json:"content,omitempty" yaml:"content,omitempty"`
}

type Manifest struct {
	// Kind identifies the prober that executes this measurement
	Kind Kind `json:"kind,omitempty" yaml:"kind,omitempty" form:"kind"`

	// Timeout overrides the agent-wide attempt deadline when shorter
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" form:"timeout"`

	// Actual measurement spec, of a 'kind' type
	Spec any `json:"-" yaml:"-"`
}

func (m Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Kind    Kind          `json:"kind,omitempty"`
		Timeout time.Duration `json:"timeout,omitempty"`
		Spec    any           `json:"spec,omitempty"` // needed to strip any json tags
	}{
		Kind:    m.Kind,
		Timeout: m.Timeout,
		Spec:    m.Spec,
	})
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	aux := &struct {
		Kind    Kind            `json:"kind,omitempty"`
		Timeout time.Duration   `json:"timeout,omitempty"`
		Spec    json.RawMessage `json:"spec,omitempty"`
	}{
		Kind:    m.Kind,
		Timeout: m.Timeout,
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	m.Kind = aux.Kind
	m.Timeout = aux.Timeout

	if len(aux.Spec) == 0 {
		m.Spec = nil
		return nil
	}

	spec, err := unmarshalSpecJSON(aux.Kind, aux.Spec)
	if err != nil {
		return err
	}

	m.Spec = spec
	return nil
}

func (m Manifest) MarshalYAML() (interface{}, error) {
	return struct {
		Kind    Kind          `json:"kind" yaml:"kind"`
		Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		Spec    interface{}   `json:"spec,omitempty" yaml:"spec,omitempty"` // needed to strip any json tags
	}{
		Kind:    m.Kind,
		Timeout: m.Timeout,
		Spec:    m.Spec,
	}, nil
}

func (m *Manifest) UnmarshalYAML(n *yaml.Node) (err error) {
	type M Manifest
	type T struct {
		*M   `yaml:",inline"`
		Spec yaml.Node `yaml:"spec"`
	}

	obj := &T{M: (*M)(m)}
	if err := n.Decode(obj); err != nil {
		return err
	}

	spec, err := InstanceOf(m.Kind)
	if err != nil {
		if len(obj.Spec.Content) == 0 {
			m.Spec = nil
			return nil
		}
		spec = make(map[string]any)
	}

	m.Spec = spec

	return obj.Spec.Decode(m.Spec)
}
