package agent

import (
	"log"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	LabelOS   = "agent.os"
	LabelArch = "agent.arch"

	// Runtimes available:
	LabelNodeJsVersion      = "agent.node.version"
	LabelNodeJsVersionMajor = LabelNodeJsVersion + ".major"

	LabelBuildVersion = "agent.version"
)

type Labels map[string]string

func MergeLabels(parts ...Labels) Labels {
	result := Labels{}
	for _, part := range parts {
		for key, value := range part {
			result[key] = value
		}
	}

	return result
}

// GetNodeRuntimeLabels reports the node version the browser prober will run
// on, if node is installed at all.
func GetNodeRuntimeLabels() Labels {
	nodeV := exec.Command("node", "-v")
	out, err := nodeV.CombinedOutput()
	if err != nil {
		return Labels{}
	}

	vstr := strings.TrimSpace(string(out))
	if !semver.IsValid(vstr) {
		return Labels{}
	}

	return Labels{
		LabelNodeJsVersion:      vstr[1:],
		LabelNodeJsVersionMajor: semver.Major(vstr)[1:],
	}
}

func GetRuntimeLabels() Labels {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		log.Print("[ERROR] failed to get Build info")
		return Labels{
			LabelArch: runtime.GOARCH,
			LabelOS:   runtime.GOOS,
		}
	}

	return Labels{
		LabelArch:         runtime.GOARCH,
		LabelOS:           runtime.GOOS,
		LabelBuildVersion: bi.Main.Version,
	}
}

// DetectRuntimeLabels describes the environment this agent instance runs in.
// Logged at startup and attached to collector submissions.
func DetectRuntimeLabels() Labels {
	return MergeLabels(
		GetRuntimeLabels(),
		GetNodeRuntimeLabels(),
	)
}
