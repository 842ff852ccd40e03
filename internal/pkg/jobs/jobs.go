// Package jobs starts on-demand workflow runtime jobs on a compute backend.
package jobs

import (
	"strings"
)

const (
	// EnvPayloadURL carries the signed payload URL into the job.
	EnvPayloadURL = "PAYLOAD_URL"
	// EnvRunID carries the run id into the job.
	EnvRunID = "RUN_ID"
	// EnvTenantID carries the tenant id into the job.
	EnvTenantID = "TENANT_ID"
	// EnvWorkflowID carries the workflow id into the job.
	EnvWorkflowID = "WORKFLOW_ID"
	// EnvWorkdir carries the mount path of the working directory into the job.
	EnvWorkdir = "WORKDIR"

	workdirVolumeName = "workdir"
)

// EnvVar is a single environment variable of a job container.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Spec describes the container a job runs.
type Spec struct {
	Name      string
	Image     string
	Command   []string
	Args      []string
	Env       []EnvVar
	MountPath string
}

// EnvList renders the environment as NAME=value pairs, preserving order.
func (s *Spec) EnvList() []string {
	env := make([]string, 0, len(s.Env))
	for _, e := range s.Env {
		env = append(env, e.Name+"="+e.Value)
	}
	return env
}

// Name returns a job name derived from the run id that is valid for container and job APIs.
func Name(runID string) string {
	name := strings.ToLower(runID)
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '-'
	}, name)

	name = "run-" + strings.Trim(name, "-")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}
