// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
	"time"
)

// JobDefinition holds all the necessary parameters to define a burst
// job. It is built once from the CLI flags and passed down, so no
// default is re-derived from the environment inside the workflow.
type JobDefinition struct {
	// Command is the job command run inside the MiniCluster.
	Command string

	// Nodes is the cluster size; each node runs one pod.
	Nodes int

	// Tasks is the total task count; nil leaves it to the operator.
	Tasks *int

	// CPULimit and MemoryLimit bound the job container. A supplied
	// limit is mirrored into the container's requests.
	CPULimit    *int64
	MemoryLimit string

	// Flags overrides the default flux option flags.
	Flags string

	Name      string
	Namespace string
	Image     string

	// Wrap holds arguments to flux wrap, e.g. "strace,-e,network,-tt".
	Wrap *string

	LogLevel int
	FluxUser string
	ZeroMQ   bool
	Quiet    bool
	Strict   bool

	// OperatorManifest is a local path or URL for the Flux Operator
	// installation manifest; empty means the released default.
	OperatorManifest string

	// OutFile receives the streamed job output; empty discards it.
	OutFile string

	// MiniClusterYAML, when set, saves the composed custom resource
	// to this path before submission.
	MiniClusterYAML string

	// Timeout bounds the whole run; zero means no deadline.
	Timeout time.Duration
}

// Orchestrator defines the interface for running a job end to end on a
// parallel-compute cluster.
type Orchestrator interface {
	// Deploy provisions the environment, runs the job described by
	// the definition, captures its output, and tears everything down.
	Deploy(ctx context.Context, job JobDefinition) error
}
