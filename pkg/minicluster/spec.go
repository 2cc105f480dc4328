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

// Package minicluster builds and manages Flux Operator MiniCluster
// custom resources. The spec types carry the optional-field rules in
// their serialization contract: an optional field that was not supplied
// is absent from the output, never present with an empty value.
package minicluster

// Defaults applied by Build when the caller leaves the value empty.
const (
	// DefaultOptionFlags are the MPI and affinity flags passed to flux.
	DefaultOptionFlags = "-ompi=openmpi@5 -c 1 -o cpu-affinity=per-task"

	// DefaultImage is the reference container image for the MiniCluster.
	DefaultImage = "ghcr.io/flux-framework/flux-restful-api"

	// connectTimeout is required for an external cluster to connect.
	connectTimeout = "5s"
)

// Logging selects the logging modes of the MiniCluster brokers.
type Logging struct {
	ZeroMQ bool `json:"zeromq"`
	Quiet  bool `json:"quiet"`
	Strict bool `json:"strict"`
}

// Flux holds the flux broker options of the MiniCluster.
type Flux struct {
	OptionFlags    string  `json:"option_flags"`
	ConnectTimeout string  `json:"connect_timeout"`
	LogLevel       int     `json:"log_level"`
	Wrap           *string `json:"wrap,omitempty"`
}

// Spec is the MiniCluster custom-resource specification.
type Spec struct {
	Size        int     `json:"size"`
	Namespace   string  `json:"namespace"`
	Name        string  `json:"name"`
	Interactive bool    `json:"interactive"`
	Logging     Logging `json:"logging"`
	Flux        Flux    `json:"flux"`
	Tasks       *int    `json:"tasks,omitempty"`
}

// ResourceValues holds the resource dimensions that were supplied.
type ResourceValues struct {
	CPU    *int64  `json:"cpu,omitempty"`
	Memory *string `json:"memory,omitempty"`
}

// Resources mirrors the supplied limits into requests; no distinct
// request-vs-limit policy is supported.
type Resources struct {
	Limits   ResourceValues `json:"limits"`
	Requests ResourceValues `json:"requests"`
}

// FluxUser is a custom user name for the container.
type FluxUser struct {
	Name string `json:"name"`
}

// Container is the MiniCluster job container specification.
type Container struct {
	Image     string     `json:"image"`
	Command   string     `json:"command"`
	Resources *Resources `json:"resources,omitempty"`
	FluxUser  *FluxUser  `json:"flux_user,omitempty"`
}

// BuildParams are the job parameters a Spec and Container are built
// from. String fields left empty and nil pointers mean "not supplied".
type BuildParams struct {
	Command     string
	Size        int
	Tasks       *int
	CPULimit    *int64
	MemoryLimit string
	Flags       string
	Name        string
	Namespace   string
	Image       string
	Wrap        *string
	LogLevel    int
	FluxUser    string
	ZeroMQ      bool
	Quiet       bool
	Strict      bool
}

// Build constructs the MiniCluster spec and its container spec from job
// parameters. Pure construction: no network or file I/O.
//
// Limits should be slightly below actual pod resources. When a limit is
// supplied it is mirrored into both limits and requests for that
// resource; when neither limit is supplied the container carries no
// resources section at all.
func Build(params BuildParams) (Spec, Container) {
	flags := params.Flags
	if flags == "" {
		flags = DefaultOptionFlags
	}
	image := params.Image
	if image == "" {
		image = DefaultImage
	}

	container := Container{
		Image:   image,
		Command: params.Command,
	}

	if params.CPULimit != nil || params.MemoryLimit != "" {
		resources := &Resources{}
		if params.CPULimit != nil {
			resources.Limits.CPU = params.CPULimit
			resources.Requests.CPU = params.CPULimit
		}
		if params.MemoryLimit != "" {
			memory := params.MemoryLimit
			resources.Limits.Memory = &memory
			resources.Requests.Memory = &memory
		}
		container.Resources = resources
	}

	if params.FluxUser != "" {
		container.FluxUser = &FluxUser{Name: params.FluxUser}
	}

	spec := Spec{
		Size:        params.Size,
		Namespace:   params.Namespace,
		Name:        params.Name,
		Interactive: false,
		Logging: Logging{
			ZeroMQ: params.ZeroMQ,
			Quiet:  params.Quiet,
			Strict: params.Strict,
		},
		Flux: Flux{
			OptionFlags:    flags,
			ConnectTimeout: connectTimeout,
			LogLevel:       params.LogLevel,
			Wrap:           params.Wrap,
		},
		Tasks: params.Tasks,
	}

	return spec, container
}
