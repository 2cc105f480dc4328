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

// Package provisioner acquires a target Kubernetes cluster for one
// deployment run, either a pre-existing local cluster or a freshly
// created cloud cluster, and owns its teardown.
package provisioner

import (
	"context"

	"github.com/converged-computing/flux-operator-component/pkg/kube"
)

// ClusterDescriptor sizes a remote cluster. Immutable once the create
// call has been issued.
type ClusterDescriptor struct {
	Project     string
	Name        string
	NodeCount   int64
	MachineType string
	MinNodes    int64
	MaxNodes    int64
}

// Session is a handle on an acquired cluster. Release must run on
// every exit path once Acquire has returned, so that a cluster this
// workflow created is never left running.
type Session struct {
	// Clients talk to the acquired cluster.
	Clients *kube.Clients

	// Remote is true when this workflow created the cluster and
	// Release will destroy it.
	Remote bool

	// NodeCount is the provisioned node count for remote clusters.
	NodeCount int64

	release func(ctx context.Context) error
}

// NewSession wraps an acquired cluster. release may be nil for clusters
// this workflow did not create.
func NewSession(clients *kube.Clients, remote bool, nodeCount int64, release func(ctx context.Context) error) *Session {
	return &Session{
		Clients:   clients,
		Remote:    remote,
		NodeCount: nodeCount,
		release:   release,
	}
}

// Release tears down whatever Acquire created. A no-op for local
// clusters, a cloud cluster delete for remote ones.
func (s *Session) Release(ctx context.Context) error {
	if s.release == nil {
		return nil
	}
	return s.release(ctx)
}

// Provisioner acquires a cluster for the workflow.
type Provisioner interface {
	Acquire(ctx context.Context) (*Session, error)
}
