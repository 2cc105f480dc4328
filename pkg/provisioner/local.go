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

package provisioner

import (
	"context"
	"fmt"

	"github.com/converged-computing/flux-operator-component/pkg/kube"
	"github.com/converged-computing/flux-operator-component/pkg/logging"
)

// Local uses a cluster that is already reachable with the ambient
// credentials configured on the host, such as kind or minikube. It
// never creates or destroys anything.
type Local struct{}

// NewLocal returns a provisioner for an already-running cluster.
func NewLocal() *Local {
	return &Local{}
}

// Acquire connects to the ambient cluster.
func (l *Local) Acquire(ctx context.Context) (*Session, error) {
	clients, err := kube.NewFromAmbientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to local cluster: %w", err)
	}
	logging.Info("Using the local cluster already configured for kubectl.")
	return &Session{Clients: clients}, nil
}
