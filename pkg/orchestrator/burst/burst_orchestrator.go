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

// Package burst implements the Orchestrator interface for ephemeral
// MiniCluster deployments: acquire a cluster, install the operator,
// submit the job, stream its output, and tear everything down.
package burst

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/converged-computing/flux-operator-component/pkg/kube"
	"github.com/converged-computing/flux-operator-component/pkg/logging"
	"github.com/converged-computing/flux-operator-component/pkg/minicluster"
	"github.com/converged-computing/flux-operator-component/pkg/operator"
	"github.com/converged-computing/flux-operator-component/pkg/orchestrator"
	"github.com/converged-computing/flux-operator-component/pkg/provisioner"
)

// installer resolves and applies the operator manifest.
type installer interface {
	Ensure(ctx context.Context, manifestRef string) (operator.ManifestSource, error)
	Install(ctx context.Context, applier operator.Applier, source operator.ManifestSource) error
}

// jobClient manages the MiniCluster resource on the target cluster.
type jobClient interface {
	Create(ctx context.Context, spec minicluster.Spec, container minicluster.Container) error
	StreamOutput(ctx context.Context, namespace, name, outfile string) ([]string, error)
	Delete(ctx context.Context, namespace, name string) error
}

// Orchestrator runs one burst job end to end. The steps are strictly
// sequential with no branching back. The cluster, namespace, and
// resource name are globally scoped: two concurrent runs sharing a name
// have undefined outcomes, no locking or leasing is provided.
type Orchestrator struct {
	provisioner provisioner.Provisioner
	installer   installer
	fs          afero.Fs

	// newJobClient builds the MiniCluster client for an acquired
	// cluster; replaced in tests.
	newJobClient func(clients *kube.Clients) jobClient
}

// New creates an Orchestrator deploying through the given provisioner.
func New(p provisioner.Provisioner, inst *operator.Installer, fs afero.Fs) *Orchestrator {
	return &Orchestrator{
		provisioner: p,
		installer:   inst,
		fs:          fs,
		newJobClient: func(clients *kube.Clients) jobClient {
			return minicluster.NewClient(clients.Clientset, clients.Dynamic, fs)
		},
	}
}

// Deploy runs the workflow: resolve the operator manifest, acquire a
// cluster, ensure the namespace, install the operator, submit the
// MiniCluster, stream its output until the job completes, delete the
// resource, and release the cluster. Release runs on every exit path
// once the cluster was acquired, so provisioning failures later in the
// sequence never leak billable infrastructure.
func (o *Orchestrator) Deploy(ctx context.Context, job orchestrator.JobDefinition) (err error) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	logging.Step("📛️ Bursted Flux Operator job cluster name will be %s", job.Name)
	logging.Step("📦️ We will use %d nodes.", job.Nodes)

	source, err := o.installer.Ensure(ctx, job.OperatorManifest)
	if err != nil {
		return err
	}

	session, err := o.provisioner.Acquire(ctx)
	if session != nil {
		defer func() {
			// Teardown must not be skipped because the run context
			// expired; it runs detached from the deadline.
			if releaseErr := session.Release(context.WithoutCancel(ctx)); releaseErr != nil {
				err = errors.Join(err, releaseErr)
			}
		}()
	}
	if err != nil {
		return err
	}
	clients := session.Clients

	if err := clients.EnsureNamespace(ctx, job.Namespace); err != nil {
		return err
	}

	if err := o.installer.Install(ctx, clients, source); err != nil {
		return err
	}
	if err := clients.RefreshDiscovery(); err != nil {
		// The resource may still be discoverable; submission will say.
		logging.Debug("Failed to refresh API discovery: %v", err)
	}

	logging.Info("Command is %s", job.Command)
	spec, container := minicluster.Build(minicluster.BuildParams{
		Command:     job.Command,
		Size:        job.Nodes,
		Tasks:       job.Tasks,
		CPULimit:    job.CPULimit,
		MemoryLimit: job.MemoryLimit,
		Flags:       job.Flags,
		Name:        job.Name,
		Namespace:   job.Namespace,
		Image:       job.Image,
		Wrap:        job.Wrap,
		LogLevel:    job.LogLevel,
		FluxUser:    job.FluxUser,
		ZeroMQ:      job.ZeroMQ,
		Quiet:       job.Quiet,
		Strict:      job.Strict,
	})

	if job.MiniClusterYAML != "" {
		if err := minicluster.WriteYAML(o.fs, job.MiniClusterYAML, spec, container); err != nil {
			return err
		}
		logging.Info("Saved the MiniCluster spec to %s", job.MiniClusterYAML)
	}

	jobs := o.newJobClient(clients)

	logging.Step("⭐️ Creating the minicluster %s in %s...", job.Name, job.Namespace)
	if err := jobs.Create(ctx, spec, container); err != nil {
		return err
	}

	lines, streamErr := jobs.StreamOutput(ctx, job.Namespace, job.Name, job.OutFile)
	if streamErr != nil {
		streamErr = fmt.Errorf("failed to stream job output: %w", streamErr)
	} else {
		logging.Info("Collected %d lines of job output.", len(lines))
	}

	// The resource is removed even when streaming failed or the run
	// deadline expired, so neither strands the MiniCluster.
	if deleteErr := jobs.Delete(context.WithoutCancel(ctx), job.Namespace, job.Name); deleteErr != nil {
		return errors.Join(streamErr, deleteErr)
	}
	return streamErr
}
