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
	"encoding/base64"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	container "google.golang.org/api/container/v1"
	"google.golang.org/api/googleapi"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/transport"

	"github.com/converged-computing/flux-operator-component/pkg/kube"
	"github.com/converged-computing/flux-operator-component/pkg/logging"
)

// DefaultZone hosts burst clusters when no other placement is wired.
const DefaultZone = "us-central1-a"

// clusterRunning is the GKE status for a usable cluster.
const clusterRunning = "RUNNING"

// GKE creates a sized Google Kubernetes Engine cluster and derives an
// API handle from it. Release deletes the cluster.
type GKE struct {
	svc  *container.Service
	desc ClusterDescriptor
	zone string

	// pollInterval paces the wait for the cluster to reach RUNNING.
	pollInterval time.Duration
}

// NewGKE returns a provisioner creating the described cluster with
// application default credentials.
func NewGKE(ctx context.Context, desc ClusterDescriptor) (*GKE, error) {
	svc, err := container.NewService(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create GKE service client")
	}
	return &GKE{
		svc:          svc,
		desc:         desc,
		zone:         DefaultZone,
		pollInterval: 10 * time.Second,
	}, nil
}

// Acquire creates the cluster, waits for it to run, and builds clients
// for it. A cluster that already exists is reused; quota, permission,
// and other non-conflict failures propagate.
func (g *GKE) Acquire(ctx context.Context) (*Session, error) {
	req := &container.CreateClusterRequest{
		Cluster: &container.Cluster{
			Name: g.desc.Name,
			NodePools: []*container.NodePool{
				{
					Name:             "default-pool",
					InitialNodeCount: g.desc.NodeCount,
					Config: &container.NodeConfig{
						MachineType: g.desc.MachineType,
					},
					Autoscaling: &container.NodePoolAutoscaling{
						Enabled:      true,
						MinNodeCount: g.desc.MinNodes,
						MaxNodeCount: g.desc.MaxNodes,
					},
				},
			},
		},
	}

	logging.Info("Creating GKE cluster %s (%d x %s) in project %s...",
		g.desc.Name, g.desc.NodeCount, g.desc.MachineType, g.desc.Project)
	_, err := g.svc.Projects.Zones.Clusters.Create(g.desc.Project, g.zone, req).Context(ctx).Do()
	if IsConflict(err) {
		logging.Info("GKE cluster %s already exists, continuing.", g.desc.Name)
	} else if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create GKE cluster %s", g.desc.Name)
	}

	cluster, err := g.waitRunning(ctx)
	if err != nil {
		// The create call may have succeeded before the wait failed,
		// so hand back a session that can still tear the cluster down.
		return &Session{Remote: true, release: g.delete}, err
	}
	logging.Info("The cluster has %d nodes.", cluster.CurrentNodeCount)

	config, err := g.restConfig(ctx, cluster)
	if err != nil {
		return &Session{Remote: true, release: g.delete}, err
	}
	clients, err := kube.NewForConfig(config)
	if err != nil {
		return &Session{Remote: true, release: g.delete}, err
	}

	return &Session{
		Clients:   clients,
		Remote:    true,
		NodeCount: cluster.CurrentNodeCount,
		release:   g.delete,
	}, nil
}

// waitRunning polls the cluster until GKE reports it RUNNING.
func (g *GKE) waitRunning(ctx context.Context) (*container.Cluster, error) {
	var cluster *container.Cluster
	err := wait.PollUntilContextCancel(ctx, g.pollInterval, true, func(ctx context.Context) (bool, error) {
		current, err := g.svc.Projects.Zones.Clusters.Get(g.desc.Project, g.zone, g.desc.Name).Context(ctx).Do()
		if err != nil {
			return false, pkgerrors.Wrapf(err, "failed to get GKE cluster %s", g.desc.Name)
		}
		cluster = current
		return current.Status == clusterRunning, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "GKE cluster %s did not reach RUNNING", g.desc.Name)
	}
	return cluster, nil
}

// restConfig derives a Kubernetes REST config from the cluster's
// control-plane endpoint and certificate authority.
func (g *GKE) restConfig(ctx context.Context, cluster *container.Cluster) (*rest.Config, error) {
	ca, err := base64.StdEncoding.DecodeString(cluster.MasterAuth.ClusterCaCertificate)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to decode cluster CA certificate")
	}

	tokenSource, err := google.DefaultTokenSource(ctx, container.CloudPlatformScope)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to build GCP token source")
	}

	config := &rest.Config{
		Host: "https://" + cluster.Endpoint,
		TLSClientConfig: rest.TLSClientConfig{
			CAData: ca,
		},
	}
	config.WrapTransport = transport.TokenSourceWrapTransport(tokenSource)
	return config, nil
}

// delete destroys the cloud cluster. A cluster that is already gone is
// treated as success.
func (g *GKE) delete(ctx context.Context) error {
	logging.Info("Destroying GKE cluster %s, we are done!", g.desc.Name)
	_, err := g.svc.Projects.Zones.Clusters.Delete(g.desc.Project, g.zone, g.desc.Name).Context(ctx).Do()
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to delete GKE cluster %s", g.desc.Name)
	}
	return nil
}

// IsConflict reports whether err is the cloud API saying the resource
// already exists. Only this class of failure is safe to suppress;
// quota and permission errors deliberately do not match.
func IsConflict(err error) bool {
	var apiErr *googleapi.Error
	return pkgerrors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

// IsNotFound reports whether err is the cloud API saying the resource
// is already gone.
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	return pkgerrors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
