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

// Package kube wraps the Kubernetes API clients the deployment workflow
// needs: a typed clientset for namespaces and pods, a dynamic client for
// custom resources, and a REST mapper for applying arbitrary manifests.
package kube

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Clients bundles the API clients for one target cluster.
type Clients struct {
	Clientset kubernetes.Interface
	Dynamic   dynamic.Interface
	Mapper    meta.RESTMapper
	Config    *rest.Config
}

// NewForConfig builds the client bundle from a REST config.
func NewForConfig(config *rest.Config) (*Clients, error) {
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	mapper, err := newMapper(config)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Clientset: clientset,
		Dynamic:   dynamicClient,
		Mapper:    mapper,
		Config:    config,
	}, nil
}

// NewFromAmbientConfig builds the client bundle from the credentials
// already configured on the host: the KUBECONFIG environment variable,
// ~/.kube/config, or the in-cluster service account, in that order.
func NewFromAmbientConfig() (*Clients, error) {
	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
		if _, err := os.Stat(kubeconfig); os.IsNotExist(err) {
			kubeconfig = ""
		}
	}

	var config *rest.Config
	var err error
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config: %w", err)
		}
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build kube config from %s: %w", kubeconfig, err)
		}
	}

	return NewForConfig(config)
}

// NewFromClients builds a bundle from pre-configured clients. This is
// the seam used by tests with fake clientsets.
func NewFromClients(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) *Clients {
	return &Clients{
		Clientset: clientset,
		Dynamic:   dynamicClient,
		Mapper:    mapper,
	}
}

// RefreshDiscovery rebuilds the REST mapper so resources added by a
// freshly installed CRD become visible.
func (c *Clients) RefreshDiscovery() error {
	if c.Config == nil {
		// Test bundles have no REST config to rediscover from.
		return nil
	}
	mapper, err := newMapper(c.Config)
	if err != nil {
		return err
	}
	c.Mapper = mapper
	return nil
}

func newMapper(config *rest.Config) (meta.RESTMapper, error) {
	discoveryClient, err := discovery.NewDiscoveryClientForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, fmt.Errorf("failed to get API group resources: %w", err)
	}
	return restmapper.NewDiscoveryRESTMapper(groupResources), nil
}
