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

package minicluster

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/converged-computing/flux-operator-component/pkg/logging"
)

// GroupVersionResource identifies the MiniCluster custom resource
// served by the Flux Operator.
var GroupVersionResource = schema.GroupVersionResource{
	Group:    "flux-framework.org",
	Version:  "v1alpha1",
	Resource: "miniclusters",
}

const kind = "MiniCluster"

// resourceSpec is the wire shape under the custom resource's spec key.
// Name and namespace move into the object metadata.
type resourceSpec struct {
	Size        int         `json:"size"`
	Interactive bool        `json:"interactive"`
	Logging     Logging     `json:"logging"`
	Flux        Flux        `json:"flux"`
	Tasks       *int        `json:"tasks,omitempty"`
	Containers  []Container `json:"containers"`
}

// CustomResource composes the MiniCluster object submitted to the
// cluster from a spec and its container.
func CustomResource(spec Spec, container Container) (*unstructured.Unstructured, error) {
	wire := resourceSpec{
		Size:        spec.Size,
		Interactive: spec.Interactive,
		Logging:     spec.Logging,
		Flux:        spec.Flux,
		Tasks:       spec.Tasks,
		Containers:  []Container{container},
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal minicluster spec: %w", err)
	}
	specMap := map[string]interface{}{}
	if err := json.Unmarshal(data, &specMap); err != nil {
		return nil, fmt.Errorf("failed to convert minicluster spec: %w", err)
	}

	return &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": GroupVersionResource.Group + "/" + GroupVersionResource.Version,
			"kind":       kind,
			"metadata": map[string]interface{}{
				"name":      spec.Name,
				"namespace": spec.Namespace,
			},
			"spec": specMap,
		},
	}, nil
}

// Client manages MiniCluster resources on one cluster: submission,
// readiness, output streaming, and deletion.
type Client struct {
	core kubernetes.Interface
	dyn  dynamic.Interface
	fs   afero.Fs

	// pollInterval paces the readiness wait.
	pollInterval time.Duration
}

// NewClient returns a Client using the given API clients. The sink for
// streamed output is opened on fs.
func NewClient(core kubernetes.Interface, dyn dynamic.Interface, fs afero.Fs) *Client {
	return &Client{
		core:         core,
		dyn:          dyn,
		fs:           fs,
		pollInterval: 2 * time.Second,
	}
}

// Create submits the MiniCluster and blocks until its lead broker pod
// is running. A resource that already exists is treated as success.
func (c *Client) Create(ctx context.Context, spec Spec, container Container) error {
	obj, err := CustomResource(spec, container)
	if err != nil {
		return err
	}

	_, err = c.dyn.Resource(GroupVersionResource).Namespace(spec.Namespace).Create(ctx, obj, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		logging.Info("MiniCluster %s already exists, continuing.", spec.Name)
	} else if err != nil {
		return fmt.Errorf("failed to create minicluster %s: %w", spec.Name, err)
	}

	return c.waitReady(ctx, spec.Namespace, spec.Name)
}

// waitReady blocks until the lead broker pod runs, bounded by ctx.
func (c *Client) waitReady(ctx context.Context, namespace, name string) error {
	logging.Info("Waiting for the lead broker pod of %s/%s...", namespace, name)
	err := wait.PollUntilContextCancel(ctx, c.pollInterval, true, func(ctx context.Context) (bool, error) {
		pod, err := c.leadBrokerPod(ctx, namespace, name)
		if err != nil {
			// Listing can fail transiently right after cluster creation.
			logging.Debug("%v", err)
			return false, nil
		}
		if pod == nil {
			return false, nil
		}
		return pod.Status.Phase == corev1.PodRunning || pod.Status.Phase == corev1.PodSucceeded, nil
	})
	if err != nil {
		return fmt.Errorf("minicluster %s/%s did not become ready: %w", namespace, name, err)
	}
	return nil
}

// leadBrokerPod finds the rank-zero broker pod, named <name>-0-<hash>
// by the operator. Returns nil when the pod does not exist yet.
func (c *Client) leadBrokerPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	pods, err := c.core.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in %s: %w", namespace, err)
	}
	prefix := name + "-0"
	for i := range pods.Items {
		if strings.HasPrefix(pods.Items[i].Name, prefix) {
			return &pods.Items[i], nil
		}
	}
	return nil, nil
}

// StreamOutput attaches to the lead broker pod's log stream and blocks
// until the job completes or the stream errors. Every line is written
// to outfile (an empty path discards the output) and the full ordered
// sequence of lines is returned. The sink is flushed and closed even
// when stream iteration fails partway through.
func (c *Client) StreamOutput(ctx context.Context, namespace, name, outfile string) (lines []string, err error) {
	pod, err := c.leadBrokerPod(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	if pod == nil {
		return nil, fmt.Errorf("no lead broker pod found for minicluster %s/%s", namespace, name)
	}

	stream, err := c.core.CoreV1().Pods(namespace).GetLogs(pod.Name, &corev1.PodLogOptions{
		Follow: true,
	}).Stream(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stream logs from pod %s: %w", pod.Name, err)
	}
	defer stream.Close()

	var sink io.Writer = io.Discard
	if outfile != "" {
		file, openErr := c.fs.Create(outfile)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open output file %s: %w", outfile, openErr)
		}
		buffered := bufio.NewWriter(file)
		defer func() {
			if flushErr := buffered.Flush(); flushErr != nil && err == nil {
				err = fmt.Errorf("failed to flush output file %s: %w", outfile, flushErr)
			}
			if closeErr := file.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close output file %s: %w", outfile, closeErr)
			}
		}()
		sink = buffered
	}

	lines, err = copyLines(stream, sink)
	if err != nil {
		return lines, fmt.Errorf("log stream from pod %s failed: %w", pod.Name, err)
	}
	return lines, nil
}

// maxLogLineBytes bounds a single scanned log line. Parallel jobs can
// emit lines far beyond the default 64KiB scanner token limit.
const maxLogLineBytes = 1024 * 1024

// copyLines reads the stream line by line, writing each line to the
// sink and collecting the full ordered sequence.
func copyLines(stream io.Reader, sink io.Writer) (lines []string, err error) {
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 64*1024), maxLogLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if _, writeErr := fmt.Fprintln(sink, line); writeErr != nil {
			return lines, fmt.Errorf("failed to write job output: %w", writeErr)
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return lines, scanErr
	}
	return lines, nil
}

// Delete removes the MiniCluster. Deleting a resource that is already
// gone is not an error, so the call is safe to repeat.
func (c *Client) Delete(ctx context.Context, namespace, name string) error {
	err := c.dyn.Resource(GroupVersionResource).Namespace(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		logging.Debug("MiniCluster %s/%s already deleted.", namespace, name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete minicluster %s/%s: %w", namespace, name, err)
	}
	return nil
}
