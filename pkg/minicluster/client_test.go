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
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

func runningBrokerPod(namespace, name string) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name + "-0-abcd",
			Namespace: namespace,
		},
		Status: corev1.PodStatus{Phase: corev1.PodRunning},
	}
}

// newFixture builds a Client over fake clientsets and a memory fs.
func newFixture(t *testing.T, pods ...runtime.Object) (*Client, afero.Fs) {
	t.Helper()

	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		GroupVersionResource: "MiniClusterList",
	}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds)
	core := fake.NewSimpleClientset(pods...)

	fs := afero.NewMemMapFs()
	client := NewClient(core, dyn, fs)
	client.pollInterval = time.Millisecond
	return client, fs
}

func testSpec() (Spec, Container) {
	return Build(BuildParams{
		Command:   "echo hello world",
		Size:      2,
		Name:      "flux-sample",
		Namespace: "flux-operator",
		LogLevel:  7,
	})
}

func TestCreateWaitsForBroker(t *testing.T) {
	client, _ := newFixture(t, runningBrokerPod("flux-operator", "flux-sample"))
	spec, container := testSpec()

	if err := client.Create(context.Background(), spec, container); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := client.dyn.Resource(GroupVersionResource).Namespace("flux-operator").
		Get(context.Background(), "flux-sample", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("Expected the minicluster to exist: %v", err)
	}
	if kind := got.GetKind(); kind != "MiniCluster" {
		t.Errorf("Expected kind MiniCluster, got %q", kind)
	}
}

func TestCreateToleratesExistingResource(t *testing.T) {
	client, _ := newFixture(t, runningBrokerPod("flux-operator", "flux-sample"))
	spec, container := testSpec()

	if err := client.Create(context.Background(), spec, container); err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	if err := client.Create(context.Background(), spec, container); err != nil {
		t.Fatalf("Second create should be treated as success, got: %v", err)
	}
}

func TestCreateTimesOutWithoutBroker(t *testing.T) {
	client, _ := newFixture(t) // no pods
	spec, container := testSpec()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := client.Create(ctx, spec, container); err == nil {
		t.Fatalf("Expected an error when the broker pod never appears")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	client, _ := newFixture(t, runningBrokerPod("flux-operator", "flux-sample"))
	spec, container := testSpec()

	if err := client.Create(context.Background(), spec, container); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := client.Delete(context.Background(), "flux-operator", "flux-sample"); err != nil {
		t.Fatalf("First delete failed: %v", err)
	}
	if err := client.Delete(context.Background(), "flux-operator", "flux-sample"); err != nil {
		t.Fatalf("Second delete must not raise, got: %v", err)
	}
}

func TestStreamOutputWritesSink(t *testing.T) {
	client, fs := newFixture(t, runningBrokerPod("flux-operator", "flux-sample"))

	lines, err := client.StreamOutput(context.Background(), "flux-operator", "flux-sample", "/tmp/job.out")
	if err != nil {
		t.Fatalf("StreamOutput failed: %v", err)
	}
	// The fake clientset serves a fixed log body.
	if len(lines) == 0 {
		t.Fatalf("Expected collected lines from the log stream")
	}

	content, err := afero.ReadFile(fs, "/tmp/job.out")
	if err != nil {
		t.Fatalf("Expected the output file to exist: %v", err)
	}
	if len(content) == 0 {
		t.Errorf("Expected the output file to contain the streamed lines")
	}
}

func TestStreamOutputDiscardsWithoutSink(t *testing.T) {
	client, fs := newFixture(t, runningBrokerPod("flux-operator", "flux-sample"))

	if _, err := client.StreamOutput(context.Background(), "flux-operator", "flux-sample", ""); err != nil {
		t.Fatalf("StreamOutput failed: %v", err)
	}

	empty, err := afero.IsEmpty(fs, "/")
	if err != nil {
		t.Fatalf("Failed to inspect fs: %v", err)
	}
	if !empty {
		t.Errorf("Expected no files to be written when output is discarded")
	}
}

func TestStreamOutputWithoutBrokerFails(t *testing.T) {
	client, _ := newFixture(t) // no pods

	if _, err := client.StreamOutput(context.Background(), "flux-operator", "flux-sample", ""); err == nil {
		t.Fatalf("Expected an error when no broker pod exists")
	}
}

// newFailingListFixture builds a Client whose pod listing fails for the
// first failures calls and then behaves normally.
func newFailingListFixture(t *testing.T, failures int, pods ...runtime.Object) *Client {
	t.Helper()

	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		GroupVersionResource: "MiniClusterList",
	}
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds)
	core := fake.NewSimpleClientset(pods...)

	calls := 0
	core.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		calls++
		if calls <= failures {
			return true, nil, errors.New("connection refused")
		}
		return false, nil, nil
	})

	client := NewClient(core, dyn, afero.NewMemMapFs())
	client.pollInterval = time.Millisecond
	return client
}

func TestCreateToleratesTransientListFailure(t *testing.T) {
	client := newFailingListFixture(t, 2, runningBrokerPod("flux-operator", "flux-sample"))
	spec, container := testSpec()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Create(ctx, spec, container); err != nil {
		t.Fatalf("Expected the readiness wait to ride out transient list failures, got: %v", err)
	}
}

func TestStreamOutputPropagatesListFailure(t *testing.T) {
	client := newFailingListFixture(t, 1, runningBrokerPod("flux-operator", "flux-sample"))

	_, err := client.StreamOutput(context.Background(), "flux-operator", "flux-sample", "")
	if err == nil {
		t.Fatalf("Expected the list failure to propagate")
	}
	if !strings.Contains(err.Error(), "failed to list pods") {
		t.Errorf("Expected a list error, not a missing-pod error, got: %v", err)
	}
}

func TestCopyLinesHandlesLongLines(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	var sink bytes.Buffer

	lines, err := copyLines(strings.NewReader(long+"\nshort\n"), &sink)
	if err != nil {
		t.Fatalf("copyLines failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0] != long {
		t.Errorf("Expected the long line to survive intact, got %d bytes", len(lines[0]))
	}
	if lines[1] != "short" {
		t.Errorf("Expected the trailing line, got %q", lines[1])
	}
}
