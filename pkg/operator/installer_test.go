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

package operator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/converged-computing/flux-operator-component/pkg/cleanup"
)

// fakeApplier records applied manifests and can fail on demand.
type fakeApplier struct {
	applied [][]byte
	err     error
}

func (f *fakeApplier) ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error {
	f.applied = append(f.applied, manifests)
	return f.err
}

// newInstallerFixture wires an Installer whose downloads are served
// from the memory filesystem instead of the network, recording each
// fetched source.
func newInstallerFixture(fs afero.Fs) (*Installer, *[]string) {
	installer := NewInstaller(fs, cleanup.NewManager(fs))
	var fetched []string
	installer.fetch = func(ctx context.Context, src, dst string) error {
		fetched = append(fetched, src)
		return afero.WriteFile(fs, dst, []byte("kind: Namespace\napiVersion: v1\nmetadata:\n  name: operator-system\n"), 0644)
	}
	return installer, &fetched
}

func TestEnsureDownloadsDefaultManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, fetched := newInstallerFixture(fs)

	source, err := installer.Ensure(context.Background(), "")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !source.Downloaded {
		t.Errorf("Expected the manifest to be marked downloaded")
	}
	if len(*fetched) != 1 || (*fetched)[0] != DefaultManifestURL {
		t.Errorf("Expected the default manifest URL to be fetched, got %v", *fetched)
	}
	exists, _ := afero.Exists(fs, source.Path)
	if !exists {
		t.Errorf("Expected the downloaded manifest at %s", source.Path)
	}
}

func TestEnsureDownloadsRemoteURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, fetched := newInstallerFixture(fs)

	url := "https://example.com/operator.yaml"
	source, err := installer.Ensure(context.Background(), url)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if !source.Downloaded {
		t.Errorf("Expected the manifest to be marked downloaded")
	}
	if len(*fetched) != 1 || (*fetched)[0] != url {
		t.Errorf("Expected %s to be fetched, got %v", url, *fetched)
	}
}

func TestEnsureDownloadErrorPropagates(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer := NewInstaller(fs, cleanup.NewManager(fs))
	installer.fetch = func(ctx context.Context, src, dst string) error {
		return errors.New("connection refused")
	}

	if _, err := installer.Ensure(context.Background(), ""); err == nil {
		t.Fatalf("Expected the download error to propagate")
	}
}

func TestEnsureRequiresExistingLocalPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, _ := newInstallerFixture(fs)

	_, err := installer.Ensure(context.Background(), "/srv/flux-operator.yaml")
	if err == nil {
		t.Fatalf("Expected an error for a missing local manifest")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("Expected a does-not-exist error, got: %v", err)
	}
}

func TestEnsureAcceptsExistingLocalPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, fetched := newInstallerFixture(fs)
	if err := afero.WriteFile(fs, "/srv/flux-operator.yaml", []byte("kind: Namespace\n"), 0644); err != nil {
		t.Fatalf("Failed to seed manifest: %v", err)
	}

	source, err := installer.Ensure(context.Background(), "/srv/flux-operator.yaml")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if source.Downloaded {
		t.Errorf("Expected a local manifest not to be marked downloaded")
	}
	if len(*fetched) != 0 {
		t.Errorf("Expected no download for a local manifest, got %v", *fetched)
	}
}

func TestInstallRemovesDownloadedManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, _ := newInstallerFixture(fs)

	source, err := installer.Ensure(context.Background(), "")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	applier := &fakeApplier{}
	if err := installer.Install(context.Background(), applier, source); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if len(applier.applied) != 1 {
		t.Fatalf("Expected one apply, got %d", len(applier.applied))
	}

	exists, _ := afero.Exists(fs, source.Path)
	if exists {
		t.Errorf("Expected the downloaded manifest to be removed after install")
	}
}

func TestInstallRemovesDownloadedManifestOnApplyFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, _ := newInstallerFixture(fs)

	source, err := installer.Ensure(context.Background(), "")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	applier := &fakeApplier{err: errors.New("already exists")}
	if err := installer.Install(context.Background(), applier, source); err != nil {
		t.Fatalf("Apply failures are assumed to mean already installed, got: %v", err)
	}

	exists, _ := afero.Exists(fs, source.Path)
	if exists {
		t.Errorf("Expected the downloaded manifest to be removed after a failed install")
	}
}

func TestInstallKeepsLocalManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, _ := newInstallerFixture(fs)
	if err := afero.WriteFile(fs, "/srv/flux-operator.yaml", []byte("kind: Namespace\n"), 0644); err != nil {
		t.Fatalf("Failed to seed manifest: %v", err)
	}

	source, err := installer.Ensure(context.Background(), "/srv/flux-operator.yaml")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	if err := installer.Install(context.Background(), &fakeApplier{}, source); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	exists, _ := afero.Exists(fs, "/srv/flux-operator.yaml")
	if !exists {
		t.Errorf("Expected a pre-existing local manifest to never be deleted")
	}
}

func TestInstallToleratesApplyFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	installer, _ := newInstallerFixture(fs)
	if err := afero.WriteFile(fs, "/srv/flux-operator.yaml", []byte("kind: Namespace\n"), 0644); err != nil {
		t.Fatalf("Failed to seed manifest: %v", err)
	}
	source, err := installer.Ensure(context.Background(), "/srv/flux-operator.yaml")
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	applier := &fakeApplier{err: errors.New("conflict")}
	if err := installer.Install(context.Background(), applier, source); err != nil {
		t.Fatalf("Expected apply failures to be non-fatal, got: %v", err)
	}
}
