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

// Package cleanup removes transient local artifacts, such as downloaded
// operator manifests, regardless of how a deployment run ends.
package cleanup

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/converged-computing/flux-operator-component/pkg/logging"
)

// Manager tracks temporary filesystem paths and guarantees each is
// removed exactly once. Paths that are already gone are tolerated.
type Manager struct {
	fs    afero.Fs
	paths []string
}

// NewManager returns a Manager removing paths from the given filesystem.
func NewManager(fs afero.Fs) *Manager {
	return &Manager{fs: fs}
}

// Track registers a path for removal on the next ReleaseAll.
func (m *Manager) Track(path string) {
	m.paths = append(m.paths, path)
}

// ReleaseAll removes every tracked path. Tracked paths are cleared even
// when removal fails, so a second call never removes anything twice.
func (m *Manager) ReleaseAll() error {
	paths := m.paths
	m.paths = nil

	var firstErr error
	for _, path := range paths {
		err := m.fs.Remove(path)
		if err == nil {
			logging.Debug("Removed temporary file %s", path)
			continue
		}
		if os.IsNotExist(err) {
			continue
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to remove temporary file %s: %w", path, err)
		}
	}
	return firstErr
}
