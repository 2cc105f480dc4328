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
	"fmt"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// WriteYAML saves the composed custom resource to a file so a run can
// be reproduced with a plain apply later.
func WriteYAML(fs afero.Fs, path string, spec Spec, container Container) error {
	obj, err := CustomResource(spec, container)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(obj.Object)
	if err != nil {
		return fmt.Errorf("failed to marshal minicluster yaml: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write minicluster yaml to %s: %w", path, err)
	}
	return nil
}
