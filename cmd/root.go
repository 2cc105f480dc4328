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

package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/converged-computing/flux-operator-component/pkg/logging"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "flux-burst",
	Short: "Burst a parallel job onto an ephemeral Flux MiniCluster.",
	Long: `flux-burst provisions a multi-node parallel-compute environment on
Kubernetes, runs a single job on it with the Flux Operator, captures the
job output, and tears the environment down. The target is either a
cluster already reachable with kubectl (--local) or a freshly created
GKE cluster (--project).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetDebug(debug)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging.")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
