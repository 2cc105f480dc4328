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
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/converged-computing/flux-operator-component/pkg/cleanup"
	"github.com/converged-computing/flux-operator-component/pkg/logging"
	"github.com/converged-computing/flux-operator-component/pkg/operator"
	"github.com/converged-computing/flux-operator-component/pkg/orchestrator"
	"github.com/converged-computing/flux-operator-component/pkg/orchestrator/burst"
	"github.com/converged-computing/flux-operator-component/pkg/provisioner"
)

var (
	project          string
	clusterName      string
	machineType      string
	cpuLimit         int64
	memoryLimit      string
	outFile          string
	image            string
	command          string
	nNodes           int
	nTasks           int
	logLevel         int
	namespace        string
	local            bool
	zeromq           bool
	quiet            bool
	strict           bool
	name             string
	fluxOperatorYAML string
	fluxUser         string
	wrap             string
	miniClusterYAML  string
	timeout          time.Duration
)

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVar(&project, "project", "", "Google Cloud project.")
	deployCmd.Flags().StringVar(&clusterName, "cluster-name", "flux-cluster", "Cluster name.")
	deployCmd.Flags().StringVar(&machineType, "machine-type", "c2-standard-8", "Google machine type.")
	deployCmd.Flags().Int64Var(&cpuLimit, "cpu-limit", 0, "CPU limit for the job container.")
	deployCmd.Flags().StringVar(&memoryLimit, "memory-limit", "", "Memory limit for the job container.")
	deployCmd.Flags().StringVar(&outFile, "outfile", "", "Save streamed job output to this file.")
	deployCmd.Flags().StringVar(&image, "image", "", "Container image for the MiniCluster.")
	deployCmd.Flags().StringVar(&command, "command", "", "Command for the MiniCluster.")
	deployCmd.Flags().IntVar(&nNodes, "nnodes", 0, "Number of nodes (each with one pod). Required.")
	deployCmd.Flags().IntVar(&nTasks, "ntasks", 0, "Number of tasks.")
	deployCmd.Flags().IntVar(&logLevel, "log-level", 7, "Logging level for flux.")
	deployCmd.Flags().StringVar(&namespace, "namespace", "flux-operator", "Namespace for the external cluster.")
	deployCmd.Flags().BoolVar(&local, "local", false, "Deploy to a local cluster already active with kubectl.")
	deployCmd.Flags().BoolVar(&zeromq, "zeromq", false, "Enable zeromq logging.")
	deployCmd.Flags().BoolVar(&quiet, "quiet", false, "Enable quiet logging.")
	deployCmd.Flags().BoolVar(&strict, "strict", false, "Enable strict mode logging.")
	deployCmd.Flags().StringVar(&name, "name", "flux-sample", "Name for the MiniCluster.")
	deployCmd.Flags().StringVar(&fluxOperatorYAML, "flux-operator-yaml", "", "Local path or URL for the Flux Operator installation manifest.")
	deployCmd.Flags().StringVar(&fluxUser, "flux-user", "", "Custom flux user (defaults to flux).")
	deployCmd.Flags().StringVar(&wrap, "wrap", "", `Arguments to flux wrap, e.g. "strace,-e,network,-tt".`)
	deployCmd.Flags().StringVar(&miniClusterYAML, "minicluster-yaml", "", "Save the composed MiniCluster spec to this file before submitting.")
	deployCmd.Flags().DurationVar(&timeout, "timeout", 0, "Bound the whole run; zero waits forever.")
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run a single job on an ephemeral MiniCluster.",
	Long: `The 'deploy' command ensures a target cluster exists (creating a GKE
cluster when --project is given), installs the Flux Operator, submits a
MiniCluster for the job, streams its output until completion, deletes
the resource, and destroys any cluster it created.`,
	Run:          runDeployCmd,
	SilenceUsage: true,
}

func runDeployCmd(cmd *cobra.Command, args []string) {
	if project == "" && !local {
		logging.Fatal("Please define your Google Cloud Project with --project or specify --local for an existing cluster.")
	}
	if nNodes == 0 {
		logging.Fatal("You must specify number of nodes with --nnodes")
	}

	job := orchestrator.JobDefinition{
		Command:          command,
		Nodes:            nNodes,
		MemoryLimit:      memoryLimit,
		Name:             name,
		Namespace:        namespace,
		Image:            image,
		LogLevel:         logLevel,
		FluxUser:         fluxUser,
		ZeroMQ:           zeromq,
		Quiet:            quiet,
		Strict:           strict,
		OperatorManifest: fluxOperatorYAML,
		OutFile:          outFile,
		MiniClusterYAML:  miniClusterYAML,
		Timeout:          timeout,
	}
	// Flags whose zero value is meaningful stay absent unless set.
	if cmd.Flags().Changed("ntasks") {
		job.Tasks = &nTasks
	}
	if cmd.Flags().Changed("cpu-limit") {
		job.CPULimit = &cpuLimit
	}
	if cmd.Flags().Changed("wrap") {
		job.Wrap = &wrap
	}

	ctx := cmd.Context()
	fs := afero.NewOsFs()

	var clusters provisioner.Provisioner
	if project != "" {
		gke, err := provisioner.NewGKE(ctx, provisioner.ClusterDescriptor{
			Project:     project,
			Name:        clusterName,
			NodeCount:   int64(nNodes),
			MachineType: machineType,
			MinNodes:    int64(nNodes),
			MaxNodes:    int64(nNodes),
		})
		if err != nil {
			logging.Fatal("Failed to create GKE provisioner: %v", err)
		}
		clusters = gke
	} else {
		clusters = provisioner.NewLocal()
	}

	installer := operator.NewInstaller(fs, cleanup.NewManager(fs))
	deployer := burst.New(clusters, installer, fs)

	if err := deployer.Deploy(ctx, job); err != nil {
		logging.Fatal("flux-burst deploy failed: %v", err)
	}
}
