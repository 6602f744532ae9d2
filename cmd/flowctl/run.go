package main

import (
	"fmt"
	"path/filepath"

	"flow-client/core/jobspec"
	"flow-client/core/runner"
	"flow-client/storage"

	"github.com/spf13/cobra"
)

// Fixed inputs of the tree-scatter sample job
const (
	sampleInputFile  = "plane.usd"
	sampleGraphFile  = "addTrees.json"
	sampleOutputFile = "planeWithTrees.usd"
	inputSpaceID     = "scratch:@default"
)

func runCmd() *cobra.Command {
	var (
		trees    int
		inputDir string
		outDir   string
		logDir   string
		space    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the tree-scatter sample job end to end",
		Long: `Uploads the sample plane geometry and bifrost graph, submits a
graph-evaluation job scattering trees over the plane, waits for it to
finish, and downloads its outputs and logs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}

			history := openHistory(cfg)
			if history != nil {
				defer history.Close()
			}

			var archiver *storage.Archiver
			if cfg.ArchiveBucket != "" {
				archiver, err = storage.NewArchiver(cmd.Context(), cfg.ArchiveBucket, cfg.ArchivePrefix, logger)
				if err != nil {
					return err
				}
			}

			r := runner.New(c, history, archiver, logger)
			spec := runner.Spec{
				SpaceID: space,
				Inputs: []string{
					filepath.Join(inputDir, sampleInputFile),
					filepath.Join(inputDir, sampleGraphFile),
				},
				BuildJob: func(urns map[string]string) jobspec.Job {
					return jobspec.ScatterJob(jobspec.ScatterParams{
						GraphURN:       urns[sampleGraphFile],
						InputURN:       urns[sampleInputFile],
						InputFilename:  sampleInputFile,
						OutputFilename: sampleOutputFile,
						TreeCount:      trees,
					})
				},
				OutDir:       outDir,
				LogDir:       logDir,
				PollInterval: cfg.PollInterval,
				MaxWait:      cfg.MaxWait,
			}

			res, err := r.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}
			printRunResult(res)
			return nil
		},
	}

	cmd.Flags().IntVar(&trees, "trees", 100, "number of trees to scatter")
	cmd.Flags().StringVar(&inputDir, "input-dir", "input-data", "directory holding the sample input files")
	cmd.Flags().StringVar(&outDir, "out-dir", ".outputs", "directory for downloaded outputs")
	cmd.Flags().StringVar(&logDir, "log-dir", ".logs", "directory for downloaded logs")
	cmd.Flags().StringVar(&space, "space", inputSpaceID, "storage space for input uploads")

	return cmd
}

func printRunResult(res runner.Result) {
	fmt.Printf("job %s finished with status %s\n", res.JobID, res.Job.Status)
	fmt.Printf("outputs (%d):\n", len(res.Outputs))
	for _, p := range res.Outputs {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("logs (%d):\n", len(res.Logs))
	for _, p := range res.Logs {
		fmt.Printf("  %s\n", p)
	}
	for _, key := range res.Archived {
		fmt.Printf("archived: %s\n", key)
	}
}
