package main

import (
	"encoding/json"
	"fmt"
	"os"

	"flow-client/core/jobspec"

	"github.com/spf13/cobra"
)

func submitCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a job description from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var job jobspec.Job
			if err := json.Unmarshal(data, &job); err != nil {
				return fmt.Errorf("invalid job JSON: %w", err)
			}

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := c.Authenticate(cmd.Context()); err != nil {
				return err
			}

			id, err := c.SubmitJob(cmd.Context(), job)
			if err != nil {
				return err
			}

			if history := openHistory(cfg); history != nil {
				defer history.Close()
				if err := history.RecordSubmission(id, cfg.QueueID, job.Name); err != nil {
					logger.Warn().Err(err).Msg("failed to record submission in history")
				}
			}

			fmt.Println(id)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the job description JSON")
	cmd.MarkFlagRequired("file")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := c.Authenticate(cmd.Context()); err != nil {
				return err
			}

			job, err := c.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", job.ID, job.Status, job.Name)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all jobs in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := c.Authenticate(cmd.Context()); err != nil {
				return err
			}

			jobs, err := c.ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			for _, job := range jobs {
				fmt.Printf("%s\t%s\t%s\n", job.ID, job.Status, job.Name)
			}
			return nil
		},
	}
}

func downloadCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:       "download <outputs|logs> <job-id>",
		Short:     "Download a job's outputs or logs",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"outputs", "logs"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, jobID := args[0], args[1]
			if kind != "outputs" && kind != "logs" {
				return fmt.Errorf("unknown artifact kind %q (want outputs or logs)", kind)
			}

			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			if err := c.Authenticate(cmd.Context()); err != nil {
				return err
			}

			var paths []string
			if kind == "outputs" {
				paths, err = c.DownloadJobOutputs(cmd.Context(), jobID, dir)
			} else {
				paths, err = c.DownloadJobLogs(cmd.Context(), jobID, dir)
			}
			// report what landed before a mid-batch failure
			for _, p := range paths {
				fmt.Println(p)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "directory to download into")
	return cmd
}
