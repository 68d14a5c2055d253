package cli

import (
	"fmt"

	"github.com/garyjia/design-bureau/internal/container"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "Inspect and repair contract folder jobs",
}

var foldersFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List folder jobs that failed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		db, repos, err := e.openStore()
		if err != nil {
			return err
		}
		defer db.Conn.Close()

		jobs, err := repos.FolderJobs.ListByStatus(cmd.Context(), entity.FolderJobFailed)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(jobs) == 0 {
			fmt.Fprintln(out, "No failed folder jobs.")
			return nil
		}
		for _, j := range jobs {
			fmt.Fprintf(out, "#%d contract=%d %s attempts=%d %q -> %q: %s\n",
				j.ID, j.ContractID, j.Kind, j.Attempts, j.OldPath, j.NewPath, j.LastError)
		}
		return nil
	},
}

var foldersRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run failed folder jobs against the contracts' current paths",
	Long: `Re-run every failed folder job. Create and relocate jobs are pointed at
the contract's current folder path first; jobs of deleted contracts are
skipped. The command waits until the retried jobs have finished.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		c, err := container.NewContainer(e.cfg, e.logger)
		if err != nil {
			return err
		}
		if err := c.Start(cmd.Context()); err != nil {
			return err
		}
		defer c.Close()

		n, err := c.FolderSync().RetryFailed(cmd.Context())
		if err != nil {
			return err
		}
		c.FolderSync().WaitIdle()

		stats := c.FolderSync().Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "Retried %d jobs: %d succeeded, %d failed\n", n, stats.Succeeded, stats.Failed)
		return nil
	},
}

func init() {
	foldersCmd.AddCommand(foldersFailedCmd)
	foldersCmd.AddCommand(foldersRetryCmd)
	RootCmd.AddCommand(foldersCmd)
}
