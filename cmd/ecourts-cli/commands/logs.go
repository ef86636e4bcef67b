package commands

import (
	"fmt"

	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/querylog/db"
	"ecourts-backend/lib/timezone"
	"ecourts-backend/pkg/migrations"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var logsLimit int

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", querylog.DefaultLimit, "Number of logs to show (at most 500).")
	rootCmd.AddCommand(logsCmd, statsCmd)
}

func openLogs() (querylog.Store, func(), error) {
	database, err := migrations.OpenAndMigrateDB(db.Schema, dbPath)
	if err != nil {
		return querylog.Store{}, nil, err
	}
	return querylog.NewStore(database), func() { database.Close() }, nil
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Shows the most recent case searches.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDb, err := openLogs()
		if err != nil {
			return err
		}
		defer closeDb()

		logs, err := store.Recent(cmd.Context(), logsLimit)
		if err != nil {
			return err
		}
		t := newTable()
		t.AppendHeader(table.Row{"ID", "Time", "State", "District", "Case", "Status"})
		for _, l := range logs {
			t.AppendRow(table.Row{l.ID, timezone.Format(l.Timestamp), l.State, l.District, l.CaseNumber, l.Status})
		}
		t.Render()
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarizes the query log.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeDb, err := openLogs()
		if err != nil {
			return err
		}
		defer closeDb()

		stats, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf(
			"%d queries, %d successful, %d failed (%.2f%% success)\n",
			stats.TotalQueries, stats.SuccessfulQueries, stats.FailedQueries, stats.SuccessRate,
		)
		t := newTable()
		t.AppendHeader(table.Row{"State", "Searches"})
		for _, s := range stats.MostSearchedStates {
			t.AppendRow(table.Row{s.State, s.Count})
		}
		t.Render()
		return nil
	},
}
