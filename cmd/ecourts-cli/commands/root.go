package commands

import (
	"context"
	"fmt"
	"os"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/restyutil"
	"ecourts-backend/lib/scrapers/ecourts"
	"ecourts-backend/lib/scrapers/ecourts/core"
	libtelemetry "ecourts-backend/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	baseUrl  string
	dumpHttp string
	debug    bool
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:   "ecourts-cli",
	Short: "ecourts-cli looks up case status on the eCourts portal from the terminal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(debug)
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&baseUrl, "base-url", core.DefaultBaseUrl, "Base url of the eCourts portal.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every upstream http exchange to this directory.")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging.")
	flags.StringVar(&dbPath, "db", "state/ecourts.db", "Query log database (sqlite file or libsql url).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newScraper() (*ecourts.Scraper, error) {
	opts := core.Options{
		BaseUrl:   baseUrl,
		Telemetry: telemetry.SlogAPI{},
	}
	if dumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(dumpHttp)
		if err != nil {
			return nil, fmt.Errorf("create http dump directory: %w", err)
		}
		opts.Dump = output
	}
	return ecourts.New(opts)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
