package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"ecourts-backend/lib/scrapers/ecourts/casestatus"
	"ecourts-backend/lib/scrapers/ecourts/directory"

	"github.com/go-playground/validator/v10"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	captchaFile string
	printJson   bool
)

func init() {
	submitCmd.Flags().StringVar(&captchaFile, "captcha-file", "captcha.png", "Where to save the captcha image.")
	submitCmd.Flags().BoolVar(&printJson, "json", false, "Print the full result as JSON.")
	rootCmd.AddCommand(submitCmd)
}

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printResult(result casestatus.SubmitResult) {
	fmt.Printf("%s (%s)\n", result.Message, result.Kind)
	if result.CaseDetailsError != "" {
		fmt.Printf("case details: %s\n", result.CaseDetailsError)
	}
	status := result.CaseStatusData
	if status == nil {
		return
	}

	t := newTable()
	t.AppendRows([]table.Row{
		{"Case number", status.CaseNumber},
		{"Case type", status.CaseType},
		{"CNR", status.CnrNumber},
		{"Court", status.CourtName},
		{"Judge", status.Judge},
		{"Petitioner", status.Petitioner},
		{"Respondent", status.Respondent},
		{"Stage", status.Stage},
		{"Next date", status.NextDate},
	})
	t.Render()

	if len(status.InterimOrders) == 0 {
		return
	}
	orders := newTable()
	orders.AppendHeader(table.Row{"#", "Date", "Details", "Reference"})
	for _, o := range status.InterimOrders {
		orders.AppendRow(table.Row{o.OrderNumber, o.OrderDate, o.OrderDetails, o.DisplayPdfArg})
	}
	orders.Render()
}

var submitCmd = &cobra.Command{
	Use:   "submit <state> <district> <complex> <case-type> <number> <year>",
	Short: "Searches for a case by number, solving the captcha interactively.",
	Long: "Searches for a case by number. The captcha is saved to --captcha-file and its answer " +
		"is read from stdin, the search is made in the same session that fetched the captcha.",
	Args: cobra.ExactArgs(6),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		loc, err := resolveLocation(ctx, scraper, args[:3])
		if err != nil {
			return err
		}
		caseType, err := resolve(scraper.Directory.CaseTypes(ctx, directory.CaseTypeQuery{
			StateCode:        loc.state.Value,
			DistCode:         loc.district.Value,
			CourtComplexCode: loc.complex.Value,
		}), args[3], "case type")
		if err != nil {
			return err
		}

		req := casestatus.SubmitRequest{
			StateCode:        loc.state.Value,
			DistCode:         loc.district.Value,
			CourtComplexCode: loc.complex.Value,
			CaseType:         caseType.Value,
			CaseNo:           args[4],
			Year:             args[5],
		}
		err = validator.New().Struct(req)
		if err != nil {
			return fmt.Errorf("invalid search: %w", err)
		}

		image, _, err := scraper.CaptchaImage(ctx)
		if err != nil {
			return fmt.Errorf("fetch captcha: %w", err)
		}
		err = os.WriteFile(captchaFile, image, 0644)
		if err != nil {
			return err
		}
		req.Captcha, err = readLine(fmt.Sprintf("captcha saved to %s, answer: ", captchaFile))
		if err != nil {
			return err
		}
		if req.Captcha == "" {
			return errors.New("no captcha answer given")
		}

		result := scraper.Workflow.Submit(ctx, req)
		if printJson {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		}
		printResult(result)
		if !result.Success {
			return errors.New(result.Message)
		}
		return nil
	},
}
