package commands

import (
	"context"
	"fmt"

	"ecourts-backend/lib/scrapers/ecourts"
	"ecourts-backend/lib/scrapers/ecourts/directory"
	"ecourts-backend/lib/scrapers/ecourts/markup"
	"ecourts-backend/lib/textutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// similarity a fuzzy name has to reach to be accepted
const matchThreshold = 0.85

func init() {
	rootCmd.AddCommand(warmCmd, statesCmd, districtsCmd, complexesCmd, caseTypesCmd)
}

// resolve accepts either an option's code or something close to its name.
func resolve(options []markup.Option, arg, label string) (markup.Option, error) {
	candidates := make([]textutil.Candidate, len(options))
	for i, o := range options {
		if o.Value == arg {
			return o, nil
		}
		candidates[i] = textutil.Candidate{Key: o.Value, Name: o.Text}
	}
	match, ok := textutil.Closest(arg, candidates, matchThreshold)
	if !ok {
		return markup.Option{}, fmt.Errorf("no %s matches '%s'", label, arg)
	}
	for _, o := range options {
		if o.Value == match.Key {
			return o, nil
		}
	}
	return markup.Option{}, fmt.Errorf("no %s matches '%s'", label, arg)
}

// location is a state, district and court complex resolved from
// positional arguments, any prefix of them may be given.
type location struct {
	state    markup.Option
	district markup.Option
	complex  markup.Option
}

func resolveLocation(ctx context.Context, scraper *ecourts.Scraper, args []string) (location, error) {
	var loc location
	var err error
	if len(args) > 0 {
		loc.state, err = resolve(scraper.Directory.States(ctx), args[0], "state")
		if err != nil {
			return loc, err
		}
	}
	if len(args) > 1 {
		loc.district, err = resolve(scraper.Directory.Districts(ctx, loc.state.Value), args[1], "district")
		if err != nil {
			return loc, err
		}
	}
	if len(args) > 2 {
		loc.complex, err = resolve(scraper.Directory.Complexes(ctx, loc.state.Value, loc.district.Value), args[2], "court complex")
		if err != nil {
			return loc, err
		}
	}
	return loc, nil
}

func printOptions(options []markup.Option, extra bool) {
	t := newTable()
	header := table.Row{"Code", "Name"}
	if extra {
		header = append(header, "Raw value", "Establishments", "Flag")
	}
	t.AppendHeader(header)
	for _, o := range options {
		row := table.Row{o.Value, o.Text}
		if extra {
			row = append(row, o.RawValue, o.EstList, o.Flag)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d entries", len(options))})
	t.Render()
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Establishes a portal session and loads the state list.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		if !scraper.Warm(cmd.Context()) {
			return fmt.Errorf("could not establish a session with %s", baseUrl)
		}
		status := scraper.Client.Status()
		fmt.Printf("session ready at %s (token available: %v)\n", status.InitializedAt, status.TokenAvailable)
		return nil
	},
}

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "Lists the states.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		printOptions(scraper.Directory.States(cmd.Context()), false)
		return nil
	},
}

var districtsCmd = &cobra.Command{
	Use:   "districts <state>",
	Short: "Lists the districts of a state, given by code or name.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		loc, err := resolveLocation(cmd.Context(), scraper, args)
		if err != nil {
			return err
		}
		printOptions(scraper.Directory.Districts(cmd.Context(), loc.state.Value), false)
		return nil
	},
}

var complexesCmd = &cobra.Command{
	Use:   "complexes <state> <district>",
	Short: "Lists the court complexes of a district.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		loc, err := resolveLocation(cmd.Context(), scraper, args)
		if err != nil {
			return err
		}
		printOptions(scraper.Directory.Complexes(cmd.Context(), loc.state.Value, loc.district.Value), true)
		return nil
	},
}

var caseTypesCmd = &cobra.Command{
	Use:   "case-types <state> <district> <complex>",
	Short: "Lists the case types of a court complex.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		scraper, err := newScraper()
		if err != nil {
			return err
		}
		loc, err := resolveLocation(cmd.Context(), scraper, args)
		if err != nil {
			return err
		}
		printOptions(scraper.Directory.CaseTypes(cmd.Context(), directory.CaseTypeQuery{
			StateCode:        loc.state.Value,
			DistCode:         loc.district.Value,
			CourtComplexCode: loc.complex.Value,
		}), false)
		return nil
	},
}
