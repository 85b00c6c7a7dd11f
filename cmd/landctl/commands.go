package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/stwalsh4118/acreage/internal/services"
)

// deps are the services the provider-backed commands need.
type deps struct {
	parcels services.ParcelService
	content services.ContentService
}

// regionFlags are shared by commands that look up a parcel.
type regionFlags struct {
	state  string
	county string
}

func (f *regionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.state, "state", "", "two-letter state code (defaults to PARCELS_DEFAULT_STATE)")
	cmd.Flags().StringVar(&f.county, "county", "", "county name (defaults to PARCELS_DEFAULT_COUNTY)")
}

// newRootCmd assembles the command tree. load is called lazily so commands
// that need no providers run without configuration.
func newRootCmd(load func() (*deps, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "landctl",
		Short:         "Operator tooling for the acreage listing pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newParcelCmd(load),
		newDescribeCmd(load),
		newPriceCmd(),
	)
	return root
}

func newParcelCmd(load func() (*deps, error)) *cobra.Command {
	var region regionFlags
	cmd := &cobra.Command{
		Use:   "parcel <parcel-id>",
		Short: "Fetch and print the normalized property record for a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := load()
			if err != nil {
				return err
			}

			record, err := d.parcels.FetchPropertyRecord(cmd.Context(), args[0], region.state, region.county)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}
	region.register(cmd)
	return cmd
}

func newDescribeCmd(load func() (*deps, error)) *cobra.Command {
	var region regionFlags
	cmd := &cobra.Command{
		Use:   "describe <parcel-id>",
		Short: "Preview the listing title and description for a parcel",
		Long: "Fetches the parcel and generates its listing copy without charging a credit.\n" +
			"The description falls back to the template when no text provider is configured.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := load()
			if err != nil {
				return err
			}

			record, err := d.parcels.FetchPropertyRecord(cmd.Context(), args[0], region.state, region.county)
			if err != nil {
				return err
			}

			content := d.content.GenerateListingContent(cmd.Context(), *record)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n%s\n\n(source: %s)\n", content.Title, content.Description, content.Source)
			return nil
		},
	}
	region.register(cmd)
	return cmd
}

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <acres>",
		Short: "Print the synthetic price estimate for an acreage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acres, err := strconv.ParseFloat(args[0], 64)
			if err != nil || acres <= 0 {
				return fmt.Errorf("acres must be a positive number, got %q", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), services.EstimatePrice(acres))
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
