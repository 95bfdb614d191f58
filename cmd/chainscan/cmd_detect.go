package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chainlead/internal/app"
	"chainlead/internal/chain/handler"
	"chainlead/internal/chain/models"
	"chainlead/internal/chain/service"
)

var addressFlags struct {
	street string
	city   string
	state  string
	zip    string
}

var batchFlags struct {
	limit int
}

var listingCmd = &cobra.Command{
	Use:   "listing <id>",
	Short: "Detect chains for one stored sold listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetect(cmd, service.ByListingID(args[0]))
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Detect chains for a sold address",
	Example: `  chainscan address --street "12 Oak St" --city Austin --state TX --zip 78701`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := addressRequest()
		if err != nil {
			return err
		}
		return runDetect(cmd, req)
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Scan recently sold listings that have no chains yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runDetect(cmd, service.BatchScan(batchFlags.limit))
	},
}

func init() {
	f := addressCmd.Flags()
	f.StringVar(&addressFlags.street, "street", "", "street line (required)")
	f.StringVar(&addressFlags.city, "city", "", "city (required)")
	f.StringVar(&addressFlags.state, "state", "", "state (required)")
	f.StringVar(&addressFlags.zip, "zip", "", "ZIP code (required)")
	for _, name := range []string{"street", "city", "state", "zip"} {
		_ = addressCmd.MarkFlagRequired(name)
	}

	batchCmd.Flags().IntVar(&batchFlags.limit, "limit", models.DefaultScanLimit,
		fmt.Sprintf("recently sold listings to consider (max %d)", models.MaxScanLimit))
}

func addressRequest() (service.Request, error) {
	addr := models.Address{
		Street: addressFlags.street,
		City:   addressFlags.city,
		State:  addressFlags.state,
		Zip:    addressFlags.zip,
	}
	if !addr.Complete() {
		return service.Request{}, fmt.Errorf("street, city, state and zip are required together")
	}
	return service.ByAddress(addr), nil
}

func runDetect(cmd *cobra.Command, req service.Request) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Service.Detect(ctx, req)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result)
	})
}

// printResult writes the same JSON body the HTTP API returns.
func printResult(w io.Writer, result *service.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(handler.FromResult(result))
}
