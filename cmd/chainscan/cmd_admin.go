package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chainlead/internal/app"
	"chainlead/internal/chain/models"
	"chainlead/internal/chain/store/listings"
	jwttoken "chainlead/internal/jwt_token"
	"chainlead/internal/platform/config"
)

var seedFlags struct {
	id     string
	street string
	city   string
	state  string
	zip    string
}

var statusFlags struct {
	sold   string
	owned  string
	status string
}

var tokenFlags struct {
	clientID string
	ttl      time.Duration
}

var seedCmd = &cobra.Command{
	Use:   "seed-listing",
	Short: "Insert or update a sold listing, for local runs",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

var statusCmd = &cobra.Command{
	Use:   "set-status",
	Short: "Move a detected chain to revealed or contacted",
	Args:  cobra.NoArgs,
	RunE:  runSetStatus,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API access token signed with JWT_SIGNING_KEY",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.id, "id", "", "listing ID (required)")
	f.StringVar(&seedFlags.street, "street", "", "street line (required)")
	f.StringVar(&seedFlags.city, "city", "", "city")
	f.StringVar(&seedFlags.state, "state", "", "state")
	f.StringVar(&seedFlags.zip, "zip", "", "ZIP code")
	_ = seedCmd.MarkFlagRequired("id")
	_ = seedCmd.MarkFlagRequired("street")

	f = statusCmd.Flags()
	f.StringVar(&statusFlags.sold, "sold", "", "sold street address (required)")
	f.StringVar(&statusFlags.owned, "owned", "", "owned property street address (required)")
	f.StringVar(&statusFlags.status, "status", "", "revealed or contacted (required)")
	for _, name := range []string{"sold", "owned", "status"} {
		_ = statusCmd.MarkFlagRequired(name)
	}

	tokenCmd.Flags().StringVar(&tokenFlags.clientID, "client", "", "API client ID (required)")
	tokenCmd.Flags().DurationVar(&tokenFlags.ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("client")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		l := listings.Listing{
			Ref: models.SoldListingRef{
				ID: seedFlags.id,
				Address: models.Address{
					Street: seedFlags.street,
					City:   seedFlags.city,
					State:  seedFlags.state,
					Zip:    seedFlags.zip,
				},
			},
			Status:     listings.StatusSold,
			LastSeenAt: time.Now().UTC(),
		}
		if err := a.Listings.Save(ctx, l); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved listing %s (%s)\n", l.Ref.ID, l.Ref.Address)
		return nil
	})
}

func parseStatus(raw string) (models.ChainStatus, error) {
	switch s := models.ChainStatus(raw); s {
	case models.StatusRevealed, models.StatusContacted:
		return s, nil
	default:
		return "", fmt.Errorf("status must be %q or %q", models.StatusRevealed, models.StatusContacted)
	}
}

func runSetStatus(cmd *cobra.Command, _ []string) error {
	status, err := parseStatus(statusFlags.status)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Chains.UpdateStatus(ctx, statusFlags.sold, statusFlags.owned, status); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "chain %s -> %s is now %s\n", statusFlags.sold, statusFlags.owned, status)
		return nil
	})
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.Server.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is not set")
	}
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
	token, err := jwtService.GenerateAccessToken(tokenFlags.clientID, tokenFlags.ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
