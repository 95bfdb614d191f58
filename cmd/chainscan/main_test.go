package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlead/internal/chain/models"
	"chainlead/internal/chain/service"
	jwttoken "chainlead/internal/jwt_token"
)

func TestAddressRequest(t *testing.T) {
	t.Cleanup(func() { addressFlags = struct{ street, city, state, zip string }{} })

	addressFlags.street, addressFlags.city, addressFlags.state = "12 Oak St", "Austin", "TX"
	_, err := addressRequest()
	require.Error(t, err)

	addressFlags.zip = "78701"
	req, err := addressRequest()
	require.NoError(t, err)
	assert.Equal(t, service.ModeByAddress, req.Mode)
	assert.Equal(t, "12 Oak St, Austin, TX 78701", req.Address.String())
}

func TestPrintResult(t *testing.T) {
	saleDate := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	result := &service.Result{
		Mode: service.ModeBatchScan,
		Chains: []models.ChainMatch{{
			Sold:            models.Address{Street: "12 Oak St"},
			SaleDate:        &saleDate,
			BuyerName:       "Jane Doe",
			Owned:           models.Address{Street: "9 Elm Ave"},
			ConfidenceScore: 80,
		}},
		ListingsProcessed: 2,
		ChainsPersisted:   1,
		Message:           "Scanned 2 listing(s), detected 1 ownership chain(s)",
	}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.EqualValues(t, 2, out["listingsProcessed"])
	assert.EqualValues(t, 1, out["chainsDetected"])
	chain := out["chains"].([]any)[0].(map[string]any)
	assert.Equal(t, "2026-09-20", chain["saleDate"])
}

func TestParseStatus(t *testing.T) {
	s, err := parseStatus("revealed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRevealed, s)

	_, err = parseStatus("detected")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")
	t.Cleanup(func() { tokenFlags.clientID, tokenFlags.ttl = "", 24*time.Hour })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"token", "--client", "crm-sync", "--ttl", "1h"})
	require.NoError(t, rootCmd.Execute())

	token := bytes.TrimSpace(buf.Bytes())
	claims, err := jwttoken.NewJWTService("cli-test-key", jwttoken.Issuer, jwttoken.Audience).ValidateToken(string(token))
	require.NoError(t, err)
	assert.Equal(t, "crm-sync", claims.ClientID)
}
