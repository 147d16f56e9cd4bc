package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "paycore-cli",
		Short: "PayCore CLI tool",
		Long:  `A command line interface for the PayCore reconciliation API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the PayCore API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	walletCmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet operations",
	}

	balanceCmd := &cobra.Command{
		Use:   "balance <tenant-id>",
		Short: "Show a tenant's wallet balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			showBalance(args[0])
		},
	}

	entriesCmd := &cobra.Command{
		Use:   "entries <tenant-id>",
		Short: "List a tenant's ledger entries",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/tenants/" + args[0] + "/wallet/entries")
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <tenant-id>",
		Short: "Replay a tenant's ledger chain against the stored balance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			verifyWallet(args[0])
		},
	}

	walletCmd.AddCommand(balanceCmd, entriesCmd, verifyCmd)
	rootCmd.AddCommand(walletCmd)

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Pending reconciliation operations",
	}

	pendingListCmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications awaiting manual review",
		Run: func(cmd *cobra.Command, args []string) {
			getJSON("/api/v1/reconciliations/pending")
		},
	}

	pendingCmd.AddCommand(pendingListCmd)
	rootCmd.AddCommand(pendingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func getJSON(path string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + path)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	printJSON(result)
}

func showBalance(tenantID string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/api/v1/tenants/" + tenantID + "/wallet")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var wallet struct {
		TenantID string `json:"tenant_id"`
		Balance  int64  `json:"balance"`
		Version  int64  `json:"version"`
	}
	if err := json.Unmarshal(body, &wallet); err != nil {
		fmt.Printf("Failed to parse response: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Tenant:  %s\n", wallet.TenantID)
	fmt.Printf("Balance: %s\n", formatMinor(wallet.Balance))
	fmt.Printf("Version: %d\n", wallet.Version)
}

func verifyWallet(tenantID string) {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(baseURL + "/api/v1/tenants/" + tenantID + "/wallet/verify")
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Ledger verification FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	fmt.Printf("Ledger verification PASSED for tenant %s\n", tenantID)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to format output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

// formatMinor renders minor currency units for terminal output.
func formatMinor(minorUnits int64) string {
	return decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100)).StringFixed(2)
}
