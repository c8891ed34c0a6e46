package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentoven/agentdesk/internal/config"
	"github.com/agentoven/agentdesk/internal/credentials"
	"github.com/agentoven/agentdesk/internal/router"
	"github.com/agentoven/agentdesk/pkg/models"
	"github.com/agentoven/agentdesk/pkg/server"
)

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and test AI providers",
	}
	cmd.AddCommand(providersListCmd())
	cmd.AddCommand(providersTestCmd())
	return cmd
}

func providersListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers and models in the catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := server.BuildCatalog(config.Load())
			if err != nil {
				return err
			}
			providers := cat.ListProviders()
			if jsonOutput {
				return printJSON(providers)
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PROVIDER\tMODEL\tCONTEXT\tCREDENTIAL\n")
			for _, p := range providers {
				cred := "-"
				if p.RequiresCredential {
					cred = p.CredentialEnv
					if _, ok := os.LookupEnv(p.CredentialEnv); ok {
						cred += " (set)"
					}
				}
				for _, m := range p.Models {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, m.ID, m.ContextLength, cred)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func providersTestCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "test [provider] [model]",
		Short: "Run a connection test against one provider or every configured one",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			cat, err := server.BuildCatalog(cfg)
			if err != nil {
				return err
			}
			creds := credentials.NewStore()
			creds.SeedFromEnv(cat.ListProviders(), os.LookupEnv)
			rt := router.New(cat, router.WithCredentials(creds))

			var pairs []router.Pair
			switch {
			case all || len(args) == 0:
				pairs = router.DefaultPairs(cat, creds)
			default:
				p := router.Pair{ProviderID: args[0]}
				if len(args) == 2 {
					p.ModelID = args[1]
				} else {
					m, err := cat.DefaultModel(args[0])
					if err != nil {
						return err
					}
					p.ModelID = m.ID
				}
				pairs = []router.Pair{p}
			}
			if len(pairs) == 0 {
				return fmt.Errorf("no providers with credentials configured")
			}

			suite := router.NewSuiteRunner(rt, creds, cfg.Providers.SuiteDelay)
			report := suite.Run(context.Background(), pairs, func(p router.SuiteProgress) {
				printResult(p.Last)
			})
			fmt.Printf("\n%d/%d passed, average latency %dms\n", report.Succeeded, report.Total, report.AverageLatencyMs)
			if report.Failed > 0 {
				return fmt.Errorf("%d provider test(s) failed", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "test every provider that has a credential")
	return cmd
}

func printResult(r models.ConnectionResult) {
	if r.Success {
		fmt.Printf("✓ %s/%s %dms\n", r.Provider, r.Model, r.LatencyMs)
		return
	}
	fmt.Printf("✗ %s/%s %s\n", r.Provider, r.Model, r.Error)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
