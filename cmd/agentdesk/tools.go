package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentoven/agentdesk/internal/config"
	"github.com/agentoven/agentdesk/internal/mention"
	"github.com/agentoven/agentdesk/pkg/models"
	"github.com/agentoven/agentdesk/pkg/server"
)

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and run workspace tools",
	}
	cmd.AddCommand(toolsListCmd())
	cmd.AddCommand(toolsRunCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := server.BuildTools(config.Load())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "TOOL\tCATEGORY\tENABLED\tDESCRIPTION\n")
			for _, t := range reg.List() {
				fmt.Fprintf(tw, "@%s\t%s\t%v\t%s\n", t.Name, t.Category, t.Enabled, t.Description)
			}
			return tw.Flush()
		},
	}
}

func toolsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <tool> [query...]",
		Short: "Run a single tool against the workspace",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := server.BuildTools(config.Load())
			if err != nil {
				return err
			}
			res, err := reg.Execute(cmd.Context(), models.ToolRequest{
				Type:  strings.TrimPrefix(args[0], "@"),
				Query: strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			fmt.Println(res.Content)
			return nil
		},
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text...>",
		Short: "Show the tool mentions found in a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(mention.Parse(strings.Join(args, " ")))
		},
	}
}
