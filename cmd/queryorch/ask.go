package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	queryorch "github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch"
	"github.com/alibaba/higress/plugins/golang-filter/mcp-server/servers/queryorch/schema"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question and print the JSON response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := queryorch.NewQueryOrchClient(cfg)
		if err != nil {
			return err
		}
		q := schema.NewQuery(strings.Join(args, " "), schema.NewTenant(tenantOrDefault()))
		resp, askErr := client.Ask(cmd.Context(), q)
		if askErr != nil {
			resp = schema.ErrorResponse(askErr)
		}
		if err := printJSON(resp); err != nil {
			return err
		}
		return askErr
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [question]",
	Short: "Print which capabilities would handle a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := queryorch.NewQueryOrchClient(cfg)
		if err != nil {
			return err
		}
		d := client.Classify(cmd.Context(), strings.Join(args, " "))
		return printJSON(map[string]interface{}{
			"retrieval": d.WantsRetrieval,
			"chart":     d.WantsChart,
			"direct":    d.WantsDirect,
			"rationale": d.Rationale,
			"source":    d.Source,
		})
	},
}

func init() {
	askCmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "Tenant whose knowledge base is searched (default: server.default_tenant)")
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
