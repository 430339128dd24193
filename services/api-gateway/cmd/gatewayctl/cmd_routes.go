package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/murmurhq/murmur-server/services/api-gateway/internal/domain/routing"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Route table commands",
	Long:  `Validate and inspect the gateway route table. Without --file the embedded default is used.`,
}

var routesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a route table",
	RunE:  runRoutesValidate,
}

var routesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the route table in match order",
	RunE:  runRoutesShow,
}

var routesMatchCmd = &cobra.Command{
	Use:   "match METHOD PATH",
	Short: "Show how the gateway would dispatch a request",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoutesMatch,
}

func init() {
	routesCmd.AddCommand(routesValidateCmd)
	routesCmd.AddCommand(routesShowCmd)
	routesCmd.AddCommand(routesMatchCmd)

	routesCmd.PersistentFlags().StringP("file", "f", "", "Route table file (default: embedded table)")
}

func loadTable(cmd *cobra.Command) (*routing.Table, error) {
	path, _ := cmd.Flags().GetString("file")
	return routing.Load(path)
}

func runRoutesValidate(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %d routes, upstreams: %s\n", len(table.Routes()), strings.Join(table.Upstreams(), ", "))
	return nil
}

func runRoutesShow(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}
	printTable(cmd.OutOrStdout(), table)
	return nil
}

func printTable(out io.Writer, table *routing.Table) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPREFIX\tUPSTREAM\tREWRITE\tPROTECTED\tSENSITIVE")
	for _, r := range table.Routes() {
		sensitive := make([]string, 0, len(r.Sensitive))
		for _, e := range r.Sensitive {
			sensitive = append(sensitive, e.Method+" "+e.Path)
		}
		rewrite := "-"
		if r.Rewrite.From != "" {
			rewrite = r.Rewrite.From + " -> " + r.Rewrite.To
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", r.Name, r.Prefix, r.Upstream, rewrite, r.Protected, strings.Join(sensitive, ", "))
	}
	_ = w.Flush()
}

func runRoutesMatch(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}
	method, path := strings.ToUpper(args[0]), args[1]
	route, ok := table.Match(path)
	if !ok {
		return fmt.Errorf("no route for %s", path)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "route:     %s\n", route.Name)
	fmt.Fprintf(out, "upstream:  %s %s\n", route.Upstream, route.UpstreamPath(path))
	fmt.Fprintf(out, "protected: %t\n", route.Protected)
	fmt.Fprintf(out, "sensitive: %t\n", route.IsSensitive(method, path))
	return nil
}
