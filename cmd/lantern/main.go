// Command lantern is the CLI client for the lantern daemons.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lanternhq/lantern/internal/search"
)

var (
	serverURL string
	jsonOut   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "lantern",
		Short:         "Client for the lantern search service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:7701",
		"base URL of the daemon to talk to (searcher by default; point at the indexer for writes)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print raw JSON instead of a table")

	rootCmd.AddCommand(searchCmd(), schemaCmd(), docCmd(), flushCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lantern: %v\n", err)
		os.Exit(1)
	}
}

func searchCmd() *cobra.Command {
	var (
		from      string
		filter    string
		sel       []string
		sortExpr  string
		offset    int
		limit     int
		functions []string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a filter-plus-rank query",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient(serverURL).search(search.Request{
				From:      from,
				Filter:    filter,
				Select:    sel,
				Sort:      sortExpr,
				Offset:    offset,
				Limit:     limit,
				Functions: functions,
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(res)
			}
			fmt.Println(renderTable(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "schema name (required)")
	cmd.Flags().StringVar(&filter, "filter", "", "filter string")
	cmd.Flags().StringSliceVar(&sel, "select", []string{"*"}, "fields to project")
	cmd.Flags().StringVar(&sortExpr, "sort", "", "scoring expression to rank by")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().IntVar(&limit, "limit", search.DefaultLimit, "rows to return")
	cmd.Flags().StringSliceVar(&functions, "function", nil, "derived output column expressions")
	cmd.MarkFlagRequired("from")
	return cmd
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage schemas",
	}

	var manifestPath string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a schema from a manifest file",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := os.ReadFile(manifestPath)
			if err != nil {
				return err
			}
			if err := newClient(serverURL).createSchema(manifest); err != nil {
				return err
			}
			fmt.Println("created")
			return nil
		},
	}
	create.Flags().StringVarP(&manifestPath, "file", "f", "", "manifest JSON file (required)")
	create.MarkFlagRequired("file")

	get := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch a schema manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(serverURL).getSchema(args[0])
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

func docCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Write documents",
	}

	var docPath string
	add := &cobra.Command{
		Use:   "add <schema>",
		Short: "Upsert one document from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := os.ReadFile(docPath)
			if err != nil {
				return err
			}
			if err := newClient(serverURL).addDocument(args[0], doc); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
	add.Flags().StringVarP(&docPath, "file", "f", "", "document JSON file (required)")
	add.MarkFlagRequired("file")

	cmd.AddCommand(add)
	return cmd
}

func flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush <schema>",
		Short: "Commit pending writes now (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(serverURL).flush(args[0]); err != nil {
				return err
			}
			fmt.Println("flushed")
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
