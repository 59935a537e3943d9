package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/sift/core/search"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func searchCommand(cfg *Config) *cobra.Command {
	var (
		filters     []string
		query, sort string
		page, limit int
		format      string
	)
	cmd := &cobra.Command{
		Use:   "search <entity>",
		Short: "Search records of an entity using the configured store",
		Annotations: map[string]string{
			"group:core": "true",
		},
		Args:      cobra.ExactArgs(1),
		ValidArgs: entityNames(),
		Example: heredoc.Doc(`
			$ sift search appointments --filter status=scheduled,completed --sort -scheduled_at
			$ sift search tasks --filter estimate_hours.from=2 --filter priority=high --limit 5
			$ sift search candidates -q ada --format json
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := lookupEntity(args[0])
			if err != nil {
				return err
			}

			req, err := buildSearchRequest(filters, query, sort, page, limit)
			if err != nil {
				return err
			}

			logger := initLogger("error")
			ds, closers, err := initStore(cmd.Context(), logger, cfg)
			if err != nil {
				return err
			}
			defer func() {
				for _, c := range closers {
					c.Close()
				}
			}()

			searcher, err := e.newSearcher(ds, cfg.Search.options()...)
			if err != nil {
				return err
			}
			result, err := searcher.SearchPage(cmd.Context(), req)
			if err != nil {
				return err
			}

			switch format {
			case formatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			case formatTable:
				return printTable(cmd.OutOrStdout(), e.columns, result)
			}
			return fmt.Errorf("unknown format %q", format)
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "field=value; comma separated values select any of them, field.from / field.to bound a range")
	cmd.Flags().StringVarP(&query, "query", "q", "", "free text matched against the searchable fields")
	cmd.Flags().StringVarP(&sort, "sort", "s", "", "field:asc, field:desc or -field")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number starting at 1")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "records per page")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format, table or json")
	return cmd
}

// buildSearchRequest reuses the query string convention of the HTTP API.
func buildSearchRequest(filters []string, query, sort string, page, limit int) (search.SearchRequest, error) {
	values := map[string][]string{}
	for _, f := range filters {
		key, val, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return search.SearchRequest{}, fmt.Errorf("invalid filter %q, expected field=value", f)
		}
		k := "filter." + strings.TrimSpace(key)
		values[k] = append(values[k], val)
	}
	if query != "" {
		values["q"] = []string{query}
	}
	if sort != "" {
		values["sort"] = []string{sort}
	}
	if page > 0 {
		values["page"] = []string{fmt.Sprint(page)}
	}
	if limit > 0 {
		values["limit"] = []string{fmt.Sprint(limit)}
	}
	return search.FromValues(values), nil
}

type tablePage struct {
	Pagination search.Pagination        `json:"pagination"`
	Data       []map[string]interface{} `json:"data"`
}

func printTable(w io.Writer, columns []string, page interface{}) error {
	b, err := json.Marshal(page)
	if err != nil {
		return err
	}
	var tp tablePage
	if err := json.Unmarshal(b, &tp); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoWrapText(false)
	for _, record := range tp.Data {
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := record[col]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		table.Append(row)
	}
	table.Render()

	p := tp.Pagination
	fmt.Fprintf(w, "page %d of %d, %d records\n", p.Current, p.Pages, p.Records)
	return nil
}
