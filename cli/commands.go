package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meghashyamc/recordstore/db"
	"github.com/meghashyamc/recordstore/services/query"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <index> <key>",
		Short: "Look up the record groups stored under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, ok := a.store.Get(args[0], args[1])
			if !ok {
				return &db.NotFoundError{Target: fmt.Sprintf("%s/%s", args[0], args[1])}
			}
			return write(cmd.OutOrStdout(), a.options.output, groups)
		},
	}
}

type listOptions struct {
	sort    string
	limit   int
	offset  int
	hydrate bool
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list <target>",
		Short: "List the keys of an index, a record or a system facility",
		Long: `List the keys of a target. The target is resolved in order as a
system facility ("indexes" or "metadata"), an index name, or a record key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, err := sortDirection(opts.sort)
			if err != nil {
				return err
			}
			listing, err := a.store.ListKeys(args[0], query.Options{
				Sort:    direction,
				Limit:   opts.limit,
				Offset:  opts.offset,
				Hydrate: opts.hydrate,
			})
			if err != nil {
				return err
			}
			if opts.hydrate {
				return write(cmd.OutOrStdout(), a.options.output, listing.Records)
			}
			return write(cmd.OutOrStdout(), a.options.output, listing.Keys)
		},
	}

	cmd.Flags().StringVar(&opts.sort, "sort", "", "Sort direction: asc, desc")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of keys (0 for all)")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of keys to skip")
	cmd.Flags().BoolVar(&opts.hydrate, "hydrate", false, "Print the records behind each key")

	return cmd
}

func sortDirection(sort string) (int, error) {
	switch sort {
	case "":
		return 0, nil
	case "asc":
		return 1, nil
	case "desc":
		return -1, nil
	default:
		return 0, &db.InvalidArgumentError{Argument: "sort", Reason: fmt.Sprintf("unknown direction %q", sort)}
	}
}

type searchRequest struct {
	Index string `json:"index" validate:"required"`
	Query string `json:"query" validate:"valid_query"`
	Limit int    `json:"limit" validate:"min=0"`
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int
	var ranked bool

	cmd := &cobra.Command{
		Use:   "search <index> <query>",
		Short: "Fuzzy search a trigram index",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := searchRequest{
				Index: args[0],
				Query: strings.Join(args[1:], " "),
				Limit: limit,
			}
			if err := a.validator.Validate(&request); err != nil {
				return &db.InvalidArgumentError{Argument: "search", Reason: err.Error()}
			}

			if ranked {
				candidates, err := a.store.SearchRanked(request.Index, request.Query, request.Limit)
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), a.options.output, candidates)
			}

			records, err := a.store.Search(request.Index, request.Query, request.Limit)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), a.options.output, records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results (0 for all)")
	cmd.Flags().BoolVar(&ranked, "ranked", false, "Include match counts")

	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "put <key> [json]",
		Short: "Write a record",
		Long: `Write a record under key. The record is read from the second argument,
or from stdin when it is omitted or "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRecordInput(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			var record db.Record
			if err := json.Unmarshal(raw, &record); err != nil {
				return &db.InvalidArgumentError{Argument: "record", Reason: fmt.Sprintf("record is not a JSON object: %s", err)}
			}
			if record == nil {
				return &db.InvalidArgumentError{Argument: "record", Reason: "record cannot be null"}
			}

			if !cmd.Flags().Changed("reindex") {
				reindex = a.store.ReindexOnWrite()
			}
			if err := a.store.Save(args[0], record, reindex); err != nil {
				return err
			}
			stored, _ := a.store.Record(args[0])
			return write(cmd.OutOrStdout(), a.options.output, stored)
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild indexes after writing (defaults to store.reindex_on_write)")

	return cmd
}

func readRecordInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 1 && args[0] != "-" {
		return []byte(args[0]), nil
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read record from stdin: %w", err)
	}
	return raw, nil
}

func newDeleteCmd(a *app) *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("reindex") {
				reindex = a.store.ReindexOnWrite()
			}
			if err := a.store.Delete(args[0], reindex); err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), a.options.output, map[string]string{"deleted": args[0]})
		},
	}

	cmd.Flags().BoolVar(&reindex, "reindex", false, "Rebuild indexes after deleting (defaults to store.reindex_on_write)")

	return cmd
}

func newRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild every configured index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.store.Reindex()
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), a.options.output, report)
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "report [id]",
		Short: "Show a persisted build report, the latest by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				ids, err := a.store.ReportIDs()
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), a.options.output, ids)
			}

			if len(args) == 1 {
				report, err := a.store.Report(args[0])
				if err != nil {
					return err
				}
				return write(cmd.OutOrStdout(), a.options.output, report)
			}

			report, err := a.store.LastReport()
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), a.options.output, report)
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "List the IDs of every persisted report")

	return cmd
}
