package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/haierkeys/edu-program-service/internal/domain"
	"github.com/haierkeys/edu-program-service/internal/service"
	"github.com/haierkeys/edu-program-service/pkg/timex"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type historyFlags struct {
	page     int
	pageSize int
	compare  int64
	json     bool
}

func init() {
	env := new(historyFlags)

	var historyCommand = &cobra.Command{
		Use:   "history <institution|course> <id> [--compare revision_id]",
		Short: "Print the revision history of a record. // 打印记录的修订历史。",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}

			app, _, err := openApp(rootEnv.config)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Shutdown(context.Background()); err != nil {
					bootstrapLogger.Warn("shutdown error", zap.Error(err))
				}
			}()

			out := cmd.OutOrStdout()
			if env.compare > 0 {
				cmp, err := app.RevisionService.Compare(cmd.Context(), env.compare)
				if err != nil {
					return err
				}
				if env.json {
					return printJSON(out, cmp)
				}
				printComparison(out, cmp)
				return nil
			}

			page, err := app.RevisionService.List(cmd.Context(), domain.EntityKind(args[0]), objectID, env.page, env.pageSize)
			if err != nil {
				return err
			}
			if env.json {
				return printJSON(out, page)
			}
			printRevisions(out, page)
			return nil
		},
	}

	rootCmd.AddCommand(historyCommand)
	fs := historyCommand.Flags()
	fs.IntVar(&env.page, "page", 1, "page number")
	fs.IntVar(&env.pageSize, "size", 0, "page size, 0 uses app.history-page-size")
	fs.Int64Var(&env.compare, "compare", 0, "show the field changes of this revision")
	fs.BoolVar(&env.json, "json", false, "print JSON")
}

func printJSON(out io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printRevisions(out io.Writer, page *service.RevisionPage) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tACTOR\tFLAGS\tCOMMENT")
	for _, r := range page.Items {
		flags := ""
		if r.Minor {
			flags += "m"
		}
		if r.Deleted {
			flags += "d"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", r.ID, timex.FormatStamp(r.CreatedAt), r.ActorName, flags, r.Comment)
	}
	w.Flush()
	fmt.Fprintf(out, "page %d, %d of %d revision(s)\n", page.Page, len(page.Items), page.Total)
}

func printComparison(out io.Writer, cmp *service.RevisionComparison) {
	if cmp.Preceding != nil {
		fmt.Fprintf(out, "revision %d against %d\n", cmp.Revision.ID, cmp.Preceding.ID)
	} else {
		fmt.Fprintf(out, "revision %d (first)\n", cmp.Revision.ID)
	}
	for _, c := range cmp.Changes {
		switch {
		case c.Removed:
			fmt.Fprintf(out, "- %s\n", c.Field)
		case c.Patch != "":
			fmt.Fprintf(out, "~ %s\n%s\n", c.Field, c.Patch)
		default:
			fmt.Fprintf(out, "~ %s: %v -> %v\n", c.Field, c.From, c.To)
		}
	}
	if len(cmp.Changes) == 0 {
		fmt.Fprintln(out, "no changes")
	}
}
