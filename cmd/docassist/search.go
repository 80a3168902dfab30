package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docassist/internal/domain/search/failure"
	"github.com/kailas-cloud/docassist/internal/domain/search/result"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.Faint)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed)
)

func searchCmd(flags *globalFlags) *cobra.Command {
	var (
		more   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search documents in natural language",
		Long: `Search the document archive in natural language. The backend derives
filters (vendor, document type, dates) from the query text.

Examples:
  docassist search "invoices from Acme last quarter"
  docassist search "bridge inspection" --more 2
  docassist search "contracts expiring 2025" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *flags)
			if err != nil {
				return err
			}
			defer a.Close()

			o := a.newOrchestrator()
			res := o.Search(ctx, strings.Join(args, " "), 0)
			for i := 0; i < more && res.Success; i++ {
				if st := o.State(); !st.HasMore() {
					break
				}
				res = o.LoadMore(ctx)
			}
			if res.Success {
				res = o.State()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeResultJSON(out, res)
			}
			return printResult(out, res)
		},
	}
	cmd.Flags().IntVarP(&more, "more", "m", 0, "load up to N further pages")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func writeResultJSON(w io.Writer, r result.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !r.Success {
		return searchError(r)
	}
	return nil
}

// printResult renders r for a terminal. An unsuccessful result is returned as an error.
func printResult(w io.Writer, r result.Result) error {
	if !r.Success {
		return searchError(r)
	}

	src := ""
	if r.FromCache {
		src = " (cached)"
	}
	_, _ = headerColor.Fprintf(w, "%d of %d results for %q%s\n", len(r.Items), r.Total, r.Query, src)
	if line := describeIntent(r.Intent); line != "" {
		_, _ = dimColor.Fprintln(w, line)
	}
	for i, it := range r.Items {
		fmt.Fprintf(w, "%3d. %s", i+1, it.Subject)
		if meta := itemMeta(it); meta != "" {
			_, _ = dimColor.Fprintf(w, "  [%s]", meta)
		}
		fmt.Fprintln(w)
		for _, att := range it.Attachments {
			_, _ = dimColor.Fprintf(w, "       - %s\n", att.FileName)
		}
	}
	if r.HasMore() {
		_, _ = dimColor.Fprintln(w, "more results available: use --more")
	}
	return nil
}

// searchError turns a failed result into a user-facing error, softened for cancellations and timeouts.
func searchError(r result.Result) error {
	kind := failure.Classify(r)
	var msg string
	switch kind {
	case failure.AIUnavailable:
		msg = "the AI search service is unavailable, try again shortly"
	case failure.RateLimited:
		msg = "rate limit reached, wait a moment before searching again"
	case failure.Timeout:
		msg = "search timed out"
	case failure.Cancelled:
		msg = "search cancelled"
	default:
		msg = r.Message
		if msg == "" {
			msg = "search failed"
		}
	}
	if kind.IsSoft() {
		return fmt.Errorf("%s", warnColor.Sprint(msg))
	}
	return fmt.Errorf("%s", errColor.Sprint(msg))
}

func describeIntent(in result.Intent) string {
	if in.IsEmpty() {
		return ""
	}
	var parts []string
	if len(in.Keywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(in.Keywords, ", "))
	}
	if in.Vendor != "" {
		parts = append(parts, "vendor: "+in.Vendor)
	}
	if in.DocType != "" {
		parts = append(parts, "type: "+in.DocType)
	}
	if in.DateFrom != "" || in.DateTo != "" {
		parts = append(parts, fmt.Sprintf("dates: %s..%s", in.DateFrom, in.DateTo))
	}
	if len(parts) == 0 {
		return ""
	}
	return "understood as " + strings.Join(parts, "; ")
}

func itemMeta(it result.Item) string {
	var parts []string
	for _, s := range []string{it.Vendor, it.DocType, it.Date} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
