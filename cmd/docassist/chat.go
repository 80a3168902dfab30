package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docassist/internal/domain"
	domchat "github.com/kailas-cloud/docassist/internal/domain/chat"
	"github.com/kailas-cloud/docassist/internal/domain/stream/event"
	"github.com/kailas-cloud/docassist/internal/transport/sse"
	"github.com/kailas-cloud/docassist/internal/transport/stream"
)

var (
	stepColor   = color.New(color.FgMagenta)
	sourceColor = color.New(color.FgBlue)
)

func chatCmd(flags *globalFlags) *cobra.Command {
	var (
		mode    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask a question about the archive and stream the answer",
		Long: `Ask a question answered from the archive. rag retrieves documents and
answers in one pass; agent lets the model call search tools step by step.

Examples:
  docassist chat "when is the Acme contract up for renewal?"
  docassist chat "summarise last month's invoices" --mode agent -v`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := domchat.ParseMode(mode)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *flags)
			if err != nil {
				return err
			}
			defer a.Close()

			p := &answerPrinter{w: cmd.OutOrStdout(), verbose: verbose}
			h, err := a.newChat().Ask(ctx, m, strings.Join(args, " "), p.callbacks())
			if err != nil {
				return err
			}
			h.Wait()
			return p.finish(h)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(domchat.RAG), "answering mode: rag or agent")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show reasoning steps and tool calls")
	return cmd
}

// answerPrinter renders a streamed answer as it arrives.
type answerPrinter struct {
	w       io.Writer
	verbose bool

	sources []event.SourceRef
	failed  *event.Failed
	done    *event.Completed
	tokens  int
}

func (p *answerPrinter) callbacks() sse.Callbacks {
	return sse.Callbacks{
		OnThinking: func(e event.Thinking) {
			if p.verbose {
				_, _ = stepColor.Fprintf(p.w, "[%d] %s\n", e.StepIndex, e.Text)
			}
		},
		OnToolCall: func(e event.ToolCall) {
			if p.verbose {
				_, _ = stepColor.Fprintf(p.w, "[%d] -> %s\n", e.StepIndex, e.ToolName)
			}
		},
		OnToolResult: func(e event.ToolResult) {
			if p.verbose {
				_, _ = stepColor.Fprintf(p.w, "[%d] <- %s: %d results\n", e.StepIndex, e.ToolName, e.ResultCount)
			}
		},
		OnSources: func(e event.SourcesReady) { p.sources = e.Sources },
		OnToken: func(e event.TokenChunk) {
			p.tokens++
			fmt.Fprint(p.w, e.Text)
		},
		OnDone:  func(e event.Completed) { p.done = &e },
		OnError: func(e event.Failed) { p.failed = &e },
	}
}

// finish prints the trailer for the settled session h.
func (p *answerPrinter) finish(h *stream.Handle) error {
	if p.tokens > 0 {
		fmt.Fprintln(p.w)
	}
	switch h.State() {
	case stream.StateFailed:
		msg := "stream failed"
		if p.failed != nil && p.failed.Message != "" {
			msg = p.failed.Message
		}
		return errors.New(errColor.Sprint(msg))
	case stream.StateCancelled:
		if errors.Is(h.Err(), domain.ErrTimedOut) {
			return errors.New(warnColor.Sprint("answer timed out"))
		}
		return errors.New(warnColor.Sprint("cancelled"))
	}

	if len(p.sources) > 0 {
		_, _ = sourceColor.Fprintln(p.w, "\nSources:")
		for _, s := range p.sources {
			_, _ = sourceColor.Fprintf(p.w, "  #%d %s\n", s.DocumentID, s.Subject)
		}
	}
	if p.verbose && p.done != nil {
		_, _ = dimColor.Fprintf(p.w, "%s, %d ms\n", p.done.ModelName, p.done.LatencyMs)
	}
	return nil
}
