// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/export"
	"github.com/pdiddy/research-assistant/internal/session"
	"github.com/pdiddy/research-assistant/internal/store"
	"github.com/pdiddy/research-assistant/internal/summary"
	"github.com/pdiddy/research-assistant/internal/workflow"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// dbHistoryLimit caps the rows printed by "db history".
const dbHistoryLimit = 20

var (
	promptColor  = color.New(color.FgCyan, color.Bold)
	noticeColor  = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headingColor = color.New(color.Bold)
)

const helpText = `
Research commands:
  <topic>            research a topic or ask a follow-up question
  more               get more details on the last research
  insights           show key insights from the last research
  sources            list sources from the last research
  export             save the last research as a Markdown report

Thread commands:
  threads            list all conversation threads
  new [name]         create a thread and switch to it
  switch <number>    switch to another thread
  rename <name>      rename the current thread
  history            show the current thread's queries

History database:
  db                 show database statistics
  db history         list stored research runs
  db search <word>   search stored queries and summaries
  db export csv|txt  export the stored history

Other:
  graph              show the workflow graph
  help               show this help
  quit, exit, q      leave the session
`

// researcher runs one research topic on a thread.
type researcher interface {
	Run(ctx context.Context, query, threadID string) (*types.ResearchState, error)
}

// repl is the interactive session: it dispatches commands and runs
// research on the current thread.
type repl struct {
	run      researcher
	graph    string
	history  *store.Store
	dbPath   string
	exporter *export.Exporter
	threads  *session.Manager
	out      io.Writer
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg := pipelineCfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	p, err := workflow.Build(ctx, cfg, st, logger, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("closing pipeline", zap.Error(err))
		}
	}()

	threads := session.NewManager()
	p.SessionID = threads.SessionID
	if st != nil {
		if err := st.StartSession(ctx, threads.SessionID); err != nil {
			logger.Warn("recording session start failed", zap.Error(err))
		}
		defer func() {
			if err := st.EndSession(context.Background(), threads.SessionID); err != nil {
				logger.Warn("recording session end failed", zap.Error(err))
			}
		}()
	}

	r := &repl{
		run:      p,
		graph:    p.Graph().Describe(),
		history:  st,
		dbPath:   cfg.Store.Path,
		exporter: export.New(cfg.Export.OutputDir),
		threads:  threads,
		out:      os.Stdout,
	}
	fmt.Fprint(r.out, helpText)
	return r.loop(ctx, os.Stdin)
}

// loop reads commands from in until quit, end of input, or ctx is done.
func (r *repl) loop(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	t := r.threads.Current()
	fmt.Fprintf(r.out, "\nCurrent thread: %s (ID: %s...)\n", t.Name, shortID(t.ID))
	for {
		promptColor.Fprintf(r.out, "\n[%s] topic or command: ", r.threads.Current().Name)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			line = l
		}

		if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		}
	}
}

// handle executes one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, input string) bool {
	if input == "" {
		return false
	}
	lower := strings.ToLower(input)
	thread := r.threads.Current()

	switch {
	case lower == "quit" || lower == "exit" || lower == "q":
		return true
	case lower == "help":
		fmt.Fprint(r.out, helpText)
	case lower == "graph":
		printGraph(r.out, r.graph)
	case lower == "db" || strings.HasPrefix(lower, "db "):
		r.db(ctx, input)
	case lower == "threads":
		r.listThreads()
	case lower == "new" || strings.HasPrefix(lower, "new "):
		t := r.threads.Create(strings.TrimSpace(input[len("new"):]))
		noticeColor.Fprintf(r.out, "\nCreated and switched to new thread: %s\n", t.Name)
	case strings.HasPrefix(lower, "switch "):
		r.switchThread(strings.TrimSpace(input[len("switch "):]))
	case strings.HasPrefix(lower, "rename "):
		if err := r.threads.Rename(input[len("rename "):]); err != nil {
			errorColor.Fprintf(r.out, "%v\n", err)
			break
		}
		noticeColor.Fprintf(r.out, "Thread renamed to: %s\n", r.threads.Current().Name)
	case lower == "history":
		r.threadHistory(thread)
	case lower == "insights":
		if thread.Last == nil {
			errorColor.Fprintln(r.out, "No research in this thread yet.")
			break
		}
		headingColor.Fprintln(r.out, "\nKey insights from last research:")
		for i, in := range thread.Last.KeyInsights {
			fmt.Fprintf(r.out, "  %d. %s\n", i+1, in)
		}
	case lower == "sources":
		if thread.Last == nil {
			errorColor.Fprintln(r.out, "No research in this thread yet.")
			break
		}
		headingColor.Fprintln(r.out, "\nSources from last research:")
		for _, f := range thread.Last.Findings {
			fmt.Fprintf(r.out, "  • %s\n    %s\n", orElse(f.Title, "Unknown"), orElse(f.Source, "N/A"))
		}
	case lower == "export":
		r.exportLast(thread)
	case lower == "more":
		q, ok := thread.MoreQuery()
		if !ok {
			errorColor.Fprintln(r.out, "No previous research to expand on.")
			break
		}
		fmt.Fprintf(r.out, "  Expanding on: %s\n", thread.Last.Query)
		r.research(ctx, q)
	default:
		r.research(ctx, input)
	}
	return false
}

func (r *repl) research(ctx context.Context, input string) {
	thread := r.threads.Current()
	query, enriched := thread.Enrich(input)
	if enriched {
		fmt.Fprintln(r.out, "  Detected follow-up question, using context from last research")
	}

	st, err := r.run.Run(ctx, query, thread.ID)
	if err != nil {
		errorColor.Fprintf(r.out, "\nError: %v\n", err)
		fmt.Fprintln(r.out, "Please try again with a different query.")
		return
	}

	st.Query = input
	r.threads.Record(input, st)

	if st.Error != "" {
		errorColor.Fprintf(r.out, "\n%s\n", st.ExecutiveSummary)
		return
	}
	fmt.Fprintln(r.out)
	summary.Format(r.out, st.Summary())
	warnColor.Fprintln(r.out, "\nTip: ask follow-ups, or type 'threads' to manage conversations")
}

func (r *repl) listThreads() {
	headingColor.Fprintln(r.out, "\nAll threads:")
	for i, t := range r.threads.Threads() {
		marker := ""
		if i == r.threads.CurrentIndex() {
			marker = " (current)"
		}
		fmt.Fprintf(r.out, "  %d. %s - %d queries%s\n", i+1, t.Name, len(t.History), marker)
	}
}

func (r *repl) switchThread(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		errorColor.Fprintln(r.out, "Usage: switch <number>")
		return
	}
	t, err := r.threads.Switch(n)
	if err != nil {
		errorColor.Fprintf(r.out, "%v\n", err)
		return
	}
	noticeColor.Fprintf(r.out, "\nSwitched to: %s\n", t.Name)
	if len(t.History) > 0 {
		fmt.Fprintf(r.out, "  Last query: %s\n", t.History[len(t.History)-1])
	}
}

func (r *repl) threadHistory(t *session.Thread) {
	if len(t.History) == 0 {
		fmt.Fprintln(r.out, "\nNo research history in this thread yet.")
		return
	}
	headingColor.Fprintf(r.out, "\nHistory for '%s':\n", t.Name)
	for i, q := range t.History {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, q)
	}
}

func (r *repl) exportLast(t *session.Thread) {
	if t.Last == nil {
		errorColor.Fprintln(r.out, "No research to export in this thread.")
		return
	}
	path, err := r.exporter.Markdown(export.ReportFromState(t.Last))
	if err != nil {
		errorColor.Fprintf(r.out, "Export failed: %v\n", err)
		return
	}
	noticeColor.Fprintf(r.out, "\nExported to: %s\n", path)
}

func (r *repl) db(ctx context.Context, input string) {
	if r.history == nil {
		errorColor.Fprintln(r.out, "History is disabled for this session.")
		return
	}
	lower := strings.ToLower(input)

	switch {
	case lower == "db":
		stats, err := r.history.Statistics(ctx)
		if err != nil {
			errorColor.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		headingColor.Fprintln(r.out, "\nDatabase statistics:")
		fmt.Fprintf(r.out, "  Total queries:   %d\n", stats.TotalQueries)
		fmt.Fprintf(r.out, "  Total findings:  %d\n", stats.TotalFindings)
		fmt.Fprintf(r.out, "  Total summaries: %d\n", stats.TotalSummaries)
		fmt.Fprintf(r.out, "  Database path:   %s\n", r.dbPath)

	case lower == "db history":
		records, err := r.history.History(ctx)
		if err != nil {
			errorColor.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		if len(records) == 0 {
			fmt.Fprintln(r.out, "\nNo research history in database yet.")
			return
		}
		headingColor.Fprintf(r.out, "\nResearch history (%d records):\n", len(records))
		fmt.Fprintln(r.out, strings.Repeat("-", 60))
		for i, rec := range records {
			if i == dbHistoryLimit {
				fmt.Fprintf(r.out, "  ... and %d more records\n", len(records)-dbHistoryLimit)
				break
			}
			fmt.Fprintf(r.out, "  [%d] %s\n", rec.ID, rec.Timestamp.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(r.out, "      Query: %s\n", preview(rec.Query, 50))
			fmt.Fprintf(r.out, "      Status: %s | Findings: %d\n", rec.Status, rec.FindingCount)
		}

	case strings.HasPrefix(lower, "db export "):
		path, n, err := exportHistory(ctx, r.history, strings.TrimSpace(lower[len("db export "):]), "")
		if err != nil {
			errorColor.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		noticeColor.Fprintf(r.out, "Exported %d records to: %s\n", n, path)

	case strings.HasPrefix(lower, "db search "):
		keyword := strings.TrimSpace(input[len("db search "):])
		records, err := r.history.SearchPast(ctx, keyword)
		if err != nil {
			errorColor.Fprintf(r.out, "Error: %v\n", err)
			return
		}
		if len(records) == 0 {
			fmt.Fprintf(r.out, "\nNo results found for '%s'\n", keyword)
			return
		}
		headingColor.Fprintf(r.out, "\nSearch results for '%s' (%d found):\n", keyword, len(records))
		for _, rec := range records {
			fmt.Fprintf(r.out, "  [%d] %s\n", rec.ID, preview(rec.Query, 50))
		}

	default:
		errorColor.Fprintln(r.out, "Unknown db command. Try: db, db history, db export csv, db export txt, db search <keyword>")
	}
}

// printGraph writes a graph description under a heading.
func printGraph(w io.Writer, desc string) {
	headingColor.Fprintln(w, "\nWorkflow graph:")
	for _, line := range strings.Split(strings.TrimRight(desc, "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
