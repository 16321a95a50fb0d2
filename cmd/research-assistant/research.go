// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/research-assistant/internal/config"
	"github.com/pdiddy/research-assistant/internal/summary"
	"github.com/pdiddy/research-assistant/internal/workflow"
	"github.com/pdiddy/research-assistant/pkg/types"
)

var researchCmd = &cobra.Command{
	Use:   "research [topic]",
	Short: "Research a topic and print the executive summary",
	Long: `Research runs one topic through the full workflow: validation, similar
past findings, up to three search-and-extract passes, and a summary. Progress
goes to stderr; the report goes to stdout and, unless --export is empty, to a
file under the output directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().Bool("json", false, "print the final research state as JSON")
	researchCmd.Flags().String("export", "", "report format: md, json, txt, yaml, or all (default from export.auto_format)")
	researchCmd.Flags().String("thread", "", "thread ID to run under (default: new thread)")
	researchCmd.Flags().Bool("show-graph", false, "print the workflow graph before running")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	topic := strings.Join(args, " ")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	threadID, _ := cmd.Flags().GetString("thread")

	cfg := pipelineCfg
	if cmd.Flags().Changed("export") {
		format, _ := cmd.Flags().GetString("export")
		cfg.Export.AutoFormat = types.ExportFormat(format)
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

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
	if show, _ := cmd.Flags().GetBool("show-graph"); show {
		printGraph(os.Stderr, p.Graph().Describe())
	}

	final, runErr := p.Run(ctx, topic, threadID)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(final); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		return runErr
	}
	if final.Error != "" {
		return fmt.Errorf("query rejected: %s", final.Error)
	}
	summary.Format(os.Stdout, final.Summary())
	return nil
}
