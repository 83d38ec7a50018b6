// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/deep-research/internal/cache"
	"github.com/pdiddy/deep-research/internal/model"
	"github.com/pdiddy/deep-research/internal/pipeline"
	"github.com/pdiddy/deep-research/pkg/types"
)

const defaultModel = "claude-sonnet-4-5"

var runCmd = &cobra.Command{
	Use:   "run \"research question\"",
	Short: "Run the full research pipeline for one question",
	Long: `Run executes all four stages for a research question and saves the
final report. Intermediate results are cached per stage; a repeated
question within the freshness windows completes without model calls.`,
	Args: cobra.ExactArgs(1),
	RunE: runResearch,
}

func init() {
	runCmd.Flags().String("type", string(types.ReportExecutive), "report type: executive or detailed")
	runCmd.Flags().String("model", "", "AI model identifier (default "+defaultModel+")")
	runCmd.Flags().String("cache-dir", "", "cache root directory (default research_cache)")
	runCmd.Flags().String("reports-dir", "", "reports output directory (default research_reports)")
	runCmd.Flags().Bool("model-assessment", false, "rate finding quality with a model call instead of the local heuristic")
	runCmd.Flags().Bool("save-session", false, "write a session history file next to the reports")

	rootCmd.AddCommand(runCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	question := args[0]
	if question == "" {
		return fmt.Errorf("research question must not be empty")
	}

	typeFlag, _ := cmd.Flags().GetString("type")
	rtype := types.ReportType(typeFlag)
	if !rtype.Valid() {
		return fmt.Errorf("unknown report type %q (want executive or detailed)", typeFlag)
	}

	cfg := buildConfig(cmd)
	if cfg.Model.APIKey == "" {
		return fmt.Errorf("no API key: set model.api_key in config, ANTHROPIC_API_KEY in the environment or .env, or .secrets/%s", "anthropic-api-key")
	}

	orch := &pipeline.Orchestrator{
		Client: model.NewClaudeClient(cfg.Model),
		Cache:  cache.NewStore(cfg.Cache),
		Config: cfg,
		Out:    os.Stdout,
	}

	summary, err := orch.Run(cmd.Context(), question, rtype)
	if err != nil {
		return err
	}

	fmt.Printf("\nReport saved: %s\n", summary.ReportPath)
	fmt.Printf("Duration: %s\n", summary.Duration.Round(time.Millisecond))
	for _, t := range summary.Timings {
		fmt.Printf("  %-10s %s\n", t.Stage, t.Duration.Round(time.Millisecond))
	}

	if save, _ := cmd.Flags().GetBool("save-session"); save {
		session := pipeline.NewSession()
		session.Record(summary)
		path, err := session.Save(cfg.Report.ReportsDir)
		if err != nil {
			return err
		}
		fmt.Printf("Session saved: %s\n", path)
	}
	return nil
}

// buildConfig layers configuration: package defaults, then the viper config
// file and environment, then command flags.
func buildConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.Defaults()
	cfg.Model.Model = defaultModel

	if v := viper.GetString("model.model"); v != "" {
		cfg.Model.Model = v
	}
	if v := viper.GetFloat64("model.temperature"); v != 0 {
		cfg.Model.Temperature = v
	}
	if v := viper.GetInt("model.max_output_tokens"); v != 0 {
		cfg.Model.MaxOutputTokens = v
	}
	if v := viper.GetDuration("model.timeout"); v != 0 {
		cfg.Model.Timeout = v
	}
	if v := viper.GetInt("model.max_retries"); v != 0 {
		cfg.Model.MaxRetries = v
	}
	if v := viper.GetString("cache.root_dir"); v != "" {
		cfg.Cache.RootDir = v
	}
	if v := viper.GetDuration("cache.planning_ttl"); v != 0 {
		cfg.Cache.PlanningTTL = v
	}
	if v := viper.GetDuration("cache.research_ttl"); v != 0 {
		cfg.Cache.ResearchTTL = v
	}
	if v := viper.GetDuration("cache.synthesis_ttl"); v != 0 {
		cfg.Cache.SynthesisTTL = v
	}
	if v := viper.GetDuration("cache.report_ttl"); v != 0 {
		cfg.Cache.ReportTTL = v
	}
	if v := viper.GetInt("planning.min_tasks"); v != 0 {
		cfg.Planning.MinTasks = v
	}
	if v := viper.GetInt("planning.max_tasks"); v != 0 {
		cfg.Planning.MaxTasks = v
	}
	if v := viper.GetString("report.reports_dir"); v != "" {
		cfg.Report.ReportsDir = v
	}

	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model.Model = v
	}
	if v, _ := cmd.Flags().GetString("cache-dir"); v != "" {
		cfg.Cache.RootDir = v
	}
	if v, _ := cmd.Flags().GetString("reports-dir"); v != "" {
		cfg.Report.ReportsDir = v
	}
	if v, _ := cmd.Flags().GetBool("model-assessment"); v {
		cfg.Research.ModelAssessment = true
	}

	cfg.Model.APIKey = apiKey()
	return cfg
}
