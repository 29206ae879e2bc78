// Package main provides the archtrace CLI and its hook entry points.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archtrace/internal/bootstrap"
	"archtrace/internal/config"
	"archtrace/internal/enforce"
	"archtrace/internal/generate"
	"archtrace/internal/history"
	"archtrace/internal/syncer"
)

// Version is the current archtrace CLI version.
var Version = "0.3.1"

// blockExit is the exit code the hook harness interprets as "block".
const blockExit = 2

var rootCmd = &cobra.Command{
	Use:     "archtrace",
	Short:   "archtrace - synchronized architecture traces for a codebase",
	Long:    `Archtrace maintains a module dependency graph and per-module file inventories as paired JSON and editable markdown, and gates edits and commits on trace freshness.`,
	Version: Version,
}

var (
	rootDir       string
	generateMod   string
	lowLevelOnly  bool
	jsonOutput    bool
	syncDryRun    bool
	syncForce     bool
	readSessionID string
	historyLimit  int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate traces from the tracked source tree",
	RunE:  runGenerate,
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Infer an initial module configuration from directory conventions",
	RunE:  runBootstrap,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply hand-edits from trace documents back to canonical data",
	RunE:  runSync,
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Enforcement entry points invoked by the tool harness",
}

var hookPreEditCmd = &cobra.Command{
	Use:   "pre-edit",
	Short: "Gate a file edit on a recent trace read (envelope on stdin)",
	Run:   runHookPreEdit,
}

var hookPreCommitCmd = &cobra.Command{
	Use:   "pre-commit",
	Short: "Gate a git commit on trace freshness (envelope on stdin)",
	Run:   runHookPreCommit,
}

var recordReadCmd = &cobra.Command{
	Use:   "record-read <module-id>",
	Short: "Record that a module's trace was read in this session",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecordRead,
}

var historyCmd = &cobra.Command{
	Use:   "history <trace-id>",
	Short: "Show the regeneration log for a trace (e.g. high-level, low-level/web)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	generateCmd.Flags().StringVar(&generateMod, "module", "", "Regenerate a single module's low-level trace")
	generateCmd.Flags().BoolVar(&lowLevelOnly, "low-level-only", false, "Skip the high-level trace")
	generateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	bootstrapCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Compute everything, write nothing")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Apply document edits even over conflicts")
	syncCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	recordReadCmd.Flags().StringVar(&readSessionID, "session", "", "Session id the read belongs to (required)")
	recordReadCmd.MarkFlagRequired("session")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of entries to show")

	hookCmd.AddCommand(hookPreEditCmd, hookPreCommitCmd)
	rootCmd.AddCommand(generateCmd, bootstrapCmd, syncCmd, hookCmd, recordReadCmd, historyCmd)
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	env, err := generate.NewEnv(rootDir)
	if err != nil {
		return err
	}

	var res *generate.Result
	if generateMod != "" {
		res, err = generate.GenerateOne(env, generateMod)
	} else {
		res, err = generate.GenerateAll(env, lowLevelOnly, nil)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(res)
	}

	fmt.Printf("Generated %d files for %d modules in %dms\n",
		res.FilesGenerated, res.ModulesProcessed, res.DurationMs)
	for _, m := range res.LowLevel {
		fmt.Printf("  %s: v%d (%d files)\n", m.ModuleID, m.Version, m.Files)
	}
	if res.HighLevelVersion != nil {
		fmt.Printf("  high-level: v%d\n", *res.HighLevelVersion)
	}
	return nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	start := time.Now()
	res, err := bootstrap.Bootstrap(rootDir)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(&generate.Result{
			ModulesProcessed: len(res.Modules),
			FilesGenerated:   1,
			DurationMs:       time.Since(start).Milliseconds(),
			LowLevel:         []generate.ModuleResult{},
		})
	}

	fmt.Printf("Wrote %s with %d inferred modules:\n", res.ConfigPath, len(res.Modules))
	for _, m := range res.Modules {
		fmt.Printf("  %s: %s\n", m.ID, m.FileGlobs[0])
	}
	if res.ReviewNeeded {
		fmt.Println("Review the inferred module boundaries before generating traces.")
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	report, err := syncer.Sync(rootDir, syncer.Options{DryRun: syncDryRun, Force: syncForce})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(report)
	}

	for _, c := range report.Changes {
		fmt.Printf("changed  %s: %s\n", c.TraceID, c.Message)
	}
	for _, c := range report.Conflicts {
		fmt.Printf("conflict %s %s.%s: canonical %s, document %s\n",
			c.TraceID, c.EntityID, c.Field, c.Canonical, c.Document)
	}
	for _, s := range report.Skipped {
		fmt.Printf("skipped  %s\n", s)
	}
	for _, e := range report.Errors {
		fmt.Printf("error    %s\n", e)
	}
	fmt.Println(report.Summary)
	return nil
}

// Hook commands never fail: any problem on our side resolves to allow,
// since enforcement must not break unrelated tool calls.
func runHookPreEdit(cmd *cobra.Command, args []string) {
	env, err := enforce.ParseEnvelope(os.Stdin)
	if err != nil {
		return
	}
	decide(enforce.CheckEdit(rootDir, env, time.Now()))
}

func runHookPreCommit(cmd *cobra.Command, args []string) {
	env, err := enforce.ParseEnvelope(os.Stdin)
	if err != nil {
		return
	}
	decide(enforce.CheckCommit(rootDir, env))
}

func decide(d enforce.Decision) {
	if d.Message != "" {
		fmt.Fprintln(os.Stderr, d.Message)
	}
	if d.Block {
		os.Exit(blockExit)
	}
}

func runRecordRead(cmd *cobra.Command, args []string) error {
	moduleID := args[0]

	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	if cfg.Module(moduleID) == nil {
		return fmt.Errorf("unknown module %q", moduleID)
	}

	if err := enforce.RecordRead(rootDir, readSessionID, moduleID, time.Now()); err != nil {
		return err
	}
	fmt.Printf("Recorded read of %s for session %s\n", moduleID, readSessionID)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(config.HistoryDBPath(rootDir))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No recorded generations for %s\n", args[0])
		return nil
	}

	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}
	for _, e := range entries {
		fmt.Printf("v%-4d %s  run %s  %dms\n", e.Version, e.GeneratedAt, shortID(e.RunID), e.DurationMs)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// shortID safely truncates an id to 8 characters for display.
func shortID(s string) string {
	if len(s) >= 8 {
		return s[:8]
	}
	return s
}
