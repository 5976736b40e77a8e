package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/osoco/staleguard/codegen"
	"github.com/osoco/staleguard/core/ast"
	"github.com/osoco/staleguard/core/diag"
	"github.com/osoco/staleguard/core/manifest"
	"github.com/osoco/staleguard/core/transform"
	"github.com/osoco/staleguard/core/types"
)

func main() {
	var (
		file         string
		output       string
		pkg          string
		manifestPath string
		watch        bool
	)

	rootCmd := &cobra.Command{
		Use:   "staleguard",
		Short: "Rewrite annotated actions with stale-write recovery",
	}

	rewriteCmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Rewrite annotated actions and emit Go source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return watchAndRewrite(file, output, pkg, manifestPath)
			}
			return rewriteOnce(file, output, pkg, manifestPath)
		},
	}
	rewriteCmd.Flags().StringVarP(&output, "output", "o", "", "Path for the generated Go file (default stdout)")
	rewriteCmd.Flags().StringVar(&pkg, "package", "controllers", "Package name for the generated file")
	rewriteCmd.Flags().StringVar(&manifestPath, "manifest", "", "Optional path for the rewrite manifest")
	rewriteCmd.Flags().BoolVar(&watch, "watch", false, "Rewrite again whenever the input file changes")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the action document and report diagnostics without generating code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkOnly(file)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&file, "file", "f", "actions.json", "Path to the action document")
	rootCmd.AddCommand(rewriteCmd, checkCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rewriteOnce(file, output, pkg, manifestPath string) error {
	data, err := readInput(file)
	if err != nil {
		return err
	}

	actions, diags, err := rewriteDocument(data)
	if err != nil {
		return err
	}
	reportDiagnostics(diags)
	if diags.HasErrors() {
		return fmt.Errorf("rewrite failed with %d diagnostic(s)", diags.Len())
	}

	source, err := codegen.Generate(pkg, actions)
	if err != nil {
		return err
	}

	if manifestPath != "" {
		if err := writeManifest(manifestPath, actions); err != nil {
			return err
		}
	}

	if output == "" {
		fmt.Println(source)
		return nil
	}
	if err := os.WriteFile(output, []byte(source+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	return nil
}

func checkOnly(file string) error {
	data, err := readInput(file)
	if err != nil {
		return err
	}

	_, diags, err := rewriteDocument(data)
	if err != nil {
		return err
	}
	reportDiagnostics(diags)
	if diags.HasErrors() {
		return fmt.Errorf("check failed with %d diagnostic(s)", diags.Len())
	}
	return nil
}

// rewriteDocument decodes the document and rewrites every annotated action.
// Unannotated actions pass through untouched.
func rewriteDocument(data []byte) ([]*ast.ActionDecl, *diag.Collector, error) {
	doc, err := types.DecodeDocument(data)
	if err != nil {
		return nil, nil, err
	}
	actions, err := doc.ToActions()
	if err != nil {
		return nil, nil, err
	}

	diags := diag.NewCollector()
	result := make([]*ast.ActionDecl, 0, len(actions))
	for _, action := range actions {
		if action.Annotation == nil {
			result = append(result, action)
			continue
		}
		rewritten := transform.RewriteAction(action, diags)
		if rewritten == nil {
			rewritten = action
		}
		result = append(result, rewritten)
	}
	return result, diags, nil
}

func writeManifest(path string, actions []*ast.ActionDecl) error {
	m := &manifest.Manifest{}
	for _, action := range actions {
		if action.Annotation == nil {
			continue
		}
		spec := transform.ResolveSpec(action.Annotation)
		m.Actions = append(m.Actions, manifest.NewRecord(action.Name, spec, action.String()))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating manifest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := manifest.Write(f, m); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// watchAndRewrite rewrites once, then again on every change to the input
// file until interrupted. Watch mode needs a real file path, not stdin.
func watchAndRewrite(file, output, pkg, manifestPath string) error {
	if file == "-" {
		return fmt.Errorf("--watch requires a file path, not stdin")
	}

	if err := rewriteOnce(file, output, pkg, manifestPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors often replace the file on save, which
	// drops a watch registered on the file itself.
	dir := filepath.Dir(file)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target, err := filepath.Abs(file)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", file, err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	fmt.Fprintf(os.Stderr, "Watching %s\n", file)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			changed, err := filepath.Abs(event.Name)
			if err != nil || changed != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := rewriteOnce(file, output, pkg, manifestPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
		case <-sig:
			return nil
		}
	}
}

func reportDiagnostics(diags *diag.Collector) {
	for _, d := range diags.All() {
		fmt.Fprintln(os.Stderr, d.Error())
	}
}

// readInput handles the 3 modes of input:
// 1. Explicit stdin with -f -
// 2. Piped input (auto-detected when using the default file)
// 3. File input (specific file or default actions.json)
func readInput(file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(os.Stdin)
	}

	if file == "actions.json" && hasPipedInput() {
		return io.ReadAll(os.Stdin)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return data, nil
}

// hasPipedInput detects if there's data piped to stdin
func hasPipedInput() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
