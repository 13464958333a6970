// Command aura scans Python package artifacts for suspicious archive
// entries and weak cryptography usage.
package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/RootLUG/aura"
	"github.com/RootLUG/aura/analyzers"
	"github.com/RootLUG/aura/finding"
	"github.com/RootLUG/aura/internal/logger"
	"github.com/RootLUG/aura/internal/pypi"
	"github.com/RootLUG/aura/report"
)

// Build metadata, set through ldflags.
var (
	version   = "dev"
	gitTag    = ""
	buildDate = ""
)

type options struct {
	configPath    string
	semanticRules string
	format        string
	output        string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "aura",
		Short:         "Security scanner for third-party Python packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file")
	root.PersistentFlags().StringVar(&opts.semanticRules, "semantic-rules", "", "path to the semantic rule catalogue")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", report.FormatText, "report format (text, json, sarif)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "write the report to a file instead of stdout")

	root.AddCommand(
		newScanCommand(opts),
		newDiffCommand(opts),
		newFetchCommand(opts),
		newVersionCommand(),
	)
	return root
}

func (o *options) loadConfig() (*aura.Config, error) {
	if o.configPath == "" {
		return aura.NewConfig(), nil
	}
	return aura.LoadConfig(o.configPath)
}

func (o *options) loadSemanticRules(cfg *aura.Config) (*aura.SemanticRules, error) {
	path := o.semanticRules
	if path == "" {
		path = cfg.SemanticRulesPath()
	}
	if path == "" {
		return nil, nil
	}
	return aura.LoadSemanticRules(path)
}

func (o *options) reportWriter() (io.WriteCloser, error) {
	if o.output == "" {
		return os.Stdout, nil
	}
	return os.Create(o.output)
}

func (o *options) writeReport(r *report.Report) error {
	w, err := o.reportWriter()
	if err != nil {
		return err
	}
	if w != os.Stdout {
		defer w.Close()
	}
	return report.Write(w, o.format, r)
}

func newScanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <path>",
		Short: "Scan a package artifact or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := logger.NewLogger("aura", cfg.LogLevel())

			seed, err := aura.NewScanLocation(args[0])
			if err != nil {
				return err
			}

			pipeline := aura.NewAnalyzer(cfg, log)
			pipeline.RegisterAnalyzer(
				analyzers.NewFilesystemAnalyzer(log),
				analyzers.NewArchiveAnalyzer(cfg, log),
			)

			var findings []*finding.Finding
			for f := range pipeline.Analyze(seed) {
				findings = append(findings, f)
			}

			return opts.writeReport(&report.Report{Name: args[0], Findings: findings})
		},
	}
}

func newDiffCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <a> <b>",
		Short: "Compare two versions of the same archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := logger.NewLogger("aura", cfg.LogLevel())

			aDigest, err := fileMD5(args[0])
			if err != nil {
				return err
			}
			bDigest, err := fileMD5(args[1])
			if err != nil {
				return err
			}

			aScan, err := aura.NewScanLocation(args[0])
			if err != nil {
				return err
			}
			bScan, err := aura.NewScanLocation(args[1])
			if err != nil {
				return err
			}

			archive := analyzers.NewArchiveAnalyzer(cfg, log)
			var findings []*finding.Finding
			var derived []*aura.ScanLocation
			for res := range archive.DiffArchive(analyzers.Diff{
				Operation: analyzers.DiffModified,
				APath:     args[0],
				BPath:     args[1],
				AMD5:      aDigest,
				BMD5:      bDigest,
				AScan:     aScan,
				BScan:     bScan,
			}) {
				if res.Location != nil {
					derived = append(derived, res.Location)
					continue
				}
				findings = append(findings, res.Finding)
			}
			defer func() {
				for _, loc := range derived {
					if paired, ok := loc.Metadata[aura.MetadataPairedLocation].(*aura.ScanLocation); ok {
						_ = paired.DoCleanup(log)
					}
					_ = loc.DoCleanup(log)
				}
			}()

			name := fmt.Sprintf("%s vs %s", args[0], args[1])
			return opts.writeReport(&report.Report{Name: name, Findings: findings})
		},
	}
}

func newFetchCommand(opts *options) *cobra.Command {
	var (
		outDir  string
		release string
		scan    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <package>",
		Short: "Download release artifacts of a PyPI package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := logger.NewLogger("aura", cfg.LogLevel())
			client := pypi.NewClient("", log)
			ctx := context.Background()

			files, err := client.ReleaseFiles(ctx, args[0], release)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("package %s has no downloadable artifacts", args[0])
			}

			if outDir == "" {
				outDir, err = os.MkdirTemp("", "aura_fetch_"+args[0])
				if err != nil {
					return err
				}
			}

			paths, err := client.DownloadAll(ctx, files, outDir)
			if err != nil {
				return err
			}
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}

			if !scan {
				return nil
			}

			pipeline := aura.NewAnalyzer(cfg, log)
			pipeline.RegisterAnalyzer(
				analyzers.NewFilesystemAnalyzer(log),
				analyzers.NewArchiveAnalyzer(cfg, log),
			)
			var findings []*finding.Finding
			for _, path := range paths {
				seed, err := aura.NewScanLocation(path)
				if err != nil {
					return err
				}
				for f := range pipeline.Analyze(seed) {
					findings = append(findings, f)
				}
			}
			return opts.writeReport(&report.Report{Name: args[0], Findings: findings})
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "directory for downloaded artifacts (default: a temp directory)")
	cmd.Flags().StringVar(&release, "release", "", "release version (default: latest)")
	cmd.Flags().BoolVar(&scan, "scan", false, "scan the downloaded artifacts after fetching")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n", version)
			if gitTag != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "git tag: %s\n", gitTag)
			}
			if buildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "build date: %s\n", buildDate)
			}
		},
	}
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
