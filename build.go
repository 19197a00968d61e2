package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iedon/htmlfrag/fsutil"
	"github.com/iedon/htmlfrag/service"
)

type buildOptions struct {
	cfgPath  string
	outDir   string
	asJSON   bool
	markdown bool
}

func buildCmd() *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [templates...]",
		Short: "Build fragments from templates",
		Long: `Build every template given as an argument, or one per line of standard
input when no arguments are given, and print the serialized fragments.

Examples:
  htmlfrag build '<ul><li>a</li></ul>' '<p>b</p>'
  htmlfrag build --out dist < templates.txt
  htmlfrag build --markdown '# Title'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.cfgPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)
			svc, err := newService(cfg, logger)
			if err != nil {
				return err
			}

			templates := args
			if len(templates) == 0 {
				if templates, err = readTemplates(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if err := runBuild(svc, templates, opts, cmd.OutOrStdout()); err != nil {
				return err
			}
			st := svc.Stats()
			logger.Info("build completed", "templates", len(templates), "entries", st.Entries, "hits", st.Hits, "misses", st.Misses, "bypasses", st.Bypasses)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.cfgPath, "config", "c", "", "path to configuration file")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "write each fragment to a numbered file in this directory")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print one JSON object per fragment")
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "treat inputs as markdown")

	return cmd
}

// readTemplates returns the non-blank lines of r.
func readTemplates(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return out, nil
}

func runBuild(svc *service.Service, templates []string, opts buildOptions, w io.Writer) error {
	enc := json.NewEncoder(w)
	for i, tpl := range templates {
		var (
			out *service.Output
			err error
		)
		if opts.markdown {
			out, err = svc.BuildMarkdown([]byte(tpl))
		} else {
			out, err = svc.Build(tpl)
		}
		if err != nil {
			return fmt.Errorf("template %d: %w", i+1, err)
		}

		if opts.outDir != "" {
			target := filepath.Join(opts.outDir, fsutil.NumberedName(i+1, ".html"))
			if err := fsutil.WriteAtomic(target, []byte(out.HTML)); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			continue
		}
		if opts.asJSON {
			if err := enc.Encode(out); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(w, out.HTML); err != nil {
			return err
		}
	}
	return nil
}
