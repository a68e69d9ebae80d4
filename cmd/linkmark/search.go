package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/theognis1002/linkmark/internal/search"
	"github.com/theognis1002/linkmark/internal/settings"
)

var errSnapshotsDisabled = errors.New("snapshot storage is not configured")

type searchOptions struct {
	pattern         string
	prefix          bool
	text            bool
	resolveRelative bool
	bgColor         string
	fontSize        int
	baseURL         string
	out             string
	snapshot        bool
	saveSettings    bool
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <file|url|->",
		Short: "Highlight matching links in a page and write the result",
		Long: `Loads a page from a file, stdin ("-") or an http(s) URL, highlights every
link whose resolved href matches the pattern and writes the marked-up HTML.

Flags that are not given fall back to the saved settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, opts, args[0])
		},
	}

	bindSearchFlags(cmd.Flags(), opts)

	return cmd
}

func bindSearchFlags(flags *pflag.FlagSet, opts *searchOptions) {
	flags.StringVarP(&opts.pattern, "pattern", "p", "", "url to search for")
	flags.BoolVar(&opts.prefix, "prefix", false, "match every link under the pattern")
	flags.BoolVar(&opts.text, "text", false, "also highlight matching visible text")
	flags.BoolVar(&opts.resolveRelative, "resolve-relative", false, "resolve bare relative hrefs such as other.com/path")
	flags.StringVar(&opts.bgColor, "bg-color", "", "highlight background color")
	flags.IntVar(&opts.fontSize, "font-size", 0, "highlight font size in px")
	flags.StringVar(&opts.baseURL, "base-url", "", "page url for files and stdin")
	flags.StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	flags.BoolVar(&opts.snapshot, "snapshot", false, "upload the result to snapshot storage")
	flags.BoolVar(&opts.saveSettings, "save-settings", false, "store the effective search settings")
}

func runSearch(cmd *cobra.Command, root *rootOptions, opts *searchOptions, source string) error {
	ctx := cmd.Context()

	a, err := setup(ctx, root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close()

	store := a.settingsStore()
	stored, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	effective := applySearchFlags(stored, opts, cmd.Flags())

	if opts.saveSettings {
		if err := store.Save(ctx, effective); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		a.logger.Info("settings saved", "profile", a.cfg.Settings.Profile)
	}

	loader, err := a.loader()
	if err != nil {
		return err
	}
	p, err := loader.Load(ctx, source, opts.baseURL)
	if err != nil {
		return fmt.Errorf("loading %s: %w", source, err)
	}

	ctrl := search.New(p, a.highlightDefaults(), a.logger)
	res, err := ctrl.Search(ctx, effective.Request())
	if err != nil {
		return err
	}

	if res.MatchedCount > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Found and highlighted %d element(s)\n", res.MatchedCount)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), "No matching elements found")
	}

	html, err := ctrl.HTML()
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	if err := writeOutput(cmd.OutOrStdout(), opts.out, html); err != nil {
		return err
	}

	if opts.snapshot {
		return uploadSnapshot(ctx, a, p.URL, html)
	}
	return nil
}

// applySearchFlags overlays the flags the user actually set onto the stored
// settings.
func applySearchFlags(s settings.Settings, opts *searchOptions, flags *pflag.FlagSet) settings.Settings {
	if flags.Changed("pattern") {
		s.SearchURL = opts.pattern
	}
	if flags.Changed("prefix") {
		s.PartialSearch = opts.prefix
	}
	if flags.Changed("text") {
		s.SearchText = opts.text
	}
	if flags.Changed("resolve-relative") {
		s.SpecialCases = opts.resolveRelative
	}
	if flags.Changed("bg-color") {
		s.BgColor = opts.bgColor
	}
	if flags.Changed("font-size") {
		s.FontSize = strconv.Itoa(opts.fontSize)
	}
	return s
}

func writeOutput(stdout io.Writer, path string, html []byte) error {
	if path == "" {
		_, err := stdout.Write(html)
		return err
	}
	if err := os.WriteFile(path, html, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func uploadSnapshot(ctx context.Context, a *app, pageURL string, html []byte) error {
	snaps, err := a.snapshots(ctx)
	if err != nil {
		return err
	}
	if snaps == nil {
		return errSnapshotsDisabled
	}
	key, err := snaps.PutSnapshot(ctx, pageURL, html)
	if err != nil {
		return err
	}
	a.logger.Info("snapshot stored", "key", key, "bucket", a.cfg.MinIO.Bucket)
	return nil
}
