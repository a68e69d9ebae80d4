package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/theognis1002/linkmark/internal/search"
)

func newLinksCmd(root *rootOptions) *cobra.Command {
	var (
		baseURL         string
		resolveRelative bool
	)

	cmd := &cobra.Command{
		Use:   "links <file|url|->",
		Short: "List the distinct link targets a pattern is matched against",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx, root, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			loader, err := a.loader()
			if err != nil {
				return err
			}
			p, err := loader.Load(ctx, args[0], baseURL)
			if err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			for _, link := range search.New(p, a.highlightDefaults(), a.logger).Links(resolveRelative) {
				fmt.Fprintf(out, "%d\t%s\n", link.Count, link.Key)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "page url for files and stdin")
	cmd.Flags().BoolVar(&resolveRelative, "resolve-relative", false, "resolve bare relative hrefs such as other.com/path")

	return cmd
}
