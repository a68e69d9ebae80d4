package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/theognis1002/linkmark/internal/slug"
)

func newSlugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slug [text...]",
		Short: "Turn text into a lowercase, hyphenated slug",
		Long:  "Cleans the joined arguments, or stdin when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := strings.Join(args, " ")
			if len(args) == 0 {
				var err error
				input, err = readAllTrimmed(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), slug.Clean(input))
			return err
		},
	}
}
