package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
)

// newFormatCmd creates the format command.
func newFormatCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "format <count>...",
		Short: "Abbreviate engagement counts",
		Example: `  postmock format 1500        # 1,5 B
  postmock format --lang en 2300   # 2.3K`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bundle := locale.NewStore().MustLookup(locale.Code(lang))
			for _, arg := range args {
				n, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid count %q", arg)
				}
				fmt.Fprintln(cmd.OutOrStdout(), bundle.Numbers.Format(domain.CountOf(n).Int64()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", string(locale.Primary), "Language code")

	return cmd
}
