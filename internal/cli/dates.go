package cli

import (
	"github.com/spf13/cobra"
)

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List the days fully covered by the datasets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Dates()
	},
}
