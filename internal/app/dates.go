package app

import (
	"fmt"
	"os"
	"text/tabwriter"
)

// Dates lists the calendar days fully covered by the datasets.
func (a *App) Dates() error {
	provider, err := a.openDataset()
	if err != nil {
		return err
	}

	dates := provider.AvailableDates()
	if len(dates) == 0 {
		fmt.Fprintln(os.Stdout, "no complete days available")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Complete days\t%d\n", len(dates))
	fmt.Fprintf(writer, "First\t%s\n", dates[0].Format("2006-01-02"))
	fmt.Fprintf(writer, "Last\t%s\n", dates[len(dates)-1].Format("2006-01-02"))
	writer.Flush()

	for _, day := range dates {
		fmt.Fprintln(os.Stdout, day.Format("2006-01-02"))
	}
	return nil
}
