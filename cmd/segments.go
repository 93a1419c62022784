package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/timetabler/app"
)

var segmentsCmd = &cobra.Command{
	Use:   "segments <service>",
	Short: "List the route segments a service shares with other services",
	Args:  cobra.ExactArgs(1),
	RunE:  runSegments,
}

func init() {
	rootCmd.AddCommand(segmentsCmd)
}

func runSegments(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withService(cfg, func(svc *app.Service) error {
		segs, err := svc.Segments(context.Background(), args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SECONDARY\tDIRECTION\tSTOPS\tPATH")
		for _, s := range segs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Secondary, s.Direction, s.Len(), strings.Join(s.StopIDs(), " > "))
		}
		return w.Flush()
	})
}
