package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/suanpan/demos"
)

func newDemosCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demos",
		Short: "List the bundled gesture scripts",
		Long:  `Display the gesture scripts bundled with suanpan. Run one with suanpan replay --demo <name>.`,
		Args:  usageArgs(cobra.NoArgs),
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE:              runDemos,
	}
}

func runDemos(cmd *cobra.Command, args []string) error {
	all, err := demos.List()
	if err != nil {
		return fmt.Errorf("loading demos: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Demos:")
	if len(all) == 0 {
		fmt.Fprintln(w, "  (none)")
		return nil
	}

	maxLen := maxNameLen(all)
	for _, d := range all {
		fmt.Fprintf(w, "  %-*s  %s (%d rods)\n", maxLen, d.Name, d.Description, d.Rods)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run one with: suanpan replay --demo <name>")
	return nil
}

// maxNameLen returns the length of the longest demo name in the slice.
func maxNameLen(all []demos.Demo) int {
	maxLen := 0
	for _, d := range all {
		maxLen = max(maxLen, len(d.Name))
	}
	return maxLen
}
