package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "docspeak",
		Short:         "Structure documents into sections and read them aloud",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(outlineCmd(), sectionsCmd(), chunksCmd(), speakCmd(), voicesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
