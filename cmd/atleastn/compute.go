package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/atleastn/internal/atleastn"
)

func computeCmd(a *app) *cobra.Command {
	var n int
	var roundTo int

	cmd := &cobra.Command{
		Use:   "compute P1 [P2 ...]",
		Short: "print the probability that at least --n of the given trials succeed",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			probabilities := make([]float64, len(args))
			for i, arg := range args {
				p, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("parse probability %q: %w", arg, err)
				}
				probabilities[i] = p
			}
			p, err := atleastn.AtLeastN(probabilities, n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.*f\n", roundTo, p)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 1, "number of trials that must succeed")
	cmd.Flags().IntVar(&roundTo, "round-to", 3, "decimal places in the output")
	return cmd
}
