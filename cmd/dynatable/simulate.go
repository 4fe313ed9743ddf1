package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tobsdb/dynatable/internal/simulate"
	"github.com/tobsdb/dynatable/pkg"
	"github.com/tobsdb/dynatable/pkg/client"
)

func newSimulateCmd() *cobra.Command {
	var host string
	var tables int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Create tables with random columns on a running server, fill and print them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := client.New(host)
			if err != nil {
				return err
			}
			pkg.InfoLog("HOST URI:", host, "Number of tables:", tables)

			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}
			results, err := simulate.New(c, seed).Run(cmd.Context(), tables)
			if err != nil {
				return err
			}
			for _, res := range results {
				simulate.Show(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "address of the server, e.g. http://localhost:7085")
	cmd.Flags().IntVarP(&tables, "tables", "t", 1, "number of tables to create, 1 to 10")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed, defaults to the current time")
	cmd.MarkFlagRequired("host")
	return cmd
}
