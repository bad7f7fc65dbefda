package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"litertlm/internal/litert"
)

func newBenchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "bench <model> <prompt>",
		Short: "Generate once and print the session's benchmark counters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.bench(cmd, args[0], args[1])
		},
	}
}

func (c *cli) bench(cmd *cobra.Command, model, prompt string) error {
	eng, mdl, err := c.loadModel(model)
	if err != nil {
		return err
	}
	defer eng.Close()
	sess, err := eng.CreateSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	start := time.Now()
	reply, err := sess.GenerateContext(cmd.Context(), prompt)
	if err != nil {
		return err
	}
	took := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", reply)
	info, err := sess.BenchmarkInfo()
	if errors.Is(err, litert.ErrMetricsUnavailable) {
		fmt.Fprintln(out, "benchmark counters unavailable (engine built without benchmarking)")
		return nil
	}
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"METRIC", "VALUE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk([][]string{
		{"model", mdl.ID},
		{"backend", eng.Backend().String()},
		{"time to first token", info.TTFT().String()},
		{"prefill turns", strconv.Itoa(info.NumPrefillTurns)},
		{"decode turns", strconv.Itoa(info.NumDecodeTurns)},
		{"wall time", took.Round(time.Millisecond).String()},
	})
	table.Render()
	return nil
}
