package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"litertlm/internal/litert"
)

var defaultBatchPrompts = []string{
	"What is the capital of France?",
	"Explain quantum computing in simple terms.",
	"Write a haiku about programming.",
	"What is 2 + 2?",
}

type batchResult struct {
	prompt   string
	response string
	took     time.Duration
	err      error
}

func newBatchCmd(c *cli) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "batch <model> [prompts...]",
		Short: "Answer several prompts, each in a fresh session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts := args[1:]
			if len(prompts) == 0 {
				prompts = defaultBatchPrompts
			}
			return c.batch(cmd, args[0], prompts, parallel)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Sessions generating at once")
	return cmd
}

func (c *cli) batch(cmd *cobra.Command, model string, prompts []string, parallel int) error {
	eng, _, err := c.loadModel(model)
	if err != nil {
		return err
	}
	defer eng.Close()

	results := make([]batchResult, len(prompts))
	g, ctx := errgroup.WithContext(cmd.Context())
	if parallel < 1 {
		parallel = 1
	}
	g.SetLimit(parallel)
	for i, p := range prompts {
		g.Go(func() error {
			results[i] = runPrompt(ctx, eng, p)
			// a closed engine or a canceled run ends the batch; per-prompt
			// generation errors are reported in the table
			if litert.IsKind(results[i].err, litert.KindClosed) || ctx.Err() != nil {
				return results[i].err
			}
			return nil
		})
	}
	gerr := g.Wait()

	failed := 0
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"#", "PROMPT", "RESPONSE", "TIME"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	for i, r := range results {
		resp := r.response
		if r.err != nil {
			failed++
			resp = "error: " + r.err.Error()
		}
		table.Append([]string{strconv.Itoa(i + 1), r.prompt, resp, r.took.Round(time.Millisecond).String()})
	}
	table.Render()
	if gerr != nil {
		return gerr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d prompts failed", failed, len(prompts))
	}
	return nil
}

// runPrompt answers p on its own session, closed before returning.
func runPrompt(ctx context.Context, eng *litert.Engine, p string) (r batchResult) {
	r.prompt = p
	start := time.Now()
	defer func() { r.took = time.Since(start) }()
	sess, err := eng.CreateSession()
	if err != nil {
		r.err = err
		return r
	}
	defer sess.Close()
	r.response, r.err = sess.GenerateContext(ctx, p)
	return r
}
