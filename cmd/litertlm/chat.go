package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <model>",
		Short: "Chat with a model in one session",
		Long: `Load a model, open a single session and answer lines read from stdin.
Type 'quit' or 'exit' to stop. The model is a registry id, a name, or a path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.chat(cmd, args[0])
		},
	}
}

func (c *cli) chat(cmd *cobra.Command, model string) error {
	eng, _, err := c.loadModel(model)
	if err != nil {
		return err
	}
	defer eng.Close()
	sess, err := eng.CreateSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "You can now chat with the model. Type 'quit' or 'exit' to stop.")
	in := bufio.NewScanner(cmd.InOrStdin())
	in.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "You: ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		reply, err := sess.GenerateContext(cmd.Context(), line)
		if err != nil {
			if cerr := cmd.Context().Err(); cerr != nil {
				return cerr
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Error generating response: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "Assistant: %s\n\n", reply)
	}
}
