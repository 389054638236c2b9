package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/law-agent/backend/internal/service/conversation"
)

var askSession string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Run a single chat turn and print the reply",
	Example: `  law-agent ask "Can my landlord keep my deposit?"
  law-agent ask -v --session demo "What is a trademark?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		reply, err := a.conversation.Chat(cmd.Context(), conversation.Request{
			Message:   strings.Join(args, " "),
			Sender:    "cli",
			SessionID: askSession,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), reply.Response)
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "[source=%s session=%s]\n", reply.Source, reply.SessionID)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Session id (defaults to the configured default session)")
}
