package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steerrt/agentrt/internal/rpc"
)

var sessionAddr string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions on a running Agent Service",
	Long: `session manages sessions on a running "agentrt serve" instance via the
Agent Service's unary RPCs, rather than touching session state directly.`,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionList,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete SESSION_ID",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Show a session's files",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionAddr, "addr", "127.0.0.1:4096", "Agent Service address")
	sessionCmd.AddCommand(sessionListCmd, sessionDeleteCmd, sessionShowCmd)
}

func dialSession() (*rpc.Client, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := rpc.Dial(sessionAddr)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("dial agent service at %s: %w", sessionAddr, err)
	}
	return client, ctx, cancel, nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := dialSession()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	resp, err := client.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Sessions)
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := dialSession()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	if err := client.DeleteSession(ctx, args[0]); err != nil {
		return fmt.Errorf("delete session %s: %w", args[0], err)
	}
	fmt.Printf("deleted session %s\n", args[0])
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	client, ctx, cancel, err := dialSession()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	paths, err := client.ListFiles(ctx, args[0], "", 0)
	if err != nil {
		return fmt.Errorf("list files for session %s: %w", args[0], err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
