// Command taketurn reads an environment state from stdin, asks the model for
// the next action and prints it as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/agent-dungeon/internal/agent"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	var state map[string]any
	if err := json.NewDecoder(in).Decode(&state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	if env, _ := state["env_type"].(string); env == "" {
		return fmt.Errorf("input JSON must include env_type")
	}
	cfg, err := agent.ConfigFromEnv()
	if err != nil {
		return err
	}
	driver, err := agent.New(cfg, nil)
	if err != nil {
		return err
	}
	action, err := driver.TakeTurn(ctx, state)
	if err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(action)
}
