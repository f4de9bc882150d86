package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Sathi interactively",
	Long:  `Starts an interactive terminal session. The reminder scheduler runs alongside, so scheduled reminders fire while the chat is open.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if err := rt.scheduler.Init(ctx); err != nil {
			return err
		}
		if err := rt.scheduler.Start(ctx); err != nil {
			return err
		}
		defer rt.scheduler.Stop(context.Background())

		return runREPL(ctx, rt)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// The CLI keeps one stable session so the saved phone number and intent
// context survive across runs.
const cliSessionID = "cli:local"

func runREPL(ctx context.Context, rt *runtime) error {
	fmt.Println(promptStyle.Render("Sathi") + faintStyle.Render("  ·  personal life admin assistant"))
	fmt.Println(faintStyle.Render("Type a message, /help for commands, /exit to quit."))

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("> "))

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if text == "/exit" || text == "/quit" {
			fmt.Println(faintStyle.Render("Bye!"))
			return nil
		}

		reply := rt.agent.HandleMessage(ctx, cliSessionID, "cli", text)
		fmt.Println(replyStyle.Render(reply))

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
