package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlive/nextlive/internal/events"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.channel.Close()

	// Mirror progress and command output to the terminal while the
	// assistant works.
	go func() {
		for e := range a.channel.Events() {
			switch e.Kind {
			case events.KindStatus:
				fmt.Fprintf(os.Stderr, "· %s\n", e.Message)
			case events.KindCommandOutput:
				fmt.Fprint(os.Stderr, e.Message)
			}
		}
	}()

	fmt.Printf("NextLive (%s). Type /help for commands, /exit to quit.\n", a.service.Model())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if done := a.handleCommand(ctx, line); done {
				break
			}
			continue
		}

		reply, err := a.service.Send(ctx, line)
		if err != nil {
			a.logger.Error("send failed", "error", err)
		}
		fmt.Println(reply)
	}
	return scanner.Err()
}

// handleCommand processes a slash command. Returns true to exit the loop.
func (a *app) handleCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch fields[0] {
	case "/exit", "/quit":
		return true

	case "/help":
		fmt.Println(`Commands:
  /reset            start a new conversation (the current one is saved)
  /chats            list saved conversations
  /load <id>        resume a saved conversation
  /delete <id>      delete a saved conversation
  /model [name]     show or switch the model
  /exit             quit`)

	case "/reset":
		a.service.Reset(ctx)

	case "/chats":
		chats, err := a.service.ListSavedChats(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "listing chats: %v\n", err)
			break
		}
		if len(chats) == 0 {
			fmt.Println("No saved chats.")
			break
		}
		for _, c := range chats {
			fmt.Printf("%s  %s  (%d messages)\n",
				c.Timestamp.Format("2006-01-02 15:04"), c.ID, len(c.Messages))
		}

	case "/load":
		if arg == "" {
			fmt.Println("Usage: /load <id>")
			break
		}
		if err := a.service.LoadChat(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "loading chat: %v\n", err)
			break
		}
		fmt.Printf("Resumed chat %s (%d messages).\n", arg, len(a.service.History()))

	case "/delete":
		if arg == "" {
			fmt.Println("Usage: /delete <id>")
			break
		}
		if err := a.service.DeleteChat(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "deleting chat: %v\n", err)
		}

	case "/model":
		if arg == "" {
			fmt.Printf("Current model: %s\n", a.service.Model())
			break
		}
		a.service.SetModel(arg)
		fmt.Printf("Switched to %s.\n", arg)

	default:
		fmt.Printf("Unknown command %s. Type /help.\n", fields[0])
	}
	return false
}
