package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage saved conversations",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		chats, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing chats: %w", err)
		}
		if len(chats) == 0 {
			fmt.Println("No saved chats.")
			return nil
		}
		for _, c := range chats {
			fmt.Printf("%s  %s  model=%s  messages=%d\n",
				c.Timestamp.Format("2006-01-02 15:04"), c.ID, c.Model, len(c.Messages))
		}
		return nil
	},
}

var chatsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the turns of a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		chat, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading chat: %w", err)
		}
		fmt.Printf("Chat: %s\nModel: %s\nSaved: %s\n\n",
			chat.ID, chat.Model, chat.Timestamp.Format("2006-01-02 15:04:05"))
		for _, turn := range chat.Messages {
			label := turn.Role
			if turn.Name != "" {
				label += "/" + turn.Name
			}
			fmt.Printf("[%s] %s\n", label, turn.Text())
		}
		return nil
	},
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := newStore()
		if err != nil {
			return err
		}
		if err := store.Remove(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting chat: %w", err)
		}
		fmt.Printf("Deleted %s.\n", args[0])
		return nil
	},
}

func init() {
	chatsCmd.AddCommand(chatsListCmd, chatsShowCmd, chatsDeleteCmd)
	rootCmd.AddCommand(chatsCmd)
}
