package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"docubot/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}
	m := tui.New(svc)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
