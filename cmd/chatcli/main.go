package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/webstylepress/chatbot-backend/pkg/client"
)

const greeting = "👋 Hello! I'm your AI assistant. How can I help you today?"

// Typing delay bounds for perceived responsiveness: ~20ms per input
// character, clamped between 500ms and 1s.
const (
	typingDelayMin     = 500 * time.Millisecond
	typingDelayMax     = time.Second
	typingDelayPerChar = 20 * time.Millisecond
)

var (
	serverURL string
	sessionID string

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("36"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for the AI chat assistant",
	Long: `An interactive terminal client for the AI chat assistant backend.

Type a message and press enter to send it. The session identifier is kept
for the lifetime of the process so the conversation stays in one thread.`,
	RunE: runChat,
}

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print a page of a session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var (
	historyPage  int
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Chat backend base URL")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session")

	historyCmd.Flags().IntVar(&historyPage, "page", 1, "Page number")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Messages per page")
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	api := client.New(serverURL)

	fmt.Println(botStyle.Render("bot> ") + greeting)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		// The user turn is already on screen; further input blocks until
		// this send settles.
		fmt.Println(infoStyle.Render("..."))

		resp, err := api.SendMessage(cmd.Context(), text, sessionID)
		if err != nil {
			time.Sleep(typingDelayMax)
			fmt.Println(errorStyle.Render("bot> " + errorBubble(err)))
			continue
		}

		if resp.SessionID != "" && resp.SessionID != sessionID {
			sessionID = resp.SessionID
		}

		time.Sleep(typingDelay(text))
		fmt.Println(botStyle.Render("bot> ") + resp.Response)
		fmt.Println(infoStyle.Render(fmt.Sprintf("(answered in %dms, session %s)", resp.ProcessingTime, sessionID)))
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	api := client.New(serverURL)

	hist, err := api.History(cmd.Context(), args[0], historyPage, historyLimit)
	if err != nil {
		return err
	}

	for _, msg := range hist.Messages {
		style := userStyle
		prefix := "you> "
		if msg.Sender == "bot" {
			style = botStyle
			prefix = "bot> "
		}
		fmt.Println(style.Render(prefix) + msg.Content)
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf("page %d/%d, %d messages total",
		hist.CurrentPage, hist.TotalPages, hist.TotalMessages)))
	return nil
}

// typingDelay derives the cosmetic reply delay from input length.
func typingDelay(text string) time.Duration {
	d := time.Duration(len(text)) * typingDelayPerChar
	if d < typingDelayMin {
		return typingDelayMin
	}
	if d > typingDelayMax {
		return typingDelayMax
	}
	return d
}

// errorBubble maps a failed send onto the synthetic bot turn shown to the
// user.
func errorBubble(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 429:
			return "Rate limit exceeded. Please wait a moment before sending another message."
		case 504:
			return "Request timeout. The server is taking too long to respond."
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Connection timeout. Please check your internet connection."
	}
	return "Sorry, there was an error processing your request. Please try again."
}
