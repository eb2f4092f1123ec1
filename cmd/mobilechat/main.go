package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Albinjegus10/mobilechat/internal/chat"
	"github.com/Albinjegus10/mobilechat/internal/config"
	"github.com/Albinjegus10/mobilechat/pkg/logger"
	"github.com/Albinjegus10/mobilechat/sdk"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
	} else {
		logger.SetLevel(logger.LevelWarn)
	}

	args, showHelp, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	if showHelp || len(args) == 0 {
		printUsage()
		return nil
	}

	client := sdk.NewClient(cfg)
	defer client.Shutdown()

	switch args[0] {
	case "login":
		return loginCommand(client, args[1:])
	case "logout":
		return client.Logout()
	case "rooms":
		return roomsCommand(client)
	case "invite":
		if len(args) < 2 {
			return fmt.Errorf("usage: mobilechat invite <room-id>")
		}
		return inviteCommand(cfg, args[1])
	case "join":
		if len(args) < 2 {
			return fmt.Errorf("usage: mobilechat join <room-id>")
		}
		return joinCommand(client, args[1])
	case "help", "--help", "-h":
		printUsage()
		return nil
	case "version", "--version", "-v":
		fmt.Println("mobilechat v1.0.0")
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func parseFlags(args []string) ([]string, bool, error) {
	fs := flag.NewFlagSet("mobilechat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	showHelp := fs.Bool("help", false, "Show help")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	return fs.Args(), *showHelp, nil
}

func loginCommand(client *sdk.Client, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}

	fmt.Print("Password: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password := strings.TrimSpace(line)

	name, err := client.Login(username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Printf("Logged in as %s\n", name)
	return nil
}

func roomsCommand(client *sdk.Client) error {
	roomsJSON, err := client.ListRooms()
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}

	var rooms []struct {
		ID   json.RawMessage `json:"id"`
		Name string          `json:"name"`
	}
	if err := json.Unmarshal([]byte(roomsJSON), &rooms); err != nil {
		return err
	}
	if len(rooms) == 0 {
		fmt.Println("No rooms.")
		return nil
	}
	for _, room := range rooms {
		fmt.Printf("%s\t%s\n", strings.Trim(string(room.ID), `"`), room.Name)
	}
	return nil
}

// inviteCommand prints a scannable QR code that deep-links a phone into the
// room.
func inviteCommand(cfg *config.Config, roomID string) error {
	link := fmt.Sprintf("%s/room/%s", strings.TrimRight(cfg.ServerURL, "/"), roomID)

	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	fmt.Printf("Scan to join room %s:\n", roomID)
	fmt.Println(qr.ToSmallString(false))
	fmt.Printf("Invite link: %s\n", link)
	return nil
}

// terminalListener renders SDK events for the interactive room view.
type terminalListener struct{}

func (terminalListener) OnTimelineChanged(roomID string, timelineJSON string) {
	var messages []chat.Message
	if err := json.Unmarshal([]byte(timelineJSON), &messages); err != nil {
		logger.Warnf("bad timeline payload: %v", err)
		return
	}
	// Newest first on the wire; print oldest first like a chat transcript.
	fmt.Print("\033[2J\033[H")
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		marker := ""
		switch m.Status {
		case chat.StatusPending:
			marker = " …"
		case chat.StatusFailed:
			marker = " ✗"
		}
		body := m.Body
		if body == "" && m.Attachment != "" {
			body = fmt.Sprintf("[image: %s]", m.Attachment)
		}
		fmt.Printf("%s %s: %s%s\n", m.Timestamp.Local().Format("15:04:05"), m.Sender, body, marker)
	}
	fmt.Print("> ")
}

func (terminalListener) OnConnectionStateChanged(roomID string, state string) {
	fmt.Printf("\n[%s] connection: %s\n> ", roomID, state)
}

func (terminalListener) OnError(roomID string, kind string, message string) {
	fmt.Printf("\n[%s] %s error: %s\n> ", roomID, kind, message)
}

func joinCommand(client *sdk.Client, roomID string) error {
	client.SetListener(terminalListener{})

	if err := client.StartRoom(roomID); err != nil {
		return err
	}
	defer client.EndRoom(roomID)

	fmt.Printf("Joined room %s. Type a message, /image <path>, /older, or /quit.\n", roomID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-sigCh:
			fmt.Println()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handleInput(client, roomID, line); err != nil {
				if err == errQuit {
					return nil
				}
				fmt.Printf("error: %v\n", err)
			}
		}
	}
}

var errQuit = fmt.Errorf("quit")

func handleInput(client *sdk.Client, roomID, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case line == "/quit":
		return errQuit
	case line == "/older":
		return client.LoadOlder(roomID)
	case strings.HasPrefix(line, "/image "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "/image "))
		if path == "" {
			return fmt.Errorf("usage: /image <path>")
		}
		return client.SendImage(roomID, path)
	case strings.HasPrefix(line, "/"):
		return fmt.Errorf("unknown command %q", line)
	default:
		return client.SendText(roomID, line)
	}
}

func printUsage() {
	fmt.Println(`mobilechat - terminal client for the mobilechat server

Usage:
  mobilechat login [username]   Log in and store credentials
  mobilechat logout             Discard stored credentials
  mobilechat rooms              List available rooms
  mobilechat join <room-id>     Open an interactive room view
  mobilechat invite <room-id>   Print a QR invite link for a room
  mobilechat help               Show this help message
  mobilechat version            Show version information

Room view commands:
  /image <path>   Upload an image to the room
  /older          Load the next older history page
  /quit           Leave the room

Environment Variables:
  MOBILECHAT_SERVER_URL       REST base URL (default: http://192.168.1.122:8000)
  MOBILECHAT_SOCKET_URL       Websocket base URL (derived from server URL)
  MOBILECHAT_HOME_DIR         State directory (default: ~/.mobilechat)
  MOBILECHAT_MAX_RETRIES      Reconnect attempts per outage (default: 5)
  MOBILECHAT_RETRY_DELAY      Delay between reconnect attempts (default: 3s)
  MOBILECHAT_PAGE_SIZE        History page size (default: 50)
  MOBILECHAT_PENDING_TIMEOUT  Expiry for unacknowledged sends (default: off)
  MOBILECHAT_RECONCILE_WINDOW Echo-match timestamp tolerance (default: 2m)
  MOBILECHAT_PUSHOVER_TOKEN   Pushover app token (enables notifications)
  MOBILECHAT_PUSHOVER_USER    Pushover user key
  DEBUG                       Enable debug logging (true/1)`)
}
