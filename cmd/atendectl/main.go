// atendectl is a one-shot scripting interface to the backend, sharing the
// console's config and API client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/atendehq/atende/internal/api"
	"github.com/atendehq/atende/internal/config"
	"github.com/atendehq/atende/internal/profile"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.atende/config.toml)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = profile.ConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if cfg.API.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "error: api.base_url is not configured")
		os.Exit(1)
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Token, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	switch args[0] {
	case "conversations":
		cmdConversations(ctx, client, *jsonFlag)
	case "messages":
		cmdMessages(ctx, client, args[1:], *jsonFlag)
	case "send":
		cmdSend(ctx, client, args[1:], *jsonFlag)
	case "send-file":
		cmdSendFile(ctx, client, args[1:], *jsonFlag)
	case "mode":
		cmdMode(ctx, client, args[1:])
	case "read":
		cmdRead(ctx, client, args[1:])
	case "reset":
		cmdReset(ctx, client, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: atendectl [--config <path>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  conversations                      List conversations")
	fmt.Fprintln(os.Stderr, "  messages <id>                      List a conversation's messages")
	fmt.Fprintln(os.Stderr, "  send <id> <text>                   Send a text message")
	fmt.Fprintln(os.Stderr, "  send-file <id> <kind> <path> [caption]  Send a media message")
	fmt.Fprintln(os.Stderr, "  mode <id> <bot|human>              Switch handling mode")
	fmt.Fprintln(os.Stderr, "  read <id>                          Mark a conversation read")
	fmt.Fprintln(os.Stderr, "  reset <id>                         Restart the bot dialogue")
}

func conversationArg(args []string) int64 {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "error: conversation id required")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(os.Stderr, "error: invalid conversation id %q\n", args[0])
		os.Exit(1)
	}
	return id
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err)
	}
}

func cmdConversations(ctx context.Context, client *api.Client, jsonOut bool) {
	convs, err := client.ListConversations(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(convs)
		return
	}
	for _, c := range convs {
		mode := "human"
		if c.BotActive {
			mode = "bot"
		}
		marker := " "
		if c.RequiresReengagement {
			marker = "!"
		}
		fmt.Printf("%s %6d  [%-5s]  unread=%-3d  %-25s  %s\n",
			marker, c.ID, mode, c.UnreadCount, c.ClientName, c.LastMessagePreview)
	}
}

func cmdMessages(ctx context.Context, client *api.Client, args []string, jsonOut bool) {
	id := conversationArg(args)
	msgs, err := client.ListMessages(ctx, id)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	for _, m := range msgs {
		dir := "<-"
		if m.Direction == api.DirectionOut {
			dir = "->"
		}
		body := m.Text
		if m.MediaKind != api.MediaNone {
			body = fmt.Sprintf("[%s %s] %s", m.MediaKind, m.MediaID, body)
		}
		ts := time.UnixMilli(m.CreatedAt).Format("2006-01-02 15:04")
		fmt.Printf("%6d  %s  %s  %s\n", m.ID, ts, dir, body)
	}
}

func cmdSend(ctx context.Context, client *api.Client, args []string, jsonOut bool) {
	id := conversationArg(args)
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: atendectl send <id> <text>")
		os.Exit(1)
	}
	msg, err := client.SendText(ctx, id, args[1])
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	fmt.Printf("sent message %d\n", msg.ID)
}

func cmdSendFile(ctx context.Context, client *api.Client, args []string, jsonOut bool) {
	id := conversationArg(args)
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: atendectl send-file <id> <image|audio|document> <path> [caption]")
		os.Exit(1)
	}
	kind := api.MediaKind(args[1])
	switch kind {
	case api.MediaImage, api.MediaAudio, api.MediaDocument:
	default:
		fmt.Fprintf(os.Stderr, "error: unknown media kind %q\n", args[1])
		os.Exit(1)
	}
	caption := ""
	if len(args) >= 4 {
		caption = args[3]
	}
	msg, err := client.SendMedia(ctx, id, kind, args[2], caption)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	fmt.Printf("sent %s message %d (media %s)\n", kind, msg.ID, msg.MediaID)
}

func cmdMode(ctx context.Context, client *api.Client, args []string) {
	id := conversationArg(args)
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: atendectl mode <id> <bot|human>")
		os.Exit(1)
	}
	mode := api.Mode(args[1])
	if mode != api.ModeBot && mode != api.ModeHuman {
		fmt.Fprintf(os.Stderr, "error: mode must be bot or human, got %q\n", args[1])
		os.Exit(1)
	}
	if err := client.SetMode(ctx, id, mode); err != nil {
		fail(err)
	}
	fmt.Printf("conversation %d switched to %s\n", id, mode)
}

func cmdRead(ctx context.Context, client *api.Client, args []string) {
	id := conversationArg(args)
	if err := client.MarkRead(ctx, id); err != nil {
		fail(err)
	}
	fmt.Printf("conversation %d marked read\n", id)
}

func cmdReset(ctx context.Context, client *api.Client, args []string) {
	id := conversationArg(args)
	if err := client.ResetBot(ctx, id); err != nil {
		fail(err)
	}
	fmt.Printf("bot dialogue reset for conversation %d\n", id)
}
