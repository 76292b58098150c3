package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"chat-client/internal/api"
	"chat-client/internal/chatsync"
	"chat-client/internal/config"
	"chat-client/internal/conversations"
	"chat-client/internal/devstub"
	"chat-client/internal/models"
	"chat-client/internal/rabbitmq"
	"chat-client/internal/telemetry"
	"chat-client/internal/tokenstore"
)

func main() {
	cfg, err := config.Load(getEnv("CHAT_CONFIG", "chat-client.yaml"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
	}

	if args[0] == "stub" {
		runStub(cfg)
		return
	}

	store, err := tokenstore.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("failed to open token store: %v", err)
	}
	defer store.Close()

	publisher := rabbitmq.NewPublisher(cfg.Telemetry.AMQPURL, cfg.Telemetry.Exchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "client_events.chat", "chat-client", cfg.Telemetry.Environment)

	client := api.NewClient(cfg.API.BaseURL, store, cfg.API.Timeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "login":
		if len(args) != 2 {
			usage()
		}
		if err := store.Set(ctx, tokenstore.SessionTokenKey, args[1]); err != nil {
			log.Fatalf("failed to store token: %v", err)
		}
		fmt.Println("token stored")
	case "logout":
		if err := store.Remove(ctx, tokenstore.SessionTokenKey); err != nil {
			log.Fatalf("failed to remove token: %v", err)
		}
		fmt.Println("token removed")
	case "chats":
		runChats(ctx, client)
	case "chat":
		if len(args) != 2 {
			usage()
		}
		peerID, err := strconv.Atoi(args[1])
		if err != nil {
			usage()
		}
		runChat(ctx, cfg, client, store, audit, peerID)
	default:
		usage()
	}
}

func runChats(ctx context.Context, client *api.Client) {
	aggregator := conversations.NewAggregator(client, nil)
	if err := aggregator.Refresh(ctx, false); err != nil {
		log.Fatalf("failed to load chats: %v", err)
	}
	items := aggregator.Items()
	if len(items) == 0 {
		fmt.Println("no conversations")
		return
	}
	for _, item := range items {
		badge := ""
		if item.UnreadCount > 0 {
			badge = fmt.Sprintf(" (%d unread)", item.UnreadCount)
		}
		fmt.Printf("%-9s %-24s %s%s\n", item.LastTime, item.PeerName+" [#"+strconv.Itoa(item.PeerUserID)+"]", item.LastMessage, badge)
	}
}

func runChat(ctx context.Context, cfg *config.Config, client *api.Client, store *tokenstore.Store, audit *telemetry.AuditEmitter, peerID int) {
	var events <-chan models.ChatEvent
	channel, err := api.DialChannel(ctx, cfg.API.BaseURL, store)
	if err != nil {
		// Best-effort push; polling stays the primary delivery path.
		log.Printf("real-time channel unavailable, polling only: %v", err)
		audit.Emit(ctx, "channel_unavailable", err.Error(), &peerID)
	} else {
		events = channel.Events()
		audit.Emit(ctx, "channel_opened", "", &peerID)
		defer func() {
			channel.Close()
			audit.Emit(context.Background(), "channel_closed", "", &peerID)
		}()
	}

	session := chatsync.Open(ctx, client, peerID, chatsync.Options{
		PollInterval: cfg.API.PollInterval,
		Events:       events,
		OnUpdate:     renderMessages(),
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		},
		Audit: audit,
	})
	defer session.Close()

	fmt.Printf("chatting with peer %d, type a message and press enter (ctrl-d to quit)\n", peerID)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := session.Send(ctx, scanner.Text()); err != nil {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
		}
	}
}

// renderMessages prints the list on change, skipping identical redraws
// triggered by polls that found nothing new.
func renderMessages() func([]models.Message) {
	var lastRendered string
	return func(msgs []models.Message) {
		var b strings.Builder
		for _, msg := range msgs {
			marker := ""
			if msg.Status == models.StatusPending {
				marker = " (sending)"
			}
			fmt.Fprintf(&b, "[%s] %s: %s%s\n", msg.Time, msg.Sender, msg.Text, marker)
		}
		rendered := b.String()
		if rendered == lastRendered {
			return
		}
		lastRendered = rendered
		fmt.Print("----\n" + rendered)
	}
}

func runStub(cfg *config.Config) {
	server := devstub.NewServer(nil)
	server.SeedDemo(cfg.Stub.Token)
	addr := ":" + strconv.Itoa(cfg.Stub.Port)
	log.Printf("stub backend listening on %s (token %q)", addr, cfg.Stub.Token)
	if err := server.Run(addr); err != nil {
		log.Fatalf("stub server error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  chat-client login <token>   store the session token
  chat-client logout          remove the session token
  chat-client chats           list conversations
  chat-client chat <peerID>   open a conversation
  chat-client stub            run the local stub backend`)
	os.Exit(1)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
