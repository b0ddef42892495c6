package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pdfchat-be/pkg/events"
	pktNats "pdfchat-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// eventtail prints session lifecycle events from the NATS stream.
func main() {
	_ = godotenv.Load()

	defaultURL := os.Getenv("NATS_URL")
	if defaultURL == "" {
		defaultURL = "nats://localhost:4222"
	}
	url := flag.String("nats", defaultURL, "NATS server URL")
	subject := flag.String("subject", pktNats.SubjectPrefix+".>", "subject filter")
	durable := flag.String("durable", "", "durable consumer name (empty for ephemeral)")
	flag.Parse()

	sub, err := pktNats.NewSubscriber(*url)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = sub.Subscribe(ctx, *subject, *durable, func(ctx context.Context, e events.Event) error {
		printEvent(e)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	color.Cyan("Listening on %s (%s)", *subject, *url)
	<-ctx.Done()
}

func printEvent(e events.Event) {
	ts := e.Timestamp().Format("15:04:05.000")
	sid, _ := e.Payload()["session_id"].(string)

	line := fmt.Sprintf("%s %-16s %s", ts, e.EventType(), sid)
	switch e.EventType() {
	case events.TypeSessionReset, events.TypeSessionEvicted:
		color.Red("%s", line)
	case events.TypePDFAttached, events.TypePDFDetached:
		color.Yellow("%s", line)
	default:
		color.Green("%s", line)
	}
}
