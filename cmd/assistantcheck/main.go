// Command assistantcheck drives a running assistant API through a short
// scripted session and logs what came back.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/park285/chess-assistant-bot/internal/adapter/chesspresenter"
	"github.com/park285/chess-assistant-bot/internal/apiclient"
	"github.com/park285/chess-assistant-bot/pkg/chessdto"
)

func main() {
	baseURL := os.Getenv("ASSISTANT_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	token := os.Getenv("ASSISTANT_TOKEN")

	headers := func() map[string]string {
		m := map[string]string{}
		if token != "" {
			m["Authorization"] = "Bearer " + token
		}
		return m
	}

	client := apiclient.New(baseURL,
		apiclient.WithHeaderProvider(headers),
		apiclient.WithTimeout(15*time.Second),
	)
	formatter := chesspresenter.NewFormatter(nil)
	userID := "check-" + uuid.NewString()[:8]

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	h, err := client.Health(ctx)
	if err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz ok: engine=%v sessions=%d", h.Engine, h.Sessions)

	script := []chessdto.EventRequest{
		{Kind: "text", Text: "/start"},
		{Kind: "text", Text: "e4"},
		{Kind: "text", Text: "e5"},
		{Kind: "callback", Text: "turn_white"},
		{Kind: "callback", Text: "piece_knight"},
		{Kind: "callback", Text: "square_f3"},
		{Kind: "text", Text: "undo"},
	}
	failed := 0
	for _, ev := range script {
		reply, err := client.SendEvent(ctx, userID, ev)
		if err != nil {
			failed++
			log.Printf("%s %q error: %v", ev.Kind, ev.Text, err)
			continue
		}
		log.Printf("%s %q -> prompt=%s\n%s", ev.Kind, ev.Text, reply.PromptKind, formatter.Reply(reply))
	}

	state, err := client.BoardState(ctx, userID)
	if err != nil {
		log.Fatalf("board state error: %v", err)
	}
	log.Printf("final FEN: %s history=%v", state.FEN, state.History)
	if failed > 0 {
		os.Exit(1)
	}
}
