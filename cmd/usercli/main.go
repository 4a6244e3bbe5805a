// Package main provides the user CLI entry point for testing.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/tubequeue/internal/api/connect"
)

var (
	app        = kingpin.New("tubequeue-usercli", "tubequeue user client for testing")
	server     = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token      = app.Flag("token", "API token").Envar("API_TOKEN").Required().String()
	sessionKey = app.Flag("session", "Session key").Short('s').Default("usercli").String()

	// new-session command
	newSessionCmd = app.Command("new-session", "Print a fresh session key")

	// play command
	playCmd    = app.Command("play", "Play an album, playlist, genre or song")
	playSource = playCmd.Arg("source", "album, playlist, genre or song").Required().Enum("album", "playlist", "genre", "song")
	playName   = playCmd.Arg("name", "What to look up").Required().String()

	// liked command
	likedCmd = app.Command("liked", "Play the liked songs")

	// next command
	nextCmd     = app.Command("next", "Advance to the next song")
	nextTrigger = nextCmd.Flag("trigger", "next, nearly_finished or failed").Default("next").String()

	// shuffle command
	shuffleCmd = app.Command("shuffle", "Turn shuffle on or off")
	shuffleOn  = shuffleCmd.Arg("mode", "on or off").Required().Enum("on", "off")

	// like command
	likeCmd = app.Command("like", "Like the song playing")

	// stop command
	stopCmd = app.Command("stop", "Stop playback")

	// status command
	statusCmd = app.Command("status", "Show the session status")

	// watch command
	watchCmd = app.Command("watch", "Watch playback events")
	watchAll = watchCmd.Flag("all", "Watch every session").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == newSessionCmd.FullCommand() {
		fmt.Println(uuid.New().String())
		return
	}

	// Create client
	client := apiconnect.NewPlaybackClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewTokenInterceptor(*token)),
	)

	ctx := context.Background()
	key := *sessionKey

	// Execute command
	var (
		res *apiconnect.DirectiveResponse
		err error
	)
	switch command {
	case playCmd.FullCommand():
		res, err = client.Play(ctx, &apiconnect.PlayRequest{SessionKey: key, Source: *playSource, Name: *playName})
	case likedCmd.FullCommand():
		res, err = client.PlayLiked(ctx, &apiconnect.SessionRequest{SessionKey: key})
	case nextCmd.FullCommand():
		res, err = client.Advance(ctx, &apiconnect.AdvanceRequest{SessionKey: key, Trigger: *nextTrigger})
	case shuffleCmd.FullCommand():
		res, err = client.SetShuffle(ctx, &apiconnect.ShuffleRequest{SessionKey: key, On: *shuffleOn == "on"})
	case likeCmd.FullCommand():
		res, err = client.Like(ctx, &apiconnect.SessionRequest{SessionKey: key})
	case stopCmd.FullCommand():
		res, err = client.Stop(ctx, &apiconnect.SessionRequest{SessionKey: key})
	case statusCmd.FullCommand():
		status(ctx, client, key)
		return
	case watchCmd.FullCommand():
		if *watchAll {
			key = ""
		}
		watch(ctx, client, key)
		return
	}
	if err != nil {
		fmt.Printf("Error [%s]: %v\n", connect.CodeOf(err), err)
		os.Exit(1)
	}
	printDirective(res.Directive)
	if res.Speech != "" {
		fmt.Printf("  🗣  %s\n", res.Speech)
	}
	if res.Provider != "" {
		fmt.Printf("  via %s\n", res.Provider)
	}
}

func printDirective(d apiconnect.Directive) {
	switch d.Kind {
	case "replace_and_play":
		fmt.Printf("▶️  Play now: %s (%s)\n", d.Title, d.SongID)
		fmt.Printf("  %s\n", d.URL)
	case "enqueue_after":
		fmt.Printf("⏭  Queued after %s: %s (%s)\n", d.ContinuationToken, d.Title, d.SongID)
		fmt.Printf("  %s\n", d.URL)
	case "stop":
		fmt.Printf("⏹  Stop: %s\n", d.Message)
	case "no_results":
		fmt.Printf("🔍 Nothing found for %q\n", d.Query)
	case "none":
		fmt.Println("✔  OK")
	default:
		fmt.Printf("❓ %s\n", d.Kind)
	}
}

func status(ctx context.Context, client *apiconnect.PlaybackClient, key string) {
	res, err := client.GetStatus(ctx, &apiconnect.SessionRequest{SessionKey: key})
	if err != nil {
		fmt.Printf("Error [%s]: %v\n", connect.CodeOf(err), err)
		os.Exit(1)
	}

	fmt.Printf("Session: %s\n", res.SessionKey)
	fmt.Printf("  Phase:   %s\n", res.Phase)
	if res.Query != "" {
		fmt.Printf("  Query:   %s\n", res.Query)
	}
	if res.Current != nil {
		fmt.Printf("  Playing: %s (%s), the %s of %s songs\n",
			res.Current.Title, res.Current.ID, humanize.Ordinal(res.Played), humanize.Comma(int64(res.Total)))
	}
	fmt.Printf("  Shuffle: %t\n", res.Shuffle)
	fmt.Printf("  Liked:   %d songs\n", len(res.Liked))
	for _, s := range res.Liked {
		fmt.Printf("    ♥ %s (%s)\n", s.Title, s.ID)
	}
}

func watch(ctx context.Context, client *apiconnect.PlaybackClient, key string) {
	stream, err := client.Watch(ctx, &apiconnect.WatchRequest{SessionKey: key})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Watching playback events. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nUnsubscribing...")
		os.Exit(0)
	}()

	// Receive events
	for stream.Receive() {
		e := stream.Msg()
		if e.Operation == apiconnect.OperationWatchStarted {
			continue
		}
		fmt.Printf("#%d [%s] %s %s\n", e.SequenceNo, humanize.Time(e.Time), e.SessionKey, e.Operation)
		fmt.Print("  ")
		printDirective(e.Directive)
	}

	if err := stream.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
}
