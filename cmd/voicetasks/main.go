// Command voicetasks runs the voice-to-task pipeline from a terminal: it
// captures a recorded audio file, sends it to a voicetasks server for
// transcription, lets the user review the transcript and prints the
// extracted tasks.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicetasks/internal/capture"
	"github.com/yoockh/voicetasks/internal/client"
	"github.com/yoockh/voicetasks/internal/logger"
	"github.com/yoockh/voicetasks/internal/models"
	"github.com/yoockh/voicetasks/internal/orchestrator"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("VOICETASKS_SERVER", "http://localhost:8080"), "voicetasks server base URL")
	apiKey := flag.String("api-key", os.Getenv("VOICETASKS_API_KEY"), "key sent as bearer token and apikey header")
	audio := flag.String("audio", "", "recorded audio file to transcribe")
	mime := flag.String("mime", "", "audio MIME type (sniffed when empty)")
	yes := flag.Bool("yes", false, "create tasks without reviewing the transcript")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	log := logger.New(*level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{})

	if *audio == "" {
		fmt.Fprintln(os.Stderr, "voicetasks: -audio is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, runOptions{
		client: client.New(*server, client.WithAPIKey(*apiKey)),
		device: &capture.FileDevice{Path: *audio, MIMEType: *mime},
		review: !*yes,
		in:     os.Stdin,
		out:    os.Stdout,
		log:    log,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "voicetasks:", orchestrator.UserMessage(err))
		log.WithError(err).Debug("pipeline failed")
		os.Exit(1)
	}
}

type runOptions struct {
	client *client.Client
	device capture.Device
	review bool
	in     io.Reader
	out    io.Writer
	log    *logrus.Logger
}

// printSink writes each confirmed batch to the terminal.
type printSink struct{ out io.Writer }

func (p printSink) AddTasks(_ context.Context, tasks []models.TaskRecord) error {
	for _, t := range tasks {
		fmt.Fprintf(p.out, "  %s  [%s]  %s\n", t.Time, t.Priority, t.Title)
	}
	return nil
}

func run(ctx context.Context, o runOptions) error {
	rec := capture.NewRecorder(o.device, o.log)
	transcribe := orchestrator.TranscriberFunc(o.client.Transcribe)

	pipe := orchestrator.New(rec, transcribe, o.client, printSink{out: o.out},
		orchestrator.WithLogger(o.log),
		orchestrator.WithListener(func(ev orchestrator.Event) {
			if ev.Notice != nil {
				fmt.Fprintf(o.out, "%s: %s\n", ev.Notice.Title, ev.Notice.Description)
			}
		}),
	)

	// Ctrl-C abandons whatever step is running
	defer cancelOnDone(ctx, pipe.Cancel)()

	if err := pipe.Start(ctx); err != nil {
		return err
	}
	transcript, err := pipe.Stop(ctx)
	if err != nil {
		return err
	}

	edited := ""
	if o.review {
		fmt.Fprintf(o.out, "\n%s\n\nEnter para confirmar o escribe el texto corregido: ", transcript)
		line, err := bufio.NewReader(o.in).ReadString('\n')
		if err != nil && err != io.EOF {
			pipe.Cancel()
			return err
		}
		edited = strings.TrimSpace(line)
	}

	_, err = pipe.Confirm(ctx, edited)
	return err
}

// cancelOnDone calls cancel once ctx is done. The returned stop ends the
// watch and returns after the watcher goroutine has exited; cancel is never
// called after stop returns.
func cancelOnDone(ctx context.Context, cancel func()) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
