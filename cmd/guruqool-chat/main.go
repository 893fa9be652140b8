// Command guruqool-chat is a terminal client for one guru/student conversation.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/guruqool/guruqool-backend/internal/chat"
	"github.com/guruqool/guruqool-backend/internal/realtime"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// clientConfig reads GURUQOOL_API_URL, GURUQOOL_WS_URL and GURUQOOL_PASSWORD.
// Flags given on the command line win over it.
func clientConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("GURUQOOL")
	v.AutomaticEnv()
	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("WS_URL", "")
	v.SetDefault("PASSWORD", "")
	return v
}

// wsURLFromAPI derives the /ws endpoint from the REST base URL.
func wsURLFromAPI(api string) string {
	api = strings.TrimRight(api, "/")
	switch {
	case strings.HasPrefix(api, "https://"):
		return "wss://" + strings.TrimPrefix(api, "https://") + "/ws"
	case strings.HasPrefix(api, "http://"):
		return "ws://" + strings.TrimPrefix(api, "http://") + "/ws"
	}
	return api + "/ws"
}

// parseCommand splits "/cmd arg". Lines not starting with / are returned whole as arg.
func parseCommand(line string) (cmd, arg string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", line
	}
	cmd, arg, _ = strings.Cut(line, " ")
	return cmd, strings.TrimSpace(arg)
}

func main() {
	cfg := clientConfig()
	var (
		apiURL      = flag.String("api", cfg.GetString("API_URL"), "REST API base URL")
		wsURL       = flag.String("ws", cfg.GetString("WS_URL"), "WebSocket URL (default derived from -api)")
		sessionPath = flag.String("session", defaultSessionPath(), "saved session file")
		loginEmail  = flag.String("login", "", "sign in with this email and save the session")
		password    = flag.String("password", cfg.GetString("PASSWORD"), "password for -login")
		with        = flag.String("with", "", "user id of the guru or student to chat with")
		debug       = flag.Bool("debug", false, "verbose logging")
	)
	flag.Parse()

	level := zerolog.WarnLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := chat.NewAPIClient(*apiURL, "", &http.Client{Timeout: 15 * time.Second})

	if *loginEmail != "" {
		id, err := api.Login(ctx, *loginEmail, *password)
		if err != nil {
			fatal("sign in failed: %v", err)
		}
		if err := saveIdentity(*sessionPath, id); err != nil {
			fatal("save session: %v", err)
		}
		fmt.Printf("Signed in as %s (%s)\n", id.Username, id.Role)
		if *with == "" {
			return
		}
	}

	id, err := loadIdentity(*sessionPath)
	if err != nil {
		fatal("%v", err)
	}
	if *with == "" {
		fatal("-with is required")
	}
	if *wsURL == "" {
		*wsURL = wsURLFromAPI(*apiURL)
	}

	if err := run(ctx, log, id, api.WithToken(id.Token), *wsURL, *with, os.Stdin, os.Stdout); err != nil {
		fatal("%v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "guruqool-chat: "+format+"\n", args...)
	os.Exit(1)
}

func run(ctx context.Context, log zerolog.Logger, id chat.Identity, api chat.Persister, wsURL, counterpartID string, in io.Reader, out io.Writer) error {
	client, err := realtime.Dial(ctx, wsURL, id.Token, log)
	if err != nil {
		return err
	}
	defer client.Close()

	view := &terminal{out: out, self: id}
	sess, err := chat.NewSession(
		chat.SessionConfig{Identity: id, CounterpartID: counterpartID},
		client, api,
		chat.WithLogger(log),
		chat.WithNotifier(view.notice),
		chat.WithObserver(view.change),
	)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Open(ctx); err != nil {
		return err
	}
	view.start(sess.Counterpart(), sess.Messages)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			if err := client.Err(); err != nil && !errors.Is(err, realtime.ErrClosed) {
				return fmt.Errorf("connection lost: %w", err)
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, arg := parseCommand(line)
			switch cmd {
			case "":
				if arg == "" {
					continue
				}
				_ = sess.NotifyTyping(ctx)
				if _, err := sess.Send(ctx, arg); err != nil {
					view.printf("! %v\n", err)
				}
			case "/retry":
				if err := sess.Retry(ctx, arg); err != nil {
					view.printf("! retry %s: %v\n", arg, err)
				}
			case "/quit":
				return nil
			default:
				view.printf("! unknown command %s (try /retry <id> or /quit)\n", cmd)
			}
		}
	}
}

// terminal renders session changes as text lines.
type terminal struct {
	mu          sync.Mutex
	out         io.Writer
	self        chat.Identity
	counterpart string
	ready       bool
	// ids printed from the opening snapshot whose append change may still arrive
	shown map[string]int
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// start prints the conversation so far. The snapshot is taken under the view
// lock in the same step that turns live rendering on, so each message is
// printed exactly once.
func (t *terminal) start(counterpart string, snapshot func() []chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counterpart = counterpart
	history := snapshot()
	t.ready = true
	t.shown = make(map[string]int, len(history))
	if counterpart != "" {
		fmt.Fprintf(t.out, "Chatting with %s\n", counterpart)
	}
	for _, m := range history {
		t.shown[m.ID]++
		fmt.Fprintln(t.out, t.format(m))
	}
}

func (t *terminal) format(m chat.Message) string {
	name := t.counterpart
	if m.Sender == t.self.Role {
		name = "you"
	}
	if name == "" {
		name = string(m.Sender)
	}
	line := fmt.Sprintf("[%s] %s: %s", m.Clock(), name, m.Body)
	if m.Delivered {
		line += " ✓"
	}
	return line
}

func (t *terminal) change(c chat.Change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	switch c.Kind {
	case chat.ChangeAppended:
		if t.shown[c.Message.ID] > 0 {
			t.shown[c.Message.ID]--
			return
		}
		fmt.Fprintln(t.out, t.format(c.Message))
	case chat.ChangeDelivered:
		fmt.Fprintf(t.out, "  ✓ delivered: %s\n", c.Message.Body)
	case chat.ChangeStatus:
		if c.Message.Status == chat.StatusFailed {
			fmt.Fprintf(t.out, "  ! not saved: %q (/retry %s)\n", c.Message.Body, c.Message.ID)
		}
	case chat.ChangeTyping:
		if c.Typing {
			who := t.counterpart
			if who == "" {
				who = "they"
			}
			fmt.Fprintf(t.out, "  %s is typing...\n", who)
		}
	}
}

func (t *terminal) notice(n chat.Notice) {
	switch n.Kind {
	case chat.NoticeHistoryFailed:
		t.printf("! could not load earlier messages: %v\n", n.Err)
	case chat.NoticeSendFailed:
		t.printf("! message not sent: %v\n", n.Err)
	case chat.NoticePersistFailed:
		// Rendered through the status change.
	}
}
