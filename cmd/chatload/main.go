package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type options struct {
	baseURL       string
	conversations int
	turns         int
	concurrency   int
	turnTimeout   time.Duration
	texts         []string
	verbose       bool
}

type chatRequest struct {
	ConversationID string         `json:"conversationId"`
	Message        string         `json:"message"`
	History        []historyEntry `json:"history,omitempty"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

type storedMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

var defaultPrompts = []string{
	"Plan a 3-day trip to Lisbon on a mid-range budget.",
	"What should I pack for hiking in Patagonia in March?",
	"Suggest a food-focused weekend in Osaka.",
	"How do I get from Zurich to Lake Como by train?",
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatload: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chatload: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textsRaw string
	var turnTimeoutMS int

	fs := flag.NewFlagSet("chatload", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:8787", "wayfarer base URL")
	fs.IntVar(&cfg.conversations, "conversations", 4, "number of parallel conversations")
	fs.IntVar(&cfg.turns, "turns", 5, "turns per conversation")
	fs.IntVar(&cfg.concurrency, "concurrency", 4, "maximum conversations in flight")
	fs.IntVar(&turnTimeoutMS, "turn-timeout-ms", 60000, "timeout per chat turn in milliseconds")
	fs.StringVar(&textsRaw, "texts", "", "prompts separated by '|' (optional)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "print every turn")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.conversations <= 0 {
		return options{}, fmt.Errorf("conversations must be > 0")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if cfg.concurrency <= 0 {
		cfg.concurrency = 1
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultPrompts...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			t := strings.TrimSpace(part)
			if t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty prompts")
		}
	}
	return cfg, nil
}

// run drives cfg.conversations independent conversations and then checks
// that each one recorded exactly two messages per turn, in order.
func run(ctx context.Context, cfg options, out io.Writer) error {
	client := &http.Client{Timeout: cfg.turnTimeout}

	var (
		mu        sync.Mutex
		latencies []time.Duration
	)
	record := func(d time.Duration) {
		mu.Lock()
		latencies = append(latencies, d)
		mu.Unlock()
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for c := 0; c < cfg.conversations; c++ {
		convID := "load-" + uuid.NewString()
		g.Go(func() error {
			return driveConversation(gctx, client, cfg, convID, record, out)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Fprintf(out, "chatload: conversations=%d turns=%d elapsed=%s p50=%s p95=%s max=%s\n",
		cfg.conversations,
		len(latencies),
		time.Since(started).Round(time.Millisecond),
		percentile(latencies, 0.50),
		percentile(latencies, 0.95),
		percentile(latencies, 1.0),
	)
	return nil
}

func driveConversation(ctx context.Context, client *http.Client, cfg options, convID string, record func(time.Duration), out io.Writer) error {
	var history []historyEntry
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		start := time.Now()
		reply, err := sendTurn(ctx, client, cfg.baseURL, chatRequest{
			ConversationID: convID,
			Message:        text,
			History:        history,
		})
		if err != nil {
			return fmt.Errorf("conversation %s turn %d: %w", convID, i+1, err)
		}
		elapsed := time.Since(start)
		record(elapsed)
		if cfg.verbose {
			fmt.Fprintf(out, "chatload: %s turn %d/%d %s reply_chars=%d\n", convID, i+1, cfg.turns, elapsed.Round(time.Millisecond), len(reply))
		}
		history = append(history,
			historyEntry{Role: "user", Content: text},
			historyEntry{Role: "assistant", Content: reply},
		)
	}
	return verifyConversation(ctx, client, cfg.baseURL, convID, cfg.turns)
}

func sendTurn(ctx context.Context, client *http.Client, baseURL string, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
	}
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", fmt.Errorf("empty response")
	}
	return resp.Response, nil
}

func verifyConversation(ctx context.Context, client *http.Client, baseURL, convID string, turns int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/conversation/"+url.PathEscape(convID), nil)
	if err != nil {
		return err
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("conversation %s: HTTP %d", convID, res.StatusCode)
	}
	var msgs []storedMessage
	if err := json.NewDecoder(io.LimitReader(res.Body, 8<<20)).Decode(&msgs); err != nil {
		return fmt.Errorf("conversation %s: %w", convID, err)
	}
	return checkTranscript(msgs, turns)
}

// checkTranscript expects strictly alternating user/assistant pairs with
// non-decreasing timestamps.
func checkTranscript(msgs []storedMessage, turns int) error {
	if len(msgs) != 2*turns {
		return fmt.Errorf("stored %d messages, want %d", len(msgs), 2*turns)
	}
	for i, m := range msgs {
		want := "user"
		if i%2 == 1 {
			want = "assistant"
		}
		if m.Role != want {
			return fmt.Errorf("message %d role = %q, want %q", i, m.Role, want)
		}
		if i > 0 && m.Timestamp < msgs[i-1].Timestamp {
			return fmt.Errorf("message %d timestamp %d before %d", i, m.Timestamp, msgs[i-1].Timestamp)
		}
	}
	return nil
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q*float64(len(sorted)-1) + 0.5)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx].Round(time.Millisecond)
}
