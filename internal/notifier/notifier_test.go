package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

func TestFormatForecast(t *testing.T) {
	sma := 2410.456
	s := &model.Summary{Last: 2450.1, Change: 50.1, ChangePct: 2.1, High: 2460, Low: 2390, SMA20: &sma}
	fc := &model.Forecast{Method: "random_walk", Points: []model.Point{
		{Time: time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC), Value: 2461.239},
	}}
	msg := FormatForecast("RELIANCE.BO", s, fc, []string{"a <warning>"}, time.Date(2022, 1, 8, 9, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"<b>RELIANCE.BO</b>",
		"Last: 2450.10 (+50.10, +2.10%)",
		"Range: 2390.00 ~ 2460.00",
		"SMA20: 2410.46",
		"(random_walk): 2461.24 on 2022-01-10",
		"a &lt;warning&gt;",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "RSI14") {
		t.Error("RSI14 should be omitted when nil")
	}
}

func TestFormatForecastNoData(t *testing.T) {
	msg := FormatForecast("AAPL", nil, nil, nil, time.Now())
	if !strings.Contains(msg, "No data available") || strings.Contains(msg, "Forecast") {
		t.Errorf("message = %s", msg)
	}
}

func TestFormatSnapshots(t *testing.T) {
	snaps := []recorder.Snapshot{{Ticker: "AAPL", LastPrice: 200, Forecast: 202, Method: "model"}}
	msg := FormatSnapshots(snaps, []string{"XYZ"}, time.Now())
	if !strings.Contains(msg, "AAPL: 200.00 → 202.00 (+1.00%, model)") {
		t.Errorf("message = %s", msg)
	}
	if !strings.Contains(msg, "No data: XYZ") {
		t.Errorf("message = %s", msg)
	}
	if !strings.Contains(FormatSnapshots(nil, nil, time.Now()), "empty") {
		t.Error("empty watchlist message")
	}
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "TOKEN", ChatID: "42", APIBase: srv.URL, Client: srv.Client()}
	if err := n.Send("hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" || got["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", got)
	}
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "T", ChatID: "1", APIBase: srv.URL, Client: srv.Client()}
	if err := n.sendWithBackoff(context.Background(), "hi", 3, time.Millisecond); err != nil {
		t.Fatalf("sendWithBackoff: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}

	calls.Store(-100)
	err := n.sendWithBackoff(context.Background(), "hi", 1, time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "retries exhausted") {
		t.Errorf("err = %v", err)
	}
}

func TestStartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		polls   atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polls.Add(1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /help "}},{"update_id":8}]}`))
				return
			}
			if r.URL.Query().Get("offset") != "9" {
				t.Errorf("offset = %s, want 9", r.URL.Query().Get("offset"))
			}
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p map[string]string
			json.NewDecoder(r.Body).Decode(&p)
			mu.Lock()
			replies = append(replies, p["text"])
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := &TelegramNotifier{BotToken: "T", ChatID: "1", APIBase: srv.URL, Client: srv.Client(), PollSeconds: 1}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.StartPolling(ctx, func(_ context.Context, cmd string) string { return "echo " + cmd })
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for polls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("polling did not advance")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(replies) != 1 || replies[0] != "echo /help" {
		t.Errorf("replies = %v", replies)
	}
}
