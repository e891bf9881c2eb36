package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockDash/internal/model"
	"StockDash/internal/recorder"
)

// FormatForecast formats a single-ticker projection reply.
func FormatForecast(ticker string, s *model.Summary, fc *model.Forecast, warnings []string, now time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s</b> | %s\n\n", html.EscapeString(ticker), now.Format("2006-01-02 15:04")))

	if s == nil {
		b.WriteString("No data available.\n")
	} else {
		b.WriteString(fmt.Sprintf("Last: %s (%s, %+.2f%%)\n", model.FormatPrice(s.Last), model.FormatChange(s.Change), s.ChangePct))
		b.WriteString(fmt.Sprintf("Range: %s ~ %s\n", model.FormatPrice(s.Low), model.FormatPrice(s.High)))
		if s.SMA20 != nil {
			b.WriteString(fmt.Sprintf("SMA20: %s\n", model.FormatPrice(*s.SMA20)))
		}
		if s.RSI14 != nil {
			b.WriteString(fmt.Sprintf("RSI14: %.1f\n", *s.RSI14))
		}
	}

	if fc != nil && len(fc.Points) > 0 {
		last := fc.Points[len(fc.Points)-1]
		b.WriteString(fmt.Sprintf("\n🔮 <b>Forecast</b> (%s): %s on %s\n",
			fc.Method, model.FormatPrice(last.Value), last.Time.Format(model.DateLayout)))
	}

	for _, w := range warnings {
		b.WriteString(fmt.Sprintf("\n⚠️ %s", html.EscapeString(w)))
	}
	return b.String()
}

// FormatSnapshots formats one scheduled watchlist run.
func FormatSnapshots(snaps []recorder.Snapshot, failed []string, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🕒 <b>StockDash snapshot</b> | %s\n\n", now.Format("2006-01-02 15:04")))
	if len(snaps) == 0 && len(failed) == 0 {
		b.WriteString("Watchlist is empty.")
		return b.String()
	}
	for _, s := range snaps {
		delta := 0.0
		if s.LastPrice != 0 {
			delta = (s.Forecast - s.LastPrice) / s.LastPrice * 100
		}
		b.WriteString(fmt.Sprintf("%s: %s → %s (%+.2f%%, %s)\n",
			html.EscapeString(s.Ticker), model.FormatPrice(s.LastPrice), model.FormatPrice(s.Forecast), delta, s.Method))
	}
	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ No data: %s", html.EscapeString(strings.Join(failed, ", "))))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Commands:\n" +
		"/forecast &lt;TICKER&gt; - summary and projection for a ticker\n" +
		"/snapshot - run the watchlist snapshot now\n" +
		"/help - show this message"
}
