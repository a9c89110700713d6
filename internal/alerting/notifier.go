package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Advisory captures one day's shift recommendation worth telling someone
// about.
type Advisory struct {
	Day      time.Time
	Strategy string
	CISource string
	// TargetHours are the recommended hours of day (0-23), ascending.
	TargetHours []int
	// Emission totals in gCO2.
	BaselineEmissions float64
	ShiftedEmissions  float64
	// ReductionPct is the achievable reduction and ThresholdPct the configured
	// minimum that triggered this advisory, both in percent.
	ReductionPct float64
	ThresholdPct float64
}

// Notifier delivers shift advisories.
type Notifier interface {
	Notify(ctx context.Context, advisory Advisory) error
}

// TelegramNotifier pushes advisories through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "advisory_telegram").Logger(),
	}
}

// Notify calls the sendMessage API with the rendered advisory.
func (n *TelegramNotifier) Notify(ctx context.Context, advisory Advisory) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(advisory),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("day", advisory.Day).
		Str("strategy", advisory.Strategy).
		Float64("reduction_pct", advisory.ReductionPct).
		Msg("advisory sent (Telegram)")
	return nil
}

func renderMessage(advisory Advisory) string {
	builder := strings.Builder{}
	builder.WriteString("[Load Shift Advisory]\n")
	builder.WriteString(fmt.Sprintf("Day: %s\n", advisory.Day.UTC().Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Strategy: %s (%s intensity data)\n", advisory.Strategy, advisory.CISource))
	builder.WriteString(fmt.Sprintf("Best hours: %s\n", formatHours(advisory.TargetHours)))
	builder.WriteString(fmt.Sprintf("Baseline: %.0f gCO2\n", advisory.BaselineEmissions))
	builder.WriteString(fmt.Sprintf("Shifted: %.0f gCO2\n", advisory.ShiftedEmissions))
	builder.WriteString(fmt.Sprintf("Reduction: %.2f%% (threshold %.2f%%)\n", advisory.ReductionPct, advisory.ThresholdPct))
	return builder.String()
}

func formatHours(hours []int) string {
	if len(hours) == 0 {
		return "-"
	}
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%02d:00", h)
	}
	return strings.Join(parts, ", ")
}

var _ Notifier = (*TelegramNotifier)(nil)
