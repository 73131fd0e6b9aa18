package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackNotifier posts messages to Slack. Delivery prefers the incoming
// webhook; if the webhook is unset or unreachable and a bot token is
// configured, the Web API (chat.postMessage) is tried next. With neither
// transport reachable the dispatcher's local fallback log takes over; a
// missing credential must never abort the pipeline.
type SlackNotifier struct {
	WebhookURL string
	BotToken   string
	APIBaseURL string // Web API base, defaults to https://slack.com
	Channel    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// RegisterSlackOps wires the notification operation onto the registry.
func RegisterSlackOps(reg *Registry, n *SlackNotifier) error {
	channel := n.Channel
	if channel == "" {
		channel = "#customer-feedback"
	}
	return reg.Register(Operation{
		Name:        "post_message",
		Doc:         "deliver a message to the team Slack channel",
		Deliverable: true,
		Schema: Schema{Params: []Param{
			{Name: "message", Type: TypeString, Required: true, Doc: "JSON report or plain text"},
			{Name: "channel", Type: TypeString, Default: channel},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			return n.post(ctx, args["message"].(string), args["channel"].(string))
		},
	})
}

func (n *SlackNotifier) post(ctx context.Context, message, channel string) (map[string]any, error) {
	payload := formatMessage(message)

	if n.WebhookURL != "" {
		res, err := n.postWebhook(ctx, payload, channel)
		if err == nil || !errors.Is(err, ErrTransport) || n.BotToken == "" {
			return res, err
		}
		// webhook unreachable, try the bot token next
	}
	if n.BotToken != "" {
		return n.postBot(ctx, payload, channel)
	}
	return nil, fmt.Errorf("%w: no slack webhook or bot token configured", ErrTransport)
}

func (n *SlackNotifier) postWebhook(ctx context.Context, payload map[string]any, channel string) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrHandler, err)
	}
	if _, err := n.send(ctx, n.WebhookURL, "", body); err != nil {
		return nil, err
	}
	return delivered("webhook", channel), nil
}

func (n *SlackNotifier) postBot(ctx context.Context, payload map[string]any, channel string) (map[string]any, error) {
	body := map[string]any{"channel": channel}
	for k, v := range payload {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrHandler, err)
	}
	base := n.APIBaseURL
	if base == "" {
		base = "https://slack.com"
	}
	raw, err := n.send(ctx, base+"/api/chat.postMessage", n.BotToken, data)
	if err != nil {
		return nil, err
	}
	// the Web API reports failures in the body with status 200
	var api struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &api); err != nil {
		return nil, fmt.Errorf("%w: decode chat.postMessage reply: %v", ErrTransport, err)
	}
	if !api.OK {
		return nil, fmt.Errorf("%w: chat.postMessage: %s", ErrTransport, api.Error)
	}
	return delivered("bot_api", channel), nil
}

func (n *SlackNotifier) send(ctx context.Context, url, token string, body []byte) ([]byte, error) {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHandler, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := n.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: slack status %d: %s", ErrTransport, resp.StatusCode, data)
	}
	return data, nil
}

func delivered(via, channel string) map[string]any {
	return map[string]any{
		"delivered": true,
		"via":       via,
		"channel":   channel,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

// formatMessage upgrades a JSON priority report into Slack block kit; plain
// text passes through as-is.
func formatMessage(message string) map[string]any {
	var report struct {
		Items []map[string]any `json:"items"`
		Total any              `json:"total_analyzed"`
		Risk  string           `json:"total_risk_estimate"`
	}
	if err := json.Unmarshal([]byte(message), &report); err != nil || len(report.Items) == 0 {
		return map[string]any{"text": message}
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": "Top Priority Customer Feedback"},
		},
		{"type": "divider"},
	}
	for i, item := range report.Items {
		text := fmt.Sprintf("*#%d - %v*\n*Category:* %v | *Score:* %v\n*Team:* %v",
			i+1, item["title"], item["category"], item["score"], item["team"])
		if forecast, ok := item["pre_mortem_forecast"].(string); ok && forecast != "" {
			text += "\n*Financial risk:* " + forecast
		}
		blocks = append(blocks,
			map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": text},
			},
			map[string]any{"type": "divider"},
		)
	}
	footer := fmt.Sprintf("Total items analyzed: %v", report.Total)
	if report.Risk != "" {
		footer += " | Estimated risk: " + report.Risk
	}
	blocks = append(blocks, map[string]any{
		"type":     "context",
		"elements": []map[string]any{{"type": "mrkdwn", "text": footer}},
	})
	return map[string]any{"text": "Top Priority Customer Feedback", "blocks": blocks}
}
