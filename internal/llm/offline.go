package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sanjuz-cas/SURF/internal/models"
)

// Offline is the Reasoner used when no real provider is configured. It
// drives the same tool protocol as a live model, with rule-based
// categorization, so the whole pipeline can run without credentials.
type Offline struct{}

func (o *Offline) Reason(ctx context.Context, req Request) (Response, error) {
	role := strings.ToLower(req.Role)
	switch {
	case strings.Contains(role, "unification"):
		return o.ingest(req), nil
	case strings.Contains(role, "analyst"):
		return o.analyze(req), nil
	case strings.Contains(role, "product manager"):
		return o.prioritize(req), nil
	case strings.Contains(role, "risk"):
		return o.assessRisk(req), nil
	case strings.Contains(role, "delivery"):
		return o.deliver(req), nil
	}
	return Response{}, fmt.Errorf("offline reasoner: unrecognized role %q", req.Role)
}

func (o *Offline) ingest(req Request) Response {
	if len(req.History) == 0 {
		return call("get_all_feedback", nil)
	}
	items := decodeItems(req.History[0].Result.Payload["items"])
	seen := map[string]bool{}
	var sources []string
	for _, item := range items {
		if !seen[item.Source] {
			seen[item.Source] = true
			sources = append(sources, item.Source)
		}
	}
	sort.Strings(sources)
	sample := items
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return final(map[string]any{
		"total_items":  len(items),
		"sources":      sources,
		"status":       "ready_for_analysis",
		"sample_items": sample,
	})
}

func (o *Offline) analyze(req Request) Response {
	if len(req.History) == 0 {
		return call("get_unprocessed_feedback", map[string]any{"limit": 50})
	}
	items := decodeItems(req.History[0].Result.Payload["items"])
	next := len(req.History) - 1
	if next < len(items) {
		category, score := classify(items[next].RawText)
		return call("update_item_score", map[string]any{
			"feedback_id": items[next].ID,
			"category":    category,
			"score":       score,
		})
	}

	distribution := map[string]int{}
	var scores []float64
	var sum float64
	for _, h := range req.History[1:] {
		category, _ := h.Invocation.Arguments["category"].(string)
		score, _ := h.Invocation.Arguments["score"].(float64)
		distribution[category]++
		scores = append(scores, score)
		sum += score
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	if len(scores) > 3 {
		scores = scores[:3]
	}
	avg := 0.0
	if n := len(req.History) - 1; n > 0 {
		avg = sum / float64(n)
	}
	return final(map[string]any{
		"total_analyzed":        len(items),
		"avg_score":             avg,
		"category_distribution": distribution,
		"top_3_scores":          scores,
		"status":                "analysis_complete",
	})
}

func (o *Offline) prioritize(req Request) Response {
	if len(req.History) == 0 {
		return call("read_top_items", map[string]any{"limit": 3})
	}
	items := decodeItems(req.History[0].Result.Payload["items"])
	top := make([]map[string]any, 0, len(items))
	for i, item := range items {
		top = append(top, map[string]any{
			"feedback_id": item.ID,
			"rank":        i + 1,
			"title":       title(item.RawText),
			"category":    item.Category,
			"score":       item.Score,
			"team":        teamFor(item.Category),
			"action_plan": map[string]any{
				"immediate_action": "Triage and reproduce, then assign an owner",
				"timeline":         "2 weeks",
				"success_metric":   "Issue resolved and verified with the reporting customer",
				"dependencies":     teamFor(item.Category) + " capacity",
			},
		})
	}
	total := totalAnalyzedFrom(req.Instruction, len(items))
	return final(map[string]any{
		"total_analyzed": total,
		"top_items":      top,
		"status":         "ready_for_risk_assessment",
	})
}

func (o *Offline) assessRisk(req Request) Response {
	report := embeddedObject(req.Instruction, "top_items")
	items, _ := report["top_items"].([]any)
	var worstCase float64
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		score, _ := item["score"].(float64)
		loss := score * 15000
		worstCase += loss
		item["pre_mortem_forecast"] = fmt.Sprintf(
			"Estimated 90-day impact if ignored: churn risk on affected accounts, ~$%.0fK ARR exposure, plus support load growth.",
			loss/1000)
	}
	total := totalAnalyzedFrom(req.Instruction, len(items))
	return final(map[string]any{
		"total_analyzed":      total,
		"top_items":           items,
		"total_risk_estimate": fmt.Sprintf("$%.0fK over 90 days", worstCase/1000),
		"status":              "ready_for_delivery",
	})
}

func (o *Offline) deliver(req Request) Response {
	report := embeddedObject(req.Instruction, "top_items")
	payload := map[string]any{
		"items":               report["top_items"],
		"total_analyzed":      report["total_analyzed"],
		"total_risk_estimate": report["total_risk_estimate"],
		"generated_at":        time.Now().UTC().Format(time.RFC3339),
	}
	message, _ := json.Marshal(payload)

	if len(req.History) == 0 {
		return call("post_message", map[string]any{"message": string(message)})
	}

	status := "success"
	if req.History[0].Result.Method == models.MethodLocalFallback {
		status = "fallback_logged"
	}
	preview := string(message)
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return final(map[string]any{
		"slack_delivery_status": status,
		"message_preview":       preview,
		"delivery_timestamp":    time.Now().UTC().Format(time.RFC3339),
		"final_payload":         payload,
	})
}

func call(operation string, args map[string]any) Response {
	return Response{ToolCalls: []models.ToolInvocation{{Operation: operation, Arguments: args}}}
}

func final(payload map[string]any) Response {
	b, _ := json.Marshal(payload)
	return Response{Text: string(b)}
}

// decodeItems accepts either in-process []models.FeedbackRecord or the
// JSON-decoded []any form a text round-trip produces.
func decodeItems(v any) []models.FeedbackRecord {
	if items, ok := v.([]models.FeedbackRecord); ok {
		return items
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var items []models.FeedbackRecord
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	return items
}

func classify(text string) (string, float64) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "security") || strings.Contains(t, "vulnerab"):
		return models.CategoryBug, 9.5
	case strings.Contains(t, "crash") || strings.Contains(t, "broken") ||
		strings.Contains(t, "error") || strings.Contains(t, "fail"):
		return models.CategoryBug, 8.0
	case strings.Contains(t, "slow") || strings.Contains(t, "performance") ||
		strings.Contains(t, "timeout"):
		return models.CategoryBug, 7.5
	case strings.Contains(t, "confus") || strings.Contains(t, "hard to") ||
		strings.Contains(t, "design") || strings.Contains(t, "layout"):
		return models.CategoryUX, 5.0
	case strings.Contains(t, "feature") || strings.Contains(t, "export") ||
		strings.Contains(t, "add ") || strings.Contains(t, "would be"):
		return models.CategoryFeature, 6.0
	}
	return models.CategoryOther, 3.0
}

func teamFor(category string) string {
	switch category {
	case models.CategoryBug:
		return "Engineering"
	case models.CategoryUX:
		return "UX"
	case models.CategoryFeature:
		return "Product"
	}
	return "Support"
}

func title(text string) string {
	t := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if len(t) > 80 {
		t = t[:80]
	}
	return t
}

var totalAnalyzedRe = regexp.MustCompile(`"total_analyzed"\s*:\s*(\d+)`)

func totalAnalyzedFrom(instruction string, fallback int) int {
	m := totalAnalyzedRe.FindStringSubmatch(instruction)
	if m == nil {
		return fallback
	}
	var n int
	fmt.Sscanf(m[1], "%d", &n)
	return n
}

// embeddedObject finds the first balanced JSON object in s that contains the
// given key, e.g. a prior step's payload interpolated into the instruction.
func embeddedObject(s, key string) map[string]any {
	for start := 0; ; {
		idx := strings.IndexByte(s[start:], '{')
		if idx == -1 {
			return map[string]any{}
		}
		idx += start
		depth := 0
		end := -1
		inString := false
		for i := idx; i < len(s); i++ {
			c := s[i]
			if inString {
				if c == '\\' {
					i++
				} else if c == '"' {
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end != -1 {
				break
			}
		}
		if end == -1 {
			return map[string]any{}
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(s[idx:end+1]), &obj); err == nil {
			if _, ok := obj[key]; ok {
				return obj
			}
		}
		start = idx + 1
	}
}
