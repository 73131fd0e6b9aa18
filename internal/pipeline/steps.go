package pipeline

import "fmt"

// Step names in execution order.
const (
	StepIngest     = "ingest"
	StepAnalyze    = "analyze"
	StepPrioritize = "prioritize"
	StepAssessRisk = "assess_risk"
	StepDeliver    = "deliver"
)

// BuildSteps returns the five pipeline stages in fixed order. Each stage's
// template references only its immediate predecessor; the ledger still gives
// every stage uniform read access to all prior outputs.
func BuildSteps(topItems, maxAttempts int) []*Step {
	return []*Step{
		{
			Name:         StepIngest,
			Role:         "Data Unification Specialist",
			Capabilities: []string{"get_all_feedback"},
			MaxAttempts:  maxAttempts,
			Contract:     []string{"total_items", "sources", "status", "sample_items"},
			Template: `Retrieve all raw customer feedback and verify it is ready for analysis.
1. Call get_all_feedback to retrieve every feedback item.
2. Verify data integrity (non-empty text, valid source) and count the items.
3. List the unique feedback sources.

Produce a JSON report with:
- total_items: number of feedback items
- sources: list of unique sources
- status: "ready_for_analysis"
- sample_items: the first 3 items for verification`,
		},
		{
			Name:         StepAnalyze,
			Role:         "Category & Scoring Analyst",
			Capabilities: []string{"get_unprocessed_feedback", "update_item_score"},
			MaxAttempts:  maxAttempts,
			Contract: []string{"total_analyzed", "avg_score", "category_distribution",
				"top_3_scores", "status"},
			Template: `The ingestion stage reported: {{step:ingest.output}}

Analyze every unprocessed feedback item.
1. Call get_unprocessed_feedback to read the items awaiting analysis.
2. Categorize each item as Bug, Feature, UX, or Other.
3. Calculate a severity-volume score (0.0-10.0 float). Guidance: security
   issues 9-10, enterprise-customer issues 7-10, performance degradation 7-9,
   critical bugs 7-9, UX problems 4-6, feature requests 3-8; weight up for
   higher customer tier and urgency.
4. Record each verdict with update_item_score.

Produce a JSON report with:
- total_analyzed: count of items you scored
- avg_score: float
- category_distribution: counts per category, summing to total_analyzed
- top_3_scores: the three highest scores you assigned
- status: "analysis_complete"`,
		},
		{
			Name:         StepPrioritize,
			Role:         "Strategic Product Manager",
			Capabilities: []string{"read_top_items"},
			MaxAttempts:  maxAttempts,
			Contract:     []string{"total_analyzed", "top_items", "status"},
			Template: fmt.Sprintf(`The analysis stage reported: {{step:analyze.output}}

Select the highest-impact feedback and plan the response.
1. Call read_top_items with limit=%d.
2. For EACH returned item build an entry:
   {"feedback_id": int, "rank": int, "title": "concise title, max 100 chars",
    "category": "Bug|Feature|UX|Other", "score": float,
    "team": "Engineering|Product|UX|Support",
    "action_plan": {"immediate_action": "...", "timeline": "...",
                    "success_metric": "...", "dependencies": "..."}}
3. Rank entries by priority, best first. If fewer than %d items exist,
   plan for exactly the items available.

Produce a JSON report with:
- total_analyzed: carry the total from the analysis stage
- top_items: the ranked entries
- status: "ready_for_risk_assessment"`, topItems, topItems),
		},
		{
			Name:        StepAssessRisk,
			Role:        "90-Day Financial Risk Assessor",
			MaxAttempts: maxAttempts,
			Contract:    []string{"total_analyzed", "top_items", "total_risk_estimate", "status"},
			Template: `The prioritization stage reported: {{step:prioritize.output}}

Conduct a pre-mortem analysis on every prioritized item: what happens if we
ignore it for 90 days? For EACH item estimate customer churn risk (% and ARR
loss), revenue impact from lost deals, support cost increases, and brand
damage. Be specific with dollar amounts and percentages; use conservative
estimates based on severity and customer tier.

Produce a JSON report that repeats the prioritization data with each item
enriched by a non-empty "pre_mortem_forecast" string, plus:
- total_analyzed: carried forward
- top_items: the enriched entries
- total_risk_estimate: sum of worst-case scenarios, as a string
- status: "ready_for_delivery"`,
		},
		{
			Name:         StepDeliver,
			Role:         "Workflow Automation & Delivery Specialist",
			Capabilities: []string{"post_message", "save_prioritized_output"},
			MaxAttempts:  maxAttempts,
			Contract: []string{"slack_delivery_status", "message_preview",
				"delivery_timestamp", "final_payload"},
			Template: `The risk assessment stage reported: {{step:assess_risk.output}}

Deliver the final prioritized report to the team.
1. Format the data as a JSON payload: {"items": [...], "total_analyzed": N,
   "total_risk_estimate": "...", "generated_at": "ISO timestamp"} where each
   item carries rank, title, category, score, team, pre_mortem_forecast, and
   action_plan.
2. Call post_message with that payload as the message.

Produce a JSON report with:
- slack_delivery_status: "success" or "fallback_logged"
- message_preview: first 200 characters of the payload
- delivery_timestamp: ISO timestamp
- final_payload: the complete payload you sent`,
		},
	}
}
