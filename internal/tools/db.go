package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sanjuz-cas/SURF/internal/models"
	"github.com/sanjuz-cas/SURF/internal/store"
)

var categoryEnum = []string{
	models.CategoryBug, models.CategoryFeature, models.CategoryUX, models.CategoryOther,
}

// RegisterDatabaseOps wires the closed set of database operations onto the
// registry. These are the only paths the pipeline has to the store; no step
// ever issues a raw query.
func RegisterDatabaseOps(reg *Registry, st *store.Store) error {
	ops := []Operation{
		{
			Name: "get_all_feedback",
			Doc:  "retrieve every raw feedback item",
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				items, err := st.AllFeedback(ctx)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrTransport, err)
				}
				return itemsPayload(items), nil
			},
		},
		{
			Name: "get_unprocessed_feedback",
			Doc:  "retrieve feedback not yet analyzed",
			Schema: Schema{Params: []Param{
				{Name: "limit", Type: TypeInt, Default: 10, Doc: "max items to return"},
			}},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				items, err := st.UnprocessedFeedback(ctx, args["limit"].(int))
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrTransport, err)
				}
				return itemsPayload(items), nil
			},
		},
		{
			Name: "update_item_score",
			Doc:  "record category and severity-volume score for one item",
			Schema: Schema{Params: []Param{
				{Name: "feedback_id", Type: TypeInt, Required: true},
				{Name: "category", Type: TypeEnum, Required: true, Enum: categoryEnum},
				{Name: "score", Type: TypeFloat, Required: true, Doc: "0.0-10.0"},
			}},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				id := int64(args["feedback_id"].(int))
				category := args["category"].(string)
				score := args["score"].(float64)
				if score < 0 || score > 10 {
					return nil, fmt.Errorf("%w: score %v outside 0.0-10.0", ErrInvalidArguments, score)
				}
				if err := st.UpdateItemScore(ctx, id, category, score); err != nil {
					if err == store.ErrNotFound {
						return nil, fmt.Errorf("%w: feedback %d not found", ErrHandler, id)
					}
					return nil, fmt.Errorf("%w: %v", ErrTransport, err)
				}
				return map[string]any{
					"feedback_id": id,
					"category":    category,
					"score":       score,
					"message":     fmt.Sprintf("updated feedback %d", id),
				}, nil
			},
		},
		{
			Name: "read_top_items",
			Doc:  "retrieve processed feedback ordered by score, highest first",
			Schema: Schema{Params: []Param{
				{Name: "limit", Type: TypeInt, Default: 3},
			}},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				items, err := st.TopItems(ctx, args["limit"].(int))
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrTransport, err)
				}
				return itemsPayload(items), nil
			},
		},
		{
			Name: "save_prioritized_output",
			Doc:  "persist one prioritized item with its action plan and forecast",
			Schema: Schema{Params: []Param{
				{Name: "feedback_id", Type: TypeInt, Required: true},
				{Name: "rank", Type: TypeInt, Required: true},
				{Name: "title", Type: TypeString, Required: true},
				{Name: "category", Type: TypeEnum, Required: true, Enum: categoryEnum},
				{Name: "score", Type: TypeFloat, Required: true},
				{Name: "team", Type: TypeString, Required: true},
				{Name: "action_plan", Type: TypeString, Required: true, Doc: "JSON object"},
				{Name: "pre_mortem_forecast", Type: TypeString, Required: true},
			}},
			Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				var plan models.ActionPlan
				if err := json.Unmarshal([]byte(args["action_plan"].(string)), &plan); err != nil {
					return nil, fmt.Errorf("%w: action_plan is not valid JSON: %v", ErrInvalidArguments, err)
				}
				item := models.PriorityItem{
					FeedbackID:        int64(args["feedback_id"].(int)),
					Rank:              args["rank"].(int),
					Title:             args["title"].(string),
					Category:          args["category"].(string),
					Score:             args["score"].(float64),
					Team:              args["team"].(string),
					ActionPlan:        plan,
					PreMortemForecast: args["pre_mortem_forecast"].(string),
				}
				id, err := st.SavePrioritizedOutput(ctx, item)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrTransport, err)
				}
				return map[string]any{"id": id, "rank": item.Rank}, nil
			},
		},
	}
	for _, op := range ops {
		if err := reg.Register(op); err != nil {
			return err
		}
	}
	return nil
}

func itemsPayload(items []models.FeedbackRecord) map[string]any {
	return map[string]any{"count": len(items), "items": items}
}
