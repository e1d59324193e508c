// Package agent sequences lead discovery: search, persist, summarize.
// The sequence is a fixed two-tool pipeline; an LLM coordinator may drive
// it when configured, but a deterministic run of the same tools is equally
// valid and is the fallback.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rapidreach/lead-finder/internal/dedup"
	"github.com/rapidreach/lead-finder/internal/model"
	"github.com/rapidreach/lead-finder/internal/notify"
	"github.com/rapidreach/lead-finder/internal/search"
	"github.com/rapidreach/lead-finder/internal/store"
	"github.com/rapidreach/lead-finder/pkg/anthropic"
)

// DefaultMaxSteps bounds the coordinator loop so a confused model cannot
// spin tool calls forever.
const DefaultMaxSteps = 8

// Agent runs discovery requests end to end.
type Agent struct {
	finder   *search.Finder
	store    store.Store
	memory   *store.MemoryStore
	notifier *notify.Notifier
	llm      anthropic.Client // nil: deterministic orchestration
	model    string
	maxSteps int
	defaults model.SearchDefaults
	log      *zap.Logger
}

// Options configures an Agent.
type Options struct {
	// LLM drives the tool sequence when non-nil; otherwise the agent runs
	// the same tools deterministically.
	LLM      anthropic.Client
	Model    string
	MaxSteps int
	// Defaults fills unset request fields before a run.
	Defaults model.SearchDefaults
}

// New creates an Agent.
func New(finder *search.Finder, st store.Store, memory *store.MemoryStore, notifier *notify.Notifier, opts Options) *Agent {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Agent{
		finder:   finder,
		store:    st,
		memory:   memory,
		notifier: notifier,
		llm:      opts.LLM,
		model:    opts.Model,
		maxSteps: maxSteps,
		defaults: opts.Defaults,
		log:      zap.L().With(zap.String("component", "agent")),
	}
}

// Run executes one discovery request. It emits search_started before any
// tool call, search_completed with the full deduplicated batch, then one
// lead_found per lead. On failure it emits an error event and returns the
// error; callers convert it into the error envelope, never a panic or 500.
func (a *Agent) Run(ctx context.Context, req model.FindLeadsRequest) (*model.FindLeadsResponse, error) {
	req.Normalize(a.defaults)

	a.notifier.Send(ctx, req.CallbackURL, notify.Event{
		Event:   notify.EventSearchStarted,
		Message: fmt.Sprintf("Starting lead search in %s", req.City),
		Data:    map[string]any{"city": req.City},
	})

	runner := newToolRunner(a.finder, a.store)

	summary, err := a.orchestrate(ctx, req, runner)
	if err != nil {
		a.log.Error("lead finding failed", zap.String("city", req.City), zap.Error(err))
		a.notifier.Send(ctx, req.CallbackURL, notify.Event{
			Event:   notify.EventError,
			Message: fmt.Sprintf("Lead search failed: %v", err),
		})
		return nil, err
	}

	unique := dedup.Merge(runner.collected)

	// The coordinator is instructed to persist before summarizing; if it
	// returned without doing so, persist the batch here.
	if !runner.persisted {
		runner.storeLeads(ctx, rawLeads(unique))
	}

	a.memory.Put(unique)

	raw := rawLeads(unique)
	a.notifier.Send(ctx, req.CallbackURL, notify.Event{
		Event:   notify.EventSearchCompleted,
		Message: fmt.Sprintf("Found %d leads in %s", len(unique), req.City),
		Data: map[string]any{
			"city":        req.City,
			"total_leads": len(unique),
			"leads":       raw,
		},
	})
	for _, lead := range unique {
		a.notifier.Send(ctx, req.CallbackURL, notify.Event{
			Event:        notify.EventLeadFound,
			BusinessID:   lead.PlaceID,
			BusinessName: lead.BusinessName,
			Status:       string(lead.LeadStatus),
			Message:      fmt.Sprintf("Discovered: %s — %s", lead.BusinessName, lead.Address),
			Data:         map[string]any{"lead": lead.ToRaw()},
		})
	}

	return &model.FindLeadsResponse{
		Status:       "success",
		City:         req.City,
		TotalLeads:   len(unique),
		Leads:        raw,
		AgentSummary: summary,
		Mock:         runner.mock,
	}, nil
}

// orchestrate drives search then persistence and returns the run summary.
func (a *Agent) orchestrate(ctx context.Context, req model.FindLeadsRequest, runner *toolRunner) (string, error) {
	if a.llm == nil {
		return a.runDeterministic(ctx, req, runner)
	}
	return a.runToolLoop(ctx, req, runner)
}

// runDeterministic invokes the two tools directly in their fixed order.
func (a *Agent) runDeterministic(ctx context.Context, req model.FindLeadsRequest, runner *toolRunner) (string, error) {
	result, err := runner.findBusinesses(ctx, findBusinessesArgs{
		City:          req.City,
		BusinessTypes: req.BusinessTypes,
		RadiusKM:      req.RadiusKM,
		MaxResults:    req.MaxResults,
		ExcludeChains: *req.ExcludeChains,
		MinRating:     req.MinRating,
	})
	if err != nil {
		return "", err
	}

	report := runner.storeLeads(ctx, result.Leads)
	return summarize(req.City, result, report), nil
}

// runToolLoop lets the configured model drive the tool sequence, bounded
// by the step budget. Budget exhaustion is not an error: whatever the
// tools gathered so far is surfaced.
func (a *Agent) runToolLoop(ctx context.Context, req model.FindLeadsRequest, runner *toolRunner) (string, error) {
	instructions := fmt.Sprintf(
		"Find business leads with these parameters:\n- City: %s\n- Business types: %s\n- Radius: %d km\n- Max results: %d\n- Exclude chains: %t\n- Min rating: %.1f\n",
		req.City, jsonList(req.BusinessTypes), req.RadiusKM, req.MaxResults, *req.ExcludeChains, req.MinRating,
	)

	messages := []anthropic.Message{anthropic.NewTextMessage("user", instructions)}
	usage := anthropic.TokenUsage{}

	for step := 0; step < a.maxSteps; step++ {
		resp, err := a.llm.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.model,
			MaxTokens: 2048,
			System:    coordinatorPrompt,
			Messages:  messages,
			Tools:     toolDefs(),
		})
		if err != nil {
			return "", eris.Wrap(err, "agent: coordinator call")
		}
		usage.Add(resp.Usage)

		uses := resp.ToolUses()
		if resp.StopReason != "tool_use" || len(uses) == 0 {
			usage.LogCost(a.model, "discovery")
			return resp.Text(), nil
		}

		messages = append(messages, resp.AsMessage())
		for _, use := range uses {
			output, err := runner.dispatch(ctx, use.ToolName, use.ToolInput)
			if err != nil {
				a.log.Warn("tool call failed",
					zap.String("tool", use.ToolName),
					zap.Error(err),
				)
				messages = append(messages, anthropic.NewToolResultMessage(use.ToolUseID, err.Error(), true))
				continue
			}
			messages = append(messages, anthropic.NewToolResultMessage(use.ToolUseID, output, false))
		}
	}

	a.log.Warn("step budget exhausted", zap.Int("max_steps", a.maxSteps))
	usage.LogCost(a.model, "discovery")
	return fmt.Sprintf("Discovery stopped after %d steps; %d leads gathered so far.", a.maxSteps, len(runner.collected)), nil
}

// summarize produces the deterministic run summary: totals, a per-type
// breakdown, and the upload outcome.
func summarize(city string, result *model.SearchResult, report *model.UploadReport) string {
	byType := make(map[string]int)
	for _, lead := range result.Leads {
		byType[lead.BusinessType]++
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s: %d", t, byType[t]))
	}
	breakdown := "none"
	if len(parts) > 0 {
		breakdown = strings.Join(parts, ", ")
	}

	summary := fmt.Sprintf("Found %d leads without websites in %s. Breakdown: %s. Persisted %d leads (%d errors).",
		result.Total, city, breakdown, report.Uploaded, len(report.Errors))
	if result.Mock {
		summary += " Results are synthetic: no search provider credential is configured."
	}
	return summary
}

func rawLeads(leads []model.Lead) []model.RawLead {
	raw := make([]model.RawLead, len(leads))
	for i, lead := range leads {
		raw[i] = lead.ToRaw()
	}
	return raw
}

func jsonList(items []string) string {
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
