package agent

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rapidreach/lead-finder/internal/model"
	"github.com/rapidreach/lead-finder/internal/search"
	"github.com/rapidreach/lead-finder/internal/store"
	"github.com/rapidreach/lead-finder/pkg/anthropic"
)

const (
	toolFindBusinesses = "find_businesses"
	toolStoreLeads     = "store_leads"
)

// toolDefs declares the two callables exposed to the coordinator model.
func toolDefs() []anthropic.Tool {
	return []anthropic.Tool{
		{
			Name:        toolFindBusinesses,
			Description: "Search for local businesses without websites in a given city. Returns JSON with discovered leads.",
			Properties: map[string]any{
				"city":           map[string]any{"type": "string", "description": "City to search, e.g. \"Austin, TX\""},
				"business_types": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"radius_km":      map[string]any{"type": "integer"},
				"max_results":    map[string]any{"type": "integer"},
				"exclude_chains": map[string]any{"type": "boolean"},
				"min_rating":     map[string]any{"type": "number"},
			},
			Required: []string{"city"},
		},
		{
			Name:        toolStoreLeads,
			Description: "Persist a JSON list of leads. Also uploads no-website leads to the dedicated priority table. Returns an upload summary.",
			Properties: map[string]any{
				"leads": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			},
			Required: []string{"leads"},
		},
	}
}

// toolRunner executes tool calls for one discovery run and records what
// they produced, so the agent reports only what the tools returned.
type toolRunner struct {
	finder *search.Finder
	store  store.Store
	log    *zap.Logger

	collected []model.RawLead
	mock      bool
	persisted bool
}

func newToolRunner(finder *search.Finder, st store.Store) *toolRunner {
	return &toolRunner{
		finder: finder,
		store:  st,
		log:    zap.L().With(zap.String("component", "agent.tools")),
	}
}

type findBusinessesArgs struct {
	City          string   `json:"city"`
	BusinessTypes []string `json:"business_types"`
	RadiusKM      int      `json:"radius_km"`
	MaxResults    int      `json:"max_results"`
	ExcludeChains bool     `json:"exclude_chains"`
	MinRating     float64  `json:"min_rating"`
}

type storeLeadsArgs struct {
	Leads []model.RawLead `json:"leads"`
}

// dispatch runs one named tool call and returns its JSON result.
func (t *toolRunner) dispatch(ctx context.Context, name string, input json.RawMessage) (string, error) {
	switch name {
	case toolFindBusinesses:
		var args findBusinessesArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return "", eris.Wrap(err, "agent: parse find_businesses args")
		}
		result, err := t.findBusinesses(ctx, args)
		if err != nil {
			return "", err
		}
		out, err := json.Marshal(result)
		if err != nil {
			return "", eris.Wrap(err, "agent: marshal search result")
		}
		return string(out), nil

	case toolStoreLeads:
		var args storeLeadsArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return "", eris.Wrap(err, "agent: parse store_leads args")
		}
		report := t.storeLeads(ctx, args.Leads)
		out, err := json.Marshal(report)
		if err != nil {
			return "", eris.Wrap(err, "agent: marshal upload report")
		}
		return string(out), nil

	default:
		return "", eris.Errorf("agent: unknown tool %s", name)
	}
}

// findBusinesses runs the search tool and records the discovered leads.
func (t *toolRunner) findBusinesses(ctx context.Context, args findBusinessesArgs) (*model.SearchResult, error) {
	result, err := t.finder.Find(ctx, search.Params{
		City:               args.City,
		BusinessTypes:      args.BusinessTypes,
		RadiusKM:           args.RadiusKM,
		MaxResults:         args.MaxResults,
		ExcludeChains:      args.ExcludeChains,
		MinRating:          args.MinRating,
		OnlyWithoutWebsite: true,
	})
	if err != nil {
		return nil, err
	}

	t.collected = append(t.collected, result.Leads...)
	t.mock = t.mock || result.Mock
	return result, nil
}

// storeLeads validates raw leads and writes them to the general table and,
// for leads without a website, the priority table. Both sinks accept
// partial success; their order is unspecified so they run concurrently.
func (t *toolRunner) storeLeads(ctx context.Context, raw []model.RawLead) *model.UploadReport {
	var leads, noWebsite []model.Lead
	for _, r := range raw {
		lead, err := r.Validate()
		if err != nil {
			t.log.Debug("skipping invalid lead", zap.Error(err))
			continue
		}
		leads = append(leads, lead)
		if !lead.HasWebsite {
			noWebsite = append(noWebsite, lead)
		}
	}

	var mainReport *model.UploadReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mainReport = t.store.InsertLeads(gctx, leads)
		return nil
	})
	g.Go(func() error {
		report := t.store.InsertNoWebsiteLeads(gctx, noWebsite)
		if len(report.Errors) > 0 {
			t.log.Warn("no-website insert errors", zap.Strings("errors", report.Errors))
		}
		return nil
	})
	_ = g.Wait()

	t.persisted = true
	return mainReport
}
