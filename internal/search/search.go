// Package search discovers local businesses via the Places API, following
// pagination tokens and filtering candidates down to lead-shaped records.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/rapidreach/lead-finder/internal/model"
	"github.com/rapidreach/lead-finder/pkg/places"
)

// MaxPages bounds pagination depth per business type. The provider returns
// at most three pages per query anyway.
const MaxPages = 3

// Params describes one discovery search.
type Params struct {
	City               string
	BusinessTypes      []string
	RadiusKM           int
	MaxResults         int
	ExcludeChains      bool
	MinRating          float64
	OnlyWithoutWebsite bool
}

// Options tunes a Finder.
type Options struct {
	// Chains is the chain-exclusion keyword list; DefaultChains() when nil.
	Chains []string
	// PageTokenDelay is how long to wait before redeeming a continuation
	// token. The provider rejects tokens redeemed immediately.
	PageTokenDelay time.Duration
	// DetailQPS bounds place-details lookups; 0 means no limit.
	DetailQPS float64
}

// Finder runs paginated business searches. A Finder with a nil places
// client operates in mock mode and synthesizes deterministic leads.
type Finder struct {
	client    places.Client
	chains    []string
	pageDelay time.Duration
	details   *rate.Limiter
	log       *zap.Logger
}

// NewFinder creates a Finder backed by the given places client. Pass nil
// to run in mock mode (no provider credential configured).
func NewFinder(client places.Client, opts Options) *Finder {
	chains := opts.Chains
	if chains == nil {
		chains = DefaultChains()
	}
	delay := opts.PageTokenDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	limit := rate.Inf
	if opts.DetailQPS > 0 {
		limit = rate.Limit(opts.DetailQPS)
	}
	return &Finder{
		client:    client,
		chains:    chains,
		pageDelay: delay,
		details:   rate.NewLimiter(limit, 1),
		log:       zap.L().With(zap.String("component", "search")),
	}
}

// Mock reports whether the Finder synthesizes results instead of calling
// the provider.
func (f *Finder) Mock() bool {
	return f.client == nil
}

// Find searches every requested business type in the city, pages through
// results up to MaxPages per type, resolves contact details per candidate,
// and returns filtered lead-shaped records deduplicated within this call.
//
// A page fetch failure ends pagination for that type only; a details
// failure degrades that candidate to "no website known". Neither aborts
// the batch.
func (f *Finder) Find(ctx context.Context, p Params) (*model.SearchResult, error) {
	types := p.BusinessTypes
	if len(types) == 0 {
		types = []string{"local business"}
	}
	if p.MaxResults <= 0 {
		p.MaxResults = 60
	}

	if f.client == nil {
		leads := f.mockResults(p.City, types)
		return &model.SearchResult{Leads: leads, Total: len(leads), City: p.City, Mock: true}, nil
	}

	var leads []model.RawLead
	seen := make(map[string]bool)

	for _, btype := range types {
		if len(leads) >= p.MaxResults {
			break
		}
		leads = f.searchType(ctx, p, btype, seen, leads)
	}

	f.log.Info("search complete",
		zap.String("city", p.City),
		zap.Int("leads", len(leads)),
	)
	return &model.SearchResult{Leads: leads, Total: len(leads), City: p.City}, nil
}

// searchType pages through one business type's results, appending
// surviving candidates to leads.
func (f *Finder) searchType(ctx context.Context, p Params, btype string, seen map[string]bool, leads []model.RawLead) []model.RawLead {
	query := fmt.Sprintf("%s in %s", btype, p.City)

	var token string
	for pageNum := 0; pageNum < MaxPages; pageNum++ {
		if len(leads) >= p.MaxResults {
			break
		}

		var page *places.SearchPage
		var err error
		if pageNum == 0 {
			page, err = f.client.TextSearch(ctx, query, p.RadiusKM*1000)
		} else {
			if err := f.waitPageToken(ctx); err != nil {
				return leads
			}
			page, err = f.client.NextPage(ctx, token)
		}
		if err != nil {
			f.log.Error("page fetch failed",
				zap.String("query", query),
				zap.Int("page", pageNum),
				zap.Error(err),
			)
			break
		}
		if len(page.Results) == 0 {
			break
		}

		for _, place := range page.Results {
			if len(leads) >= p.MaxResults {
				break
			}
			if place.PlaceID == "" || seen[place.PlaceID] {
				continue
			}
			seen[place.PlaceID] = true

			if lead, ok := f.evaluate(ctx, p, btype, place); ok {
				leads = append(leads, lead)
			}
		}

		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return leads
}

// evaluate applies the cheap filters, resolves details for survivors, and
// assembles the lead record.
func (f *Finder) evaluate(ctx context.Context, p Params, btype string, place places.PlaceResult) (model.RawLead, bool) {
	if p.ExcludeChains && isChain(place.Name, f.chains) {
		return model.RawLead{}, false
	}
	if place.Rating < p.MinRating {
		return model.RawLead{}, false
	}

	detail := f.lookupDetails(ctx, place.PlaceID)
	hasWebsite := detail.Website != ""
	if p.OnlyWithoutWebsite && hasWebsite {
		return model.RawLead{}, false
	}

	return model.RawLead{
		PlaceID:      place.PlaceID,
		BusinessName: place.Name,
		Address:      place.FormattedAddress,
		City:         p.City,
		Phone:        detail.FormattedPhoneNumber,
		Website:      detail.Website,
		Rating:       place.Rating,
		TotalRatings: place.UserRatingsTotal,
		BusinessType: btype,
		HasWebsite:   hasWebsite,
		LeadStatus:   string(model.LeadStatusNew),
	}, true
}

// lookupDetails fetches contact details for one place. Failures degrade to
// an empty record: the candidate is kept with no known website.
func (f *Finder) lookupDetails(ctx context.Context, placeID string) places.PlaceDetails {
	if err := f.details.Wait(ctx); err != nil {
		return places.PlaceDetails{}
	}
	detail, err := f.client.Details(ctx, placeID)
	if err != nil {
		f.log.Warn("details lookup failed",
			zap.String("place_id", placeID),
			zap.Error(err),
		)
		return places.PlaceDetails{}
	}
	return *detail
}

// waitPageToken sleeps out the continuation-token validity delay.
func (f *Finder) waitPageToken(ctx context.Context) error {
	timer := time.NewTimer(f.pageDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var typeTitle = cases.Title(language.AmericanEnglish)

// mockResults synthesizes deterministic leads from the city and the first
// three business types, for running the pipeline without a credential.
func (f *Finder) mockResults(city string, types []string) []model.RawLead {
	if len(types) > 3 {
		types = types[:3]
	}

	slug := strings.ReplaceAll(strings.ToLower(city), " ", "_")
	leads := make([]model.RawLead, 0, len(types))
	for i, btype := range types {
		leads = append(leads, model.RawLead{
			PlaceID:      fmt.Sprintf("mock_%s_%d", slug, i),
			BusinessName: fmt.Sprintf("Mock %s in %s", typeTitle.String(btype), city),
			Address:      fmt.Sprintf("%d Main St, %s", 100+i, city),
			City:         city,
			Phone:        fmt.Sprintf("555-%03d-%04d", 100+i, 1000+i),
			Rating:       4.0 + float64(i)*0.2,
			TotalRatings: 50 + i*10,
			BusinessType: btype,
			HasWebsite:   false,
			LeadStatus:   string(model.LeadStatusNew),
		})
	}

	f.log.Warn("no places credential configured, returning mock leads",
		zap.String("city", city),
	)
	return leads
}
