package directory

import (
	"context"
	"errors"
	"sync"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/scrapers/ecourts/core"
	"ecourts-backend/lib/scrapers/ecourts/markup"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	report_cache_states          = "cache.states"
	report_cache_states_fallback = "cache.states-fallback"
	report_cache_districts       = "cache.districts"
	report_cache_complexes       = "cache.complexes"
	report_cache_case_types      = "cache.case-types"
)

const (
	getStatesPath    = "ecourtindia_v6/?p=casestatus/getStates"
	fillDistrictPath = "ecourtindia_v6/?p=casestatus/fillDistrict"
	fillComplexPath  = "ecourtindia_v6/?p=casestatus/fillcomplex"
	fillCaseTypePath = "ecourtindia_v6/?p=casestatus/fillCaseType"
)

// Districts and complexes are kept until Clear, the bound is well above the
// number of districts the portal serves.
const (
	locationCacheSize = 4096
	caseTypeCacheSize = 10
)

type complexKey struct {
	StateCode string
	DistCode  string
}

// CaseTypeQuery identifies a case type list, SearchType defaults to "c_no"
// (search by case number).
type CaseTypeQuery struct {
	StateCode        string
	DistCode         string
	CourtComplexCode string
	EstCode          string
	SearchType       string
}

// Cache memoizes the portal's reference data. Only non-empty upstream
// results are stored, an empty result means "try again later" and is
// fetched again on the next call.
type Cache struct {
	client *core.Client
	tel    telemetry.API

	statesMu sync.Mutex
	states   []markup.Option

	districts *lru.Cache[string, []markup.Option]
	complexes *lru.Cache[complexKey, []markup.Option]
	caseTypes *lru.Cache[CaseTypeQuery, []markup.Option]
}

func NewCache(client *core.Client, tel telemetry.API) (*Cache, error) {
	districts, err := lru.New[string, []markup.Option](locationCacheSize)
	if err != nil {
		return nil, err
	}
	complexes, err := lru.New[complexKey, []markup.Option](locationCacheSize)
	if err != nil {
		return nil, err
	}
	caseTypes, err := lru.New[CaseTypeQuery, []markup.Option](caseTypeCacheSize)
	if err != nil {
		return nil, err
	}
	return &Cache{
		client:    client,
		tel:       telemetry.NewScopedAPI("ecourts_directory", tel),
		districts: districts,
		complexes: complexes,
		caseTypes: caseTypes,
	}, nil
}

// Clear drops every cached list.
func (c *Cache) Clear() {
	c.statesMu.Lock()
	c.states = nil
	c.statesMu.Unlock()

	c.districts.Purge()
	c.complexes.Purge()
	c.caseTypes.Purge()
}

func cloneOptions(options []markup.Option) []markup.Option {
	out := make([]markup.Option, len(options))
	copy(out, options)
	return out
}

// States lists the states. It never returns an empty list: when the portal
// cannot provide one the built-in list is returned (and not cached).
func (c *Cache) States(ctx context.Context) []markup.Option {
	c.statesMu.Lock()
	cached := c.states
	c.statesMu.Unlock()
	if cached != nil {
		return cloneOptions(cached)
	}

	states := c.fetchStates(ctx)
	if len(states) == 0 {
		c.tel.ReportCount(report_cache_states_fallback, 1)
		return FallbackStates()
	}

	c.statesMu.Lock()
	c.states = states
	c.statesMu.Unlock()
	return cloneOptions(states)
}

func (c *Cache) fetchStates(ctx context.Context) []markup.Option {
	if !c.client.EnsureInitialized(ctx) {
		c.tel.ReportWarning(report_cache_states, core.ErrNotInitialized)
		return nil
	}

	res, err := c.client.Get(ctx, core.IndexPath)
	if err == nil {
		c.client.RotateToken(markup.ExtractToken(res.Body()))
		if states := markup.ParseStateSelect(res.Body()); len(states) > 0 {
			return states
		}
		c.tel.ReportDebug(report_cache_states + ": no state select on landing page")
	} else {
		c.tel.ReportWarning(report_cache_states, err)
	}

	ajax, err := c.client.Ajax(ctx, getStatesPath, nil)
	if err != nil {
		c.tel.ReportWarning(report_cache_states, err)
		return nil
	}
	if !markup.StatusOK(ajax.Envelope) {
		return nil
	}
	list, ok := markup.First(ajax.Envelope, markup.StateListKeys)
	if !ok {
		return nil
	}
	return markup.ParseOptions(list)
}

// fetchList posts `form` to `path` and parses the option list found under
// the first of `keys`.
func (c *Cache) fetchList(ctx context.Context, report, path string, form map[string]string, keys []string) []markup.Option {
	if !c.client.EnsureInitialized(ctx) {
		c.tel.ReportWarning(report, core.ErrNotInitialized)
		return nil
	}

	res, err := c.client.Ajax(ctx, path, form)
	if err != nil {
		c.tel.ReportWarning(report, err, form)
		return nil
	}
	if !markup.StatusOK(res.Envelope) {
		c.tel.ReportWarning(report, errors.New("upstream status not ok"), form, markup.ErrorMessage(res.Envelope))
		return nil
	}

	list, ok := markup.First(res.Envelope, keys)
	if !ok {
		return nil
	}
	return markup.ParseOptions(list)
}

// Districts lists the districts of a state.
func (c *Cache) Districts(ctx context.Context, stateCode string) []markup.Option {
	if cached, ok := c.districts.Get(stateCode); ok {
		return cloneOptions(cached)
	}

	districts := c.fetchList(
		ctx, report_cache_districts, fillDistrictPath,
		map[string]string{"state_code": stateCode},
		markup.DistrictListKeys,
	)
	if len(districts) == 0 {
		return []markup.Option{}
	}
	c.districts.Add(stateCode, districts)
	return cloneOptions(districts)
}

// Complexes lists the court complexes of a district. Every option carries
// its raw value, and the establishment list and flag when the portal packs
// them into the value.
func (c *Cache) Complexes(ctx context.Context, stateCode, distCode string) []markup.Option {
	key := complexKey{StateCode: stateCode, DistCode: distCode}
	if cached, ok := c.complexes.Get(key); ok {
		return cloneOptions(cached)
	}

	complexes := c.fetchList(
		ctx, report_cache_complexes, fillComplexPath,
		map[string]string{"state_code": stateCode, "dist_code": distCode},
		markup.ComplexListKeys,
	)
	if len(complexes) == 0 {
		return []markup.Option{}
	}
	for i := range complexes {
		if complexes[i].RawValue == "" {
			complexes[i].RawValue = complexes[i].Value
		}
	}
	c.complexes.Add(key, complexes)
	return cloneOptions(complexes)
}

// CaseTypes lists the case types of a court complex.
func (c *Cache) CaseTypes(ctx context.Context, query CaseTypeQuery) []markup.Option {
	if query.SearchType == "" {
		query.SearchType = "c_no"
	}
	if cached, ok := c.caseTypes.Get(query); ok {
		return cloneOptions(cached)
	}

	caseTypes := c.fetchList(
		ctx, report_cache_case_types, fillCaseTypePath,
		map[string]string{
			"state_code":         query.StateCode,
			"dist_code":          query.DistCode,
			"court_complex_code": query.CourtComplexCode,
			"est_code":           query.EstCode,
			"search_type":        query.SearchType,
		},
		markup.CaseTypeListKeys,
	)
	if len(caseTypes) == 0 {
		return []markup.Option{}
	}
	c.caseTypes.Add(query, caseTypes)
	return cloneOptions(caseTypes)
}

// Lookup resolves an option's display text from a list by its value.
func Lookup(options []markup.Option, value string) (string, bool) {
	for _, o := range options {
		if o.Value == value {
			return o.Text, true
		}
	}
	return "", false
}
