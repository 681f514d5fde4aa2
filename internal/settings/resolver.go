package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"atelier-backend/internal/logger"
)

const (
	cacheKey = "settings:snapshot"
	cacheTTL = 24 * time.Hour
)

// Resolver fetches the remote settings document and resolves it against
// the hardcoded defaults. Resolution is a pure transform; the resolver
// only adds fetching and a last-known-good cache so dependent code never
// blocks on a flaky settings host.
type Resolver struct {
	url        string
	httpClient *http.Client
	cache      *redis.Client
	log        *logger.Logger

	mu   sync.RWMutex
	last *Snapshot
}

func NewResolver(url string, cache *redis.Client, log *logger.Logger) *Resolver {
	return &Resolver{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache: cache,
		log:   log,
	}
}

// Fetch retrieves and resolves the remote document. Network or decode
// errors are returned to the caller; use Current for the non-blocking
// fallback path.
func (r *Resolver) Fetch(ctx context.Context) (*Snapshot, error) {
	if r.url == "" {
		return Defaults(), nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch settings: status %d, body: %s", resp.StatusCode, string(body))
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings body: %w", err)
	}

	snap, err := Resolve(doc)
	if err != nil {
		return nil, err
	}

	r.remember(ctx, snap)
	return snap, nil
}

// Current returns the freshest snapshot available without ever failing:
// remote fetch, then last-known-good (memory, then redis), then defaults.
func (r *Resolver) Current(ctx context.Context) *Snapshot {
	snap, err := r.Fetch(ctx)
	if err == nil {
		return snap
	}
	r.log.Warn("settings fetch failed, using last known good", "error", err)

	r.mu.RLock()
	last := r.last
	r.mu.RUnlock()
	if last != nil {
		return last
	}

	if r.cache != nil {
		if data, err := r.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached Snapshot
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached
			}
		}
	}

	return Defaults()
}

func (r *Resolver) remember(ctx context.Context, snap *Snapshot) {
	r.mu.Lock()
	r.last = snap
	r.mu.Unlock()

	if r.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey, data, cacheTTL).Err(); err != nil {
		r.log.Debug("settings cache write failed", "error", err)
	}
}

// Partial remote shapes. Pointer fields distinguish "absent" from "zero"
// so the overlay never clobbers a default with an omitted sub-field.
type remoteDocument struct {
	Sizes       json.RawMessage              `json:"sizes"`
	FormFactors map[string]remoteFormFactor  `json:"form_factors"`
	Materials   map[string]remoteMaterial    `json:"materials"`
	Decorations map[string]remoteDecoration  `json:"decorations"`
}

type remoteSize struct {
	Label      *string  `json:"label"`
	MM         *float64 `json:"mm"`
	PriceCents *int64   `json:"price_cents"`
}

type remoteFormFactor struct {
	Label               *string `json:"label"`
	Icon                *string `json:"icon"`
	PromptFragment      *string `json:"prompt_fragment"`
	VisualizationGender *string `json:"visualization_gender"`
	Engravable          *bool   `json:"engravable"`
}

type remoteMaterial struct {
	Label   *string `json:"label"`
	Enabled *bool   `json:"enabled"`
}

type remoteDecoration struct {
	Label          *string  `json:"label"`
	UnitPriceCents *int64   `json:"unit_price_cents"`
	MM             *float64 `json:"mm"`
}

// Resolve overlays a remote settings document onto the defaults. Sections
// absent from the document keep their defaults wholesale; present sections
// are merged entry by entry and field by field. Legacy flat-size documents
// (size keys at the top level instead of material buckets) are migrated
// into the default material bucket first.
func Resolve(doc []byte) (*Snapshot, error) {
	snap := Defaults()
	if len(doc) == 0 {
		return snap, nil
	}

	var remote remoteDocument
	if err := json.Unmarshal(doc, &remote); err != nil {
		return nil, fmt.Errorf("failed to decode settings document: %w", err)
	}

	if len(remote.Sizes) > 0 {
		sizes, err := decodeSizes(remote.Sizes)
		if err != nil {
			return nil, err
		}
		for material, remoteSizes := range sizes {
			bucket := snap.Sizes[material]
			if bucket == nil {
				bucket = make(map[string]SizeOption)
				snap.Sizes[material] = bucket
			}
			for key, rs := range remoteSizes {
				opt := bucket[key]
				if rs.Label != nil {
					opt.Label = *rs.Label
				}
				if rs.MM != nil {
					opt.MM = *rs.MM
				}
				if rs.PriceCents != nil {
					opt.PriceCents = *rs.PriceCents
				}
				bucket[key] = opt
			}
		}
	}

	for id, rf := range remote.FormFactors {
		ff := snap.FormFactors[id]
		if rf.Label != nil {
			ff.Label = *rf.Label
		}
		if rf.Icon != nil {
			ff.Icon = *rf.Icon
		}
		if rf.PromptFragment != nil {
			ff.PromptFragment = *rf.PromptFragment
		}
		if rf.VisualizationGender != nil {
			ff.VisualizationGender = *rf.VisualizationGender
		}
		if rf.Engravable != nil {
			ff.Engravable = *rf.Engravable
		}
		snap.FormFactors[id] = ff
	}

	for id, rm := range remote.Materials {
		m := snap.Materials[id]
		if rm.Label != nil {
			m.Label = *rm.Label
		}
		if rm.Enabled != nil {
			m.Enabled = *rm.Enabled
		}
		snap.Materials[id] = m
	}

	for id, rd := range remote.Decorations {
		d := snap.Decorations[id]
		if rd.Label != nil {
			d.Label = *rd.Label
		}
		if rd.UnitPriceCents != nil {
			d.UnitPriceCents = *rd.UnitPriceCents
		}
		if rd.MM != nil {
			d.MM = *rd.MM
		}
		snap.Decorations[id] = d
	}

	return snap, nil
}

// decodeSizes handles both size section shapes: the material-partitioned
// format (material -> size -> option) and the legacy flat format (size ->
// option). Legacy entries land in the default material bucket.
func decodeSizes(raw json.RawMessage) (map[string]map[string]remoteSize, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, fmt.Errorf("failed to decode sizes section: %w", err)
	}

	if isLegacySizes(outer) {
		var flat map[string]remoteSize
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, fmt.Errorf("failed to decode legacy sizes: %w", err)
		}
		return map[string]map[string]remoteSize{DefaultMaterial: flat}, nil
	}

	var partitioned map[string]map[string]remoteSize
	if err := json.Unmarshal(raw, &partitioned); err != nil {
		return nil, fmt.Errorf("failed to decode sizes: %w", err)
	}
	return partitioned, nil
}

// isLegacySizes probes the first inner value: in the partitioned format it
// is another object of size options; in the legacy format it is a size
// option whose fields are scalars.
func isLegacySizes(outer map[string]json.RawMessage) bool {
	for _, inner := range outer {
		var innerMap map[string]json.RawMessage
		if err := json.Unmarshal(inner, &innerMap); err != nil {
			// Not even an object: treat as legacy and let the strict
			// decode report the real problem.
			return true
		}
		for _, v := range innerMap {
			trimmed := string(v)
			return len(trimmed) == 0 || trimmed[0] != '{'
		}
		// Empty inner object is ambiguous; assume partitioned.
		return false
	}
	return false
}
