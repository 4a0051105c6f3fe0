// Package geo provides the best-effort geolocation collaborator. Lookups
// happen before the store's locked update and a nil location is always an
// acceptable outcome; the correlation path never waits on or fails from
// geolocation.
package geo

import (
	"context"
	"fmt"
	"hash/fnv"
	"net"

	"sentinel/core"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Resolver maps a source IP to a location. Implementations return
// (nil, nil) for addresses they cannot place; errors are reserved for
// lookup failures the caller may want to log.
type Resolver interface {
	Locate(ctx context.Context, ip string) (*core.Location, error)
}

// demoLocations is the static table the demo resolver draws from.
// No real lookup service is consulted.
var demoLocations = []core.Location{
	{Country: "China", City: "Beijing", Lat: 39.9042, Lon: 116.4074},
	{Country: "Russia", City: "Moscow", Lat: 55.7558, Lon: 37.6173},
	{Country: "United States", City: "Ashburn", Lat: 39.0438, Lon: -77.4874},
	{Country: "Brazil", City: "São Paulo", Lat: -23.5505, Lon: -46.6333},
	{Country: "Netherlands", City: "Amsterdam", Lat: 52.3676, Lon: 4.9041},
	{Country: "Germany", City: "Frankfurt", Lat: 50.1109, Lon: 8.6821},
	{Country: "India", City: "Mumbai", Lat: 19.0760, Lon: 72.8777},
	{Country: "Vietnam", City: "Hanoi", Lat: 21.0285, Lon: 105.8542},
	{Country: "Romania", City: "Bucharest", Lat: 44.4268, Lon: 26.1025},
	{Country: "South Korea", City: "Seoul", Lat: 37.5665, Lon: 126.9780},
}

// StaticResolver assigns each IP a stable location from the demo table.
// The same IP always resolves to the same place so dashboards look
// coherent across a run.
type StaticResolver struct {
	logger *zap.SugaredLogger
}

// NewStaticResolver creates the demo resolver.
func NewStaticResolver(logger *zap.SugaredLogger) *StaticResolver {
	return &StaticResolver{logger: logger}
}

// Locate returns a stable demo location for the IP. Invalid addresses
// produce an error; private addresses resolve to nothing.
func (r *StaticResolver) Locate(ctx context.Context, ip string) (*core.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("geolocation: invalid ip %q: %w", ip, core.ErrExternalCollaborator)
	}
	if parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsUnspecified() {
		return nil, nil
	}

	h := fnv.New32a()
	h.Write([]byte(parsed.String()))
	loc := demoLocations[int(h.Sum32())%len(demoLocations)]
	return &loc, nil
}

// CachedResolver wraps another resolver with an LRU cache keyed by IP.
// Negative results (nil location) are cached too, so repeat offenders from
// private ranges never hit the inner resolver twice.
type CachedResolver struct {
	inner  Resolver
	cache  *lru.Cache[string, *core.Location]
	logger *zap.SugaredLogger
}

// NewCachedResolver wraps inner with a cache of the given size.
func NewCachedResolver(inner Resolver, size int, logger *zap.SugaredLogger) (*CachedResolver, error) {
	cache, err := lru.New[string, *core.Location](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create geolocation cache: %w", err)
	}
	return &CachedResolver{inner: inner, cache: cache, logger: logger}, nil
}

// Locate consults the cache first, falling back to the inner resolver.
// Inner failures are not cached so a transient error doesn't pin a miss.
func (r *CachedResolver) Locate(ctx context.Context, ip string) (*core.Location, error) {
	if loc, ok := r.cache.Get(ip); ok {
		if loc == nil {
			return nil, nil
		}
		cp := *loc
		return &cp, nil
	}

	loc, err := r.inner.Locate(ctx, ip)
	if err != nil {
		return nil, err
	}
	r.cache.Add(ip, loc)
	if loc == nil {
		return nil, nil
	}
	cp := *loc
	return &cp, nil
}

// Len returns the number of cached entries.
func (r *CachedResolver) Len() int {
	return r.cache.Len()
}
