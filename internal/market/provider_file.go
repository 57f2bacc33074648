package market

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileProvider serves pool snapshots from a JSON file. Used for paper
// and simulated runs, and for replaying captured market states.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider reading from path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) LoadAll(_ context.Context) ([]MarketEntry, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("market: read data file: %w", err)
	}
	var entries []MarketEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("market: parse data file: %w", err)
	}
	now := time.Now()
	for i := range entries {
		if entries[i].UpdatedAt.IsZero() {
			entries[i].UpdatedAt = now
		}
	}
	return entries, nil
}

func (p *FileProvider) Refresh(ctx context.Context, poolAddresses []string) ([]MarketEntry, error) {
	all, err := p.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(poolAddresses))
	for _, a := range poolAddresses {
		wanted[a] = true
	}
	out := all[:0:0]
	for _, e := range all {
		if wanted[e.PoolAddress] {
			out = append(out, e)
		}
	}
	return out, nil
}
