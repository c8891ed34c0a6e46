package router

import (
	"sync"

	"github.com/agentoven/agentdesk/pkg/models"
)

// ── Cost Tracking ───────────────────────────────────────────

type ledger struct {
	mu  sync.RWMutex
	sum models.UsageSummary
}

func newLedger() *ledger {
	return &ledger{sum: models.UsageSummary{
		ByProvider: make(map[string]float64),
		ByModel:    make(map[string]float64),
	}}
}

// estimateCost prices a response from the model's per-million-token rates.
// Models without published rates cost nothing.
func estimateCost(m models.Model, input, output int64) float64 {
	var cost float64
	if m.InputCostPerMillionTokens != nil {
		cost += float64(input) / 1_000_000 * *m.InputCostPerMillionTokens
	}
	if m.OutputCostPerMillionTokens != nil {
		cost += float64(output) / 1_000_000 * *m.OutputCostPerMillionTokens
	}
	return cost
}

func (l *ledger) record(m models.Model, providerID string, resp *models.ChatResponse) {
	cost := estimateCost(m, resp.InputTokens, resp.OutputTokens)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sum.Requests++
	l.sum.TotalTokens += resp.InputTokens + resp.OutputTokens
	l.sum.TotalCostUSD += cost
	l.sum.ByProvider[providerID] += cost
	l.sum.ByModel[providerID+"/"+m.ID] += cost
}

func (l *ledger) summary() models.UsageSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := l.sum
	out.ByProvider = make(map[string]float64, len(l.sum.ByProvider))
	for k, v := range l.sum.ByProvider {
		out.ByProvider[k] = v
	}
	out.ByModel = make(map[string]float64, len(l.sum.ByModel))
	for k, v := range l.sum.ByModel {
		out.ByModel[k] = v
	}
	return out
}
