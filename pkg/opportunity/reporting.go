package opportunity

import (
	"context"
	"time"

	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/jordanlanch/dealpipe/pkg/tenant"
	"github.com/shopspring/decimal"
)

// StageBucket is one kanban column.
type StageBucket struct {
	Stage         pipeline.Stage  `json:"stage"`
	Label         string          `json:"label"`
	Order         int             `json:"order"`
	Opportunities []View          `json:"opportunities"`
	Count         int             `json:"count"`
	TotalValue    decimal.Decimal `json:"total_value"`
	WeightedValue decimal.Decimal `json:"weighted_value"`
}

// PipelineStats summarises one pipeline of a company.
type PipelineStats struct {
	Pipeline           pipeline.Pipeline `json:"pipeline"`
	TotalOpportunities int               `json:"total_opportunities"`
	TotalValue         decimal.Decimal   `json:"total_value"`
	WeightedValue      decimal.Decimal   `json:"weighted_value"`
	WonCount           int               `json:"won_count"`
	WonValue           decimal.Decimal   `json:"won_value"`
	LostCount          int               `json:"lost_count"`
	ActiveCount        int               `json:"active_count"`
	AverageDealSize    *decimal.Decimal  `json:"average_deal_size"`
	WinRate            decimal.Decimal   `json:"win_rate"`
	AverageSalesCycle  *decimal.Decimal  `json:"average_sales_cycle"`
	Stages             []StageBucket     `json:"stages"`
}

// Kanban groups the pipeline's opportunities into one bucket per catalog
// stage, in catalog order. userID narrows to deals owned by or shared with
// that user.
func (s *Service) Kanban(ctx context.Context, actor tenant.Actor, p pipeline.Pipeline, userID *int64) ([]StageBucket, error) {
	p = orDefault(p)
	items, err := s.scoped(ctx, actor, p, userID)
	if err != nil {
		return nil, err
	}
	return BuildKanban(pipeline.CatalogFor(p), items, s.now()), nil
}

// PipelineStats computes totals, win rate and averages for one pipeline.
func (s *Service) PipelineStats(ctx context.Context, actor tenant.Actor, p pipeline.Pipeline, userID *int64) (*PipelineStats, error) {
	p = orDefault(p)
	items, err := s.scoped(ctx, actor, p, userID)
	if err != nil {
		return nil, err
	}
	stats := ComputeStats(items)
	stats.Pipeline = p
	stats.Stages = BuildKanban(pipeline.CatalogFor(p), items, s.now())
	return &stats, nil
}

func (s *Service) scoped(ctx context.Context, actor tenant.Actor, p pipeline.Pipeline, userID *int64) ([]Opportunity, error) {
	all, err := s.store.forPipeline(ctx, s.db.DB, actor.CompanyID, p)
	if err != nil {
		return nil, err
	}
	if userID == nil {
		return all, nil
	}
	out := all[:0]
	for _, o := range all {
		if o.IsAssignedTo(*userID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func orDefault(p pipeline.Pipeline) pipeline.Pipeline {
	if p == "" {
		return pipeline.PipelineSales
	}
	return p
}

// BuildKanban buckets items by stage. Records in stages missing from the
// catalog are left out.
func BuildKanban(c *pipeline.Catalog, items []Opportunity, now time.Time) []StageBucket {
	stages := c.Stages()
	buckets := make([]StageBucket, len(stages))
	index := make(map[pipeline.Stage]int, len(stages))
	for i, def := range stages {
		buckets[i] = StageBucket{
			Stage:         def.Name,
			Label:         def.Name.Label(),
			Order:         def.Order,
			Opportunities: []View{},
			TotalValue:    decimal.Zero,
			WeightedValue: decimal.Zero,
		}
		index[def.Name] = i
	}

	for i := range items {
		o := &items[i]
		n, ok := index[o.Stage]
		if !ok {
			continue
		}
		b := &buckets[n]
		b.Opportunities = append(b.Opportunities, NewView(o, now))
		b.Count++
		b.TotalValue = b.TotalValue.Add(sumAmounts(o.Amount))
		b.WeightedValue = b.WeightedValue.Add(sumAmounts(o.WeightedAmount))
	}
	return buckets
}

// ComputeStats aggregates items. Averages are nil when there is nothing to
// average; the win rate is 0 when no deal has closed.
func ComputeStats(items []Opportunity) PipelineStats {
	st := PipelineStats{
		TotalOpportunities: len(items),
		TotalValue:         decimal.Zero,
		WeightedValue:      decimal.Zero,
		WonValue:           decimal.Zero,
		WinRate:            decimal.Zero,
	}

	var (
		actualSum   = decimal.Zero
		actualCount int64
		cycleSum    int64
		cycleCount  int64
	)
	for i := range items {
		o := &items[i]
		st.TotalValue = st.TotalValue.Add(sumAmounts(o.Amount))
		st.WeightedValue = st.WeightedValue.Add(sumAmounts(o.WeightedAmount))

		switch o.Status {
		case pipeline.StatusWon:
			st.WonCount++
			if o.ActualAmount.Valid {
				st.WonValue = st.WonValue.Add(o.ActualAmount.Decimal)
				actualSum = actualSum.Add(o.ActualAmount.Decimal)
				actualCount++
			}
		case pipeline.StatusLost:
			st.LostCount++
		case pipeline.StatusActive:
			st.ActiveCount++
		}

		if o.SalesCycleDays != nil {
			cycleSum += int64(*o.SalesCycleDays)
			cycleCount++
		}
	}

	if actualCount > 0 {
		avg := actualSum.Div(decimal.NewFromInt(actualCount)).Round(2)
		st.AverageDealSize = &avg
	}
	if cycleCount > 0 {
		avg := decimal.NewFromInt(cycleSum).Div(decimal.NewFromInt(cycleCount)).Round(1)
		st.AverageSalesCycle = &avg
	}
	if closed := st.WonCount + st.LostCount; closed > 0 {
		st.WinRate = decimal.NewFromInt(int64(st.WonCount)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(closed))).
			Round(2)
	}
	return st
}
