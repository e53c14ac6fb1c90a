package opportunity

import (
	"time"

	"github.com/jordanlanch/dealpipe/pkg/pipeline"
	"github.com/shopspring/decimal"
)

// MoveToStage applies a stage move. Moving into closed_won or closed_lost
// closes the deal on behalf of actorID; moving a closed deal back into an
// open stage re-opens it. ownerID, when given, reassigns the deal.
func MoveToStage(o Opportunity, stage pipeline.Stage, actorID int64, ownerID *int64, now time.Time) Opportunity {
	switch stage {
	case pipeline.StageClosedWon:
		o = closeDeal(o, pipeline.StatusWon, actorID, now)
	case pipeline.StageClosedLost:
		o = closeDeal(o, pipeline.StatusLost, actorID, now)
	default:
		o.Stage = stage
		o.StageOrder = pipeline.CatalogFor(o.Pipeline).OrderOf(stage)
		if o.Status.IsClosed() {
			o = reopen(o)
		}
	}

	if ownerID != nil {
		id := *ownerID
		o.UserID = &id
	}

	o.Probability = CalculateProbability(&o, now)
	return o
}

// MarkAsWon closes the deal as won, recording the optional final amount and reason.
func MarkAsWon(o Opportunity, actorID int64, actualAmount *decimal.Decimal, reason string, now time.Time) Opportunity {
	o = closeDeal(o, pipeline.StatusWon, actorID, now)
	if actualAmount != nil {
		o.ActualAmount = decimal.NewNullDecimal(*actualAmount)
	}
	if reason != "" {
		o.WonReason = reason
	}
	o.Probability = CalculateProbability(&o, now)
	return o
}

// MarkAsLost closes the deal as lost with the given reason.
func MarkAsLost(o Opportunity, actorID int64, reason string, now time.Time) Opportunity {
	o = closeDeal(o, pipeline.StatusLost, actorID, now)
	o.LostReason = reason
	o.Probability = CalculateProbability(&o, now)
	return o
}

// closeDeal moves o into the terminal stage matching status. A deal that is
// already closed the same way keeps its close date, closer and cycle length.
func closeDeal(o Opportunity, status pipeline.Status, actorID int64, now time.Time) Opportunity {
	stage := pipeline.StageClosedWon
	if status == pipeline.StatusLost {
		stage = pipeline.StageClosedLost
	}

	alreadyClosed := o.Status == status && o.Stage == stage && o.ClosedDate != nil

	o.Stage = stage
	o.StageOrder = pipeline.CatalogFor(o.Pipeline).OrderOf(stage)
	o.Status = status

	if alreadyClosed {
		return o
	}

	closed := dateOf(now)
	o.ClosedDate = &closed
	o.SalesCycleDays = nil

	actor := actorID
	if status == pipeline.StatusWon {
		o.WonBy = &actor
		o.LostBy = nil
	} else {
		o.LostBy = &actor
		o.WonBy = nil
	}
	return o
}

// reopen clears close bookkeeping. Reasons and the actual amount stay as history.
func reopen(o Opportunity) Opportunity {
	o.Status = pipeline.StatusActive
	o.ClosedDate = nil
	o.SalesCycleDays = nil
	o.WonBy = nil
	o.LostBy = nil
	return o
}
