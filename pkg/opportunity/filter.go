package opportunity

import (
	"strconv"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 15
	maxExportRows   = 10000
)

var sortable = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"title":               true,
	"amount":              true,
	"probability":         true,
	"expected_close_date": true,
	"stage_order":         true,
	"priority":            true,
}

// listPredicate builds the WHERE clause of a tenant-scoped list query.
func listPredicate(companyID int64, req models.OpportunityListRequest) (*entsql.Predicate, error) {
	preds := []*entsql.Predicate{
		entsql.EQ("company_id", companyID),
		entsql.IsNull("deleted_at"),
	}
	fields := map[string]string{}

	if req.Pipeline != "" {
		preds = append(preds, entsql.EQ("pipeline", req.Pipeline))
	}
	if req.Status != "" {
		preds = append(preds, entsql.EQ("status", req.Status))
	}
	if req.Stage != "" {
		preds = append(preds, entsql.EQ("stage", req.Stage))
	}
	if req.Priority != "" {
		preds = append(preds, entsql.EQ("priority", req.Priority))
	}

	switch req.UserID {
	case "":
	case "unassigned":
		preds = append(preds, entsql.IsNull("user_id"))
	default:
		id, err := strconv.ParseInt(req.UserID, 10, 64)
		if err != nil || id <= 0 {
			fields["user_id"] = `must be a user id or "unassigned"`
		} else {
			preds = append(preds, entsql.EQ("user_id", id))
		}
	}

	if req.AmountMin != "" {
		lo, err := decimal.NewFromString(req.AmountMin)
		if err != nil {
			fields["amount_min"] = "must be a number"
		} else {
			preds = append(preds, entsql.GTE("amount", lo))
		}
	}
	if req.AmountMax != "" {
		hi, err := decimal.NewFromString(req.AmountMax)
		if err != nil {
			fields["amount_max"] = "must be a number"
		} else {
			preds = append(preds, entsql.LTE("amount", hi))
		}
	}

	if req.DateFrom != nil {
		preds = append(preds, entsql.GTE("created_at", req.DateFrom.Time))
	}
	if req.DateTo != nil {
		preds = append(preds, entsql.LT("created_at", req.DateTo.Time.AddDate(0, 0, 1)))
	}

	if term := strings.TrimSpace(req.Search); term != "" {
		preds = append(preds, entsql.Or(
			entsql.ContainsFold("title", term),
			entsql.ContainsFold("account_name", term),
			entsql.ContainsFold("contact_name", term),
			entsql.ContainsFold("contact_email", term),
			entsql.ContainsFold("description", term),
		))
	}

	if len(fields) > 0 {
		return nil, domain.NewFieldValidationError(fields)
	}
	return entsql.And(preds...), nil
}

// listOrder returns the ORDER BY terms; ties break on id.
func listOrder(req models.OpportunityListRequest) []string {
	col := "created_at"
	if sortable[req.SortBy] {
		col = req.SortBy
	}
	if strings.EqualFold(req.SortDirection, "asc") {
		return []string{entsql.Asc(col), entsql.Asc("id")}
	}
	return []string{entsql.Desc(col), entsql.Desc("id")}
}

func pageAndLimit(req models.OpportunityListRequest) (int, int) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
