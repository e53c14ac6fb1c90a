package pipeline

// Pipeline identifies a sales process variant.
type Pipeline string

const (
	PipelineSales           Pipeline = "sales"
	PipelineCustomerSuccess Pipeline = "customer_success"
	PipelineRenewal         Pipeline = "renewal"
	PipelinePartnership     Pipeline = "partnership"
)

var pipelineLabels = map[Pipeline]string{
	PipelineSales:           "Sales Pipeline",
	PipelineCustomerSuccess: "Customer Success Pipeline",
	PipelineRenewal:         "Renewal Pipeline",
	PipelinePartnership:     "Partnership Pipeline",
}

// Valid reports whether p is a known pipeline.
func (p Pipeline) Valid() bool {
	_, ok := pipelineLabels[p]
	return ok
}

// Label returns the display name of the pipeline.
func (p Pipeline) Label() string {
	return pipelineLabels[p]
}

// Status is the lifecycle state of an opportunity.
type Status string

const (
	StatusActive    Status = "active"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusWon, StatusLost, StatusPaused, StatusCancelled:
		return true
	}
	return false
}

// IsClosed reports whether the status is won or lost.
func (s Status) IsClosed() bool {
	return s == StatusWon || s == StatusLost
}

// Priority ranks opportunities.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// DealType classifies the business an opportunity represents.
type DealType string

const (
	TypeNewBusiness      DealType = "new_business"
	TypeExistingBusiness DealType = "existing_business"
	TypeRenewal          DealType = "renewal"
	TypeExpansion        DealType = "expansion"
	TypeUpsell           DealType = "upsell"
	TypeCrossSell        DealType = "cross_sell"
)

// Valid reports whether t is a known deal type.
func (t DealType) Valid() bool {
	switch t {
	case TypeNewBusiness, TypeExistingBusiness, TypeRenewal, TypeExpansion, TypeUpsell, TypeCrossSell:
		return true
	}
	return false
}

// Source records where an opportunity came from.
type Source string

const (
	SourceInbound       Source = "inbound"
	SourceOutbound      Source = "outbound"
	SourceReferral      Source = "referral"
	SourceWebsite       Source = "website"
	SourceSocialMedia   Source = "social_media"
	SourceEmailCampaign Source = "email_campaign"
	SourceColdCall      Source = "cold_call"
	SourceTradeShow     Source = "trade_show"
	SourcePartner       Source = "partner"
	SourceOther         Source = "other"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceInbound, SourceOutbound, SourceReferral, SourceWebsite, SourceSocialMedia,
		SourceEmailCampaign, SourceColdCall, SourceTradeShow, SourcePartner, SourceOther:
		return true
	}
	return false
}
