package models

import "time"

type DedupStrategy string

const (
	DedupSkip   DedupStrategy = "skip"
	DedupUpdate DedupStrategy = "update"
)

type ShippingType string

const (
	ShippingFree ShippingType = "free"
	ShippingPaid ShippingType = "paid"
	ShippingAny  ShippingType = "any"
)

// ProfileFilters narrows what a profile fetches. Nil pointers mean "no bound".
type ProfileFilters struct {
	SearchQuery    string       `json:"searchQuery" firestore:"searchQuery" bson:"searchQuery" validate:"required"`
	MinPrice       *float64     `json:"minPrice,omitempty" firestore:"minPrice,omitempty" bson:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice       *float64     `json:"maxPrice,omitempty" firestore:"maxPrice,omitempty" bson:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	MinRating      *float64     `json:"minRating,omitempty" firestore:"minRating,omitempty" bson:"minRating,omitempty" validate:"omitempty,gte=0,lte=5"`
	MinDiscount    *float64     `json:"minDiscount,omitempty" firestore:"minDiscount,omitempty" bson:"minDiscount,omitempty" validate:"omitempty,gte=0,lte=100"`
	MinOrders      *int         `json:"minOrders,omitempty" firestore:"minOrders,omitempty" bson:"minOrders,omitempty" validate:"omitempty,gte=0"`
	ShippingType   ShippingType `json:"shippingType,omitempty" firestore:"shippingType,omitempty" bson:"shippingType,omitempty" validate:"omitempty,oneof=free paid any"`
	CategoryFilter string       `json:"categoryFilter,omitempty" firestore:"categoryFilter,omitempty" bson:"categoryFilter,omitempty"`
}

// ProfileMapping says where imported products land in the catalog.
type ProfileMapping struct {
	TargetMainCategory   string        `json:"targetMainCategory" firestore:"targetMainCategory" bson:"targetMainCategory" validate:"required"`
	TargetSubCategory    string        `json:"targetSubCategory" firestore:"targetSubCategory" bson:"targetSubCategory" validate:"required"`
	TargetSubSubCategory string        `json:"targetSubSubCategory,omitempty" firestore:"targetSubSubCategory,omitempty" bson:"targetSubSubCategory,omitempty"`
	PriceMarkup          *float64      `json:"priceMarkup,omitempty" firestore:"priceMarkup,omitempty" bson:"priceMarkup,omitempty" validate:"omitempty,gte=0"`
	DefaultStatus        ProductStatus `json:"defaultStatus" firestore:"defaultStatus" bson:"defaultStatus" validate:"required,oneof=draft approved"`
}

// ImportProfile is the admin-owned configuration of a recurring import.
// The pipeline only reads it.
type ImportProfile struct {
	ID                    string         `json:"id" firestore:"-" bson:"_id,omitempty"`
	VendorID              VendorID       `json:"vendorId" firestore:"vendorId" bson:"vendorId" validate:"required,oneof=aliexpress allegro amazon ebay"`
	Enabled               bool           `json:"enabled" firestore:"enabled" bson:"enabled"`
	Name                  string         `json:"name" firestore:"name" bson:"name" validate:"required,max=120"`
	Filters               ProfileFilters `json:"filters" firestore:"filters" bson:"filters"`
	Mapping               ProfileMapping `json:"mapping" firestore:"mapping" bson:"mapping"`
	MaxItemsPerRun        int            `json:"maxItemsPerRun" firestore:"maxItemsPerRun" bson:"maxItemsPerRun" validate:"gte=1"`
	DeduplicationStrategy DedupStrategy  `json:"deduplicationStrategy" firestore:"deduplicationStrategy" bson:"deduplicationStrategy" validate:"required,oneof=skip update"`
	CreatedBy             string         `json:"createdBy" firestore:"createdBy" bson:"createdBy"`
	CreatedAt             time.Time      `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
)

// Import error codes.
const (
	ErrCodeValidation = "VALIDATION"
	ErrCodeUnknown    = "UNKNOWN"
)

// ImportError is one failure recorded against a run. Never mutated.
type ImportError struct {
	Code      string    `json:"code" firestore:"code" bson:"code"`
	Message   string    `json:"message" firestore:"message" bson:"message"`
	ItemID    string    `json:"itemId,omitempty" firestore:"itemId,omitempty" bson:"itemId,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp" bson:"timestamp"`
	Details   string    `json:"details,omitempty" firestore:"details,omitempty" bson:"details,omitempty"`
}

// RunStats counts what happened to the fetched items. A dry run fills
// WouldCreate and WouldUpdate instead of Created and Updated.
type RunStats struct {
	Fetched      int `json:"fetched" firestore:"fetched" bson:"fetched"`
	Created      int `json:"created" firestore:"created" bson:"created"`
	Updated      int `json:"updated" firestore:"updated" bson:"updated"`
	Skipped      int `json:"skipped" firestore:"skipped" bson:"skipped"`
	Errors       int `json:"errors" firestore:"errors" bson:"errors"`
	Duplicates   int `json:"duplicates" firestore:"duplicates" bson:"duplicates"`
	WouldCreate  int `json:"wouldCreate,omitempty" firestore:"wouldCreate,omitempty" bson:"wouldCreate,omitempty"`
	WouldUpdate  int `json:"wouldUpdate,omitempty" firestore:"wouldUpdate,omitempty" bson:"wouldUpdate,omitempty"`
	DealsCreated int `json:"dealsCreated,omitempty" firestore:"dealsCreated,omitempty" bson:"dealsCreated,omitempty"`
}

// ImportRun is the audit record of one profile execution. It is written as
// running before any fetch and finalized exactly once.
type ImportRun struct {
	ID             string        `json:"id" firestore:"-" bson:"_id,omitempty"`
	ProfileID      string        `json:"profileId" firestore:"profileId" bson:"profileId"`
	VendorID       VendorID      `json:"vendorId" firestore:"vendorId" bson:"vendorId"`
	Status         RunStatus     `json:"status" firestore:"status" bson:"status"`
	DryRun         bool          `json:"dryRun" firestore:"dryRun" bson:"dryRun"`
	Stats          RunStats      `json:"stats" firestore:"stats" bson:"stats"`
	StartedAt      time.Time     `json:"startedAt" firestore:"startedAt" bson:"startedAt"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty" firestore:"finishedAt,omitempty" bson:"finishedAt,omitempty"`
	DurationMs     *int64        `json:"durationMs,omitempty" firestore:"durationMs,omitempty" bson:"durationMs,omitempty"`
	TriggeredBy    RunTrigger    `json:"triggeredBy" firestore:"triggeredBy" bson:"triggeredBy"`
	TriggeredByUID string        `json:"triggeredByUid,omitempty" firestore:"triggeredByUid,omitempty" bson:"triggeredByUid,omitempty"`
	ErrorSummary   []ImportError `json:"errorSummary,omitempty" firestore:"errorSummary,omitempty" bson:"errorSummary,omitempty"`
}
