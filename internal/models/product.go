package models

import "time"

// VendorID identifies a source marketplace.
type VendorID string

const (
	VendorAliExpress VendorID = "aliexpress"
	VendorAllegro    VendorID = "allegro"
	VendorAmazon     VendorID = "amazon"
	VendorEbay       VendorID = "ebay"
)

// Valid reports whether v is one of the supported marketplaces.
func (v VendorID) Valid() bool {
	switch v {
	case VendorAliExpress, VendorAllegro, VendorAmazon, VendorEbay:
		return true
	}
	return false
}

// ProductStatus is the moderation state of a product.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusApproved ProductStatus = "approved"
	ProductStatusRejected ProductStatus = "rejected"
)

// ProductImageEntry is one gallery image.
type ProductImageEntry struct {
	URL       string `json:"url" firestore:"url" bson:"url"`
	IsPrimary bool   `json:"isPrimary" firestore:"isPrimary" bson:"isPrimary"`
	Source    string `json:"source" firestore:"source" bson:"source"`
	Order     int    `json:"order" firestore:"order" bson:"order"`
}

// RatingCard summarises customer ratings on a 0-5 scale.
type RatingCard struct {
	Average       float64 `json:"average" firestore:"average" bson:"average"`
	Count         int     `json:"count" firestore:"count" bson:"count"`
	Durability    float64 `json:"durability" firestore:"durability" bson:"durability"`
	EaseOfUse     float64 `json:"easeOfUse" firestore:"easeOfUse" bson:"easeOfUse"`
	ValueForMoney float64 `json:"valueForMoney" firestore:"valueForMoney" bson:"valueForMoney"`
	Versatility   float64 `json:"versatility" firestore:"versatility" bson:"versatility"`
}

// ProductMetadata records where an imported product came from.
// Source + OriginalID is the deduplication key.
type ProductMetadata struct {
	Source        VendorID  `json:"source" firestore:"source" bson:"source"`
	OriginalID    string    `json:"originalId" firestore:"originalId" bson:"originalId"`
	ImportedAt    time.Time `json:"importedAt" firestore:"importedAt" bson:"importedAt"`
	ImportedBy    string    `json:"importedBy,omitempty" firestore:"importedBy,omitempty" bson:"importedBy,omitempty"`
	ImportRunID   string    `json:"importRunId,omitempty" firestore:"importRunId,omitempty" bson:"importRunId,omitempty"`
	Merchant      string    `json:"merchant,omitempty" firestore:"merchant,omitempty" bson:"merchant,omitempty"`
	Shipping      string    `json:"shipping,omitempty" firestore:"shipping,omitempty" bson:"shipping,omitempty"`
	Orders        int       `json:"orders,omitempty" firestore:"orders,omitempty" bson:"orders,omitempty"`
	RawDataStored bool      `json:"rawDataStored" firestore:"rawDataStored" bson:"rawDataStored"`
	RawData       string    `json:"rawData,omitempty" firestore:"rawData,omitempty" bson:"rawData,omitempty"`
}

// Product is the canonical catalog entry.
type Product struct {
	ID                 string              `json:"id" firestore:"-" bson:"_id,omitempty"`
	Name               string              `json:"name" firestore:"name" bson:"name"`
	Description        string              `json:"description" firestore:"description" bson:"description"`
	LongDescription    string              `json:"longDescription" firestore:"longDescription" bson:"longDescription"`
	Price              float64             `json:"price" firestore:"price" bson:"price"`
	OriginalPrice      *float64            `json:"originalPrice,omitempty" firestore:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	DiscountPercent    *int                `json:"discountPercent,omitempty" firestore:"discountPercent,omitempty" bson:"discountPercent,omitempty"`
	Image              string              `json:"image" firestore:"image" bson:"image"`
	Gallery            []ProductImageEntry `json:"gallery" firestore:"gallery" bson:"gallery"`
	AffiliateURL       string              `json:"affiliateUrl" firestore:"affiliateUrl" bson:"affiliateUrl"`
	RatingCard         RatingCard          `json:"ratingCard" firestore:"ratingCard" bson:"ratingCard"`
	MainCategorySlug   string              `json:"mainCategorySlug" firestore:"mainCategorySlug" bson:"mainCategorySlug"`
	SubCategorySlug    string              `json:"subCategorySlug" firestore:"subCategorySlug" bson:"subCategorySlug"`
	SubSubCategorySlug string              `json:"subSubCategorySlug,omitempty" firestore:"subSubCategorySlug,omitempty" bson:"subSubCategorySlug,omitempty"`
	Status             ProductStatus       `json:"status" firestore:"status" bson:"status"`
	Metadata           ProductMetadata     `json:"metadata" firestore:"metadata" bson:"metadata"`
	CreatedAt          time.Time           `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

// RefreshFrom copies the vendor-owned fields of fresh onto p. Fields owned by
// moderators (name, descriptions, categories, status, rating card) are kept.
func (p *Product) RefreshFrom(fresh *Product) {
	p.Price = fresh.Price
	p.OriginalPrice = fresh.OriginalPrice
	p.DiscountPercent = fresh.DiscountPercent
	p.Image = fresh.Image
	p.Gallery = fresh.Gallery
	p.AffiliateURL = fresh.AffiliateURL

	p.Metadata.ImportedAt = fresh.Metadata.ImportedAt
	p.Metadata.ImportRunID = fresh.Metadata.ImportRunID
	p.Metadata.Merchant = fresh.Metadata.Merchant
	p.Metadata.Shipping = fresh.Metadata.Shipping
	p.Metadata.Orders = fresh.Metadata.Orders
	p.Metadata.RawDataStored = fresh.Metadata.RawDataStored
	p.Metadata.RawData = fresh.Metadata.RawData
	p.UpdatedAt = fresh.UpdatedAt
}
