package models

import "time"

type DealStatus string

const DealStatusDraft DealStatus = "draft"

// Deal is a promotional overlay of an imported product. It lives in its own
// collection and is moderated and voted on independently of the product.
type Deal struct {
	ID                 string     `json:"id" firestore:"-" bson:"_id,omitempty"`
	Title              string     `json:"title" firestore:"title" bson:"title"`
	Description        string     `json:"description" firestore:"description" bson:"description"`
	Price              float64    `json:"price" firestore:"price" bson:"price"`
	OriginalPrice      *float64   `json:"originalPrice,omitempty" firestore:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	DiscountPercent    *int       `json:"discountPercent,omitempty" firestore:"discountPercent,omitempty" bson:"discountPercent,omitempty"`
	Link               string     `json:"link" firestore:"link" bson:"link"`
	Image              string     `json:"image" firestore:"image" bson:"image"`
	MainCategorySlug   string     `json:"mainCategorySlug" firestore:"mainCategorySlug" bson:"mainCategorySlug"`
	SubCategorySlug    string     `json:"subCategorySlug" firestore:"subCategorySlug" bson:"subCategorySlug"`
	SubSubCategorySlug string     `json:"subSubCategorySlug,omitempty" firestore:"subSubCategorySlug,omitempty" bson:"subSubCategorySlug,omitempty"`
	ProductID          string     `json:"productId,omitempty" firestore:"productId,omitempty" bson:"productId,omitempty"`
	PostedBy           string     `json:"postedBy" firestore:"postedBy" bson:"postedBy"`
	VoteCount          int        `json:"voteCount" firestore:"voteCount" bson:"voteCount"`
	Temperature        int        `json:"temperature" firestore:"temperature" bson:"temperature"`
	CommentsCount      int        `json:"commentsCount" firestore:"commentsCount" bson:"commentsCount"`
	Status             DealStatus `json:"status" firestore:"status" bson:"status"`
	Source             VendorID   `json:"source" firestore:"source" bson:"source"`
	OriginalID         string     `json:"originalId" firestore:"originalId" bson:"originalId"`
	CreatedAt          time.Time  `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
}
