package enums

// ListingType describes how a book is offered on the shop.
type ListingType string

const (
	ListingTypeSale     ListingType = "sale"
	ListingTypeExchange ListingType = "exchange"
)

var listingTypes = []ListingType{ListingTypeSale, ListingTypeExchange}

func (l ListingType) IsValid() bool { return oneOf(l, listingTypes) }

func ParseListingType(value string) (ListingType, error) {
	return parse("listing type", value, listingTypes)
}

// BookCondition is the seller-declared physical condition.
type BookCondition string

const (
	BookConditionNew        BookCondition = "new"
	BookConditionLikeNew    BookCondition = "like_new"
	BookConditionGood       BookCondition = "good"
	BookConditionAcceptable BookCondition = "acceptable"
)

var bookConditions = []BookCondition{
	BookConditionNew,
	BookConditionLikeNew,
	BookConditionGood,
	BookConditionAcceptable,
}

func (c BookCondition) IsValid() bool { return oneOf(c, bookConditions) }

func ParseBookCondition(value string) (BookCondition, error) {
	return parse("book condition", value, bookConditions)
}

// BookStatus maps to the book_status enum. A sold book never returns to
// available; withdrawn is the seller's soft delete.
type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusSold      BookStatus = "sold"
	BookStatusWithdrawn BookStatus = "withdrawn"
)

var bookStatuses = []BookStatus{BookStatusAvailable, BookStatusSold, BookStatusWithdrawn}

func (s BookStatus) IsValid() bool { return oneOf(s, bookStatuses) }

func ParseBookStatus(value string) (BookStatus, error) {
	return parse("book status", value, bookStatuses)
}

// ReviewTargetKind identifies what a review rates.
type ReviewTargetKind string

const (
	ReviewTargetBook ReviewTargetKind = "book"
	ReviewTargetUser ReviewTargetKind = "user"
)

var reviewTargetKinds = []ReviewTargetKind{ReviewTargetBook, ReviewTargetUser}

func (k ReviewTargetKind) String() string { return string(k) }

func (k ReviewTargetKind) IsValid() bool { return oneOf(k, reviewTargetKinds) }

func ParseReviewTargetKind(value string) (ReviewTargetKind, error) {
	return parse("review target kind", value, reviewTargetKinds)
}
