package enums

// UserRole maps to the user_role enum.
type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

var userRoles = []UserRole{UserRoleMember, UserRoleAdmin}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return oneOf(r, userRoles) }

func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, userRoles)
}

// NotificationCategory groups inbox entries for filtering.
type NotificationCategory string

const (
	NotificationCategoryOrder   NotificationCategory = "order"
	NotificationCategoryReview  NotificationCategory = "review"
	NotificationCategoryChat    NotificationCategory = "chat"
	NotificationCategoryComment NotificationCategory = "comment"
	NotificationCategorySystem  NotificationCategory = "system"
)

var notificationCategories = []NotificationCategory{
	NotificationCategoryOrder,
	NotificationCategoryReview,
	NotificationCategoryChat,
	NotificationCategoryComment,
	NotificationCategorySystem,
}

func (n NotificationCategory) IsValid() bool { return oneOf(n, notificationCategories) }

func ParseNotificationCategory(value string) (NotificationCategory, error) {
	return parse("notification category", value, notificationCategories)
}
