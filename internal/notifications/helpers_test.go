package notifications

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookstall-backend/pkg/db/models"
	"github.com/angelmondragon/bookstall-backend/pkg/enums"
	"github.com/angelmondragon/bookstall-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notifications-test"})
}

func seedUser(t *testing.T, conn *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		DisplayName:  name,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func seedBook(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, title string) *models.Book {
	t.Helper()
	book := &models.Book{
		OwnerID:     ownerID,
		Title:       title,
		Author:      "Author",
		PriceCents:  1000,
		ListingType: enums.ListingTypeSale,
		Condition:   enums.BookConditionGood,
		Status:      enums.BookStatusAvailable,
	}
	require.NoError(t, conn.Create(book).Error)
	return book
}
