package orders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/LucasBenitez7/acme-commerce-starter-sub000/pkg/enums"
)

// Caller is the capability object every operation receives. Nothing in this
// package reads session state on its own.
type Caller struct {
	UserID *uuid.UUID
	Email  string
	Role   enums.CallerRole
}

// AdminCaller builds a caller for a back-office user.
func AdminCaller(userID uuid.UUID) Caller {
	return Caller{UserID: &userID, Role: enums.CallerRoleAdmin}
}

// CustomerCaller builds a caller for a signed-in shopper.
func CustomerCaller(userID uuid.UUID, email string) Caller {
	return Caller{UserID: &userID, Email: normalizeEmail(email), Role: enums.CallerRoleCustomer}
}

// GuestCaller builds a caller for a shopper identified only by email.
func GuestCaller(email string) Caller {
	return Caller{Email: normalizeEmail(email), Role: enums.CallerRoleGuest}
}

// SystemCaller is used by webhooks and scheduled jobs.
func SystemCaller() Caller {
	return Caller{Role: enums.CallerRoleSystem}
}

// Actor is the history label for this caller.
func (c Caller) Actor() enums.HistoryActor {
	return c.Role.HistoryActor()
}

func (c Caller) isAdmin() bool {
	return c.Role == enums.CallerRoleAdmin
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
