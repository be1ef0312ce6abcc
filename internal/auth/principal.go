package auth

import (
	"strconv"

	"github.com/Nebulafr/Nebula-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	RoleStudent = "student"
	RoleCoach   = "coach"
	RoleAdmin   = "admin"
)

// LocalsKey is the fiber locals key holding the request Principal.
const LocalsKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID int64
	Role   string
	Email  string
}

func (p Principal) IsStudent() bool { return p.Role == RoleStudent }
func (p Principal) IsCoach() bool   { return p.Role == RoleCoach }
func (p Principal) IsAdmin() bool   { return p.Role == RoleAdmin }

// FromClaims converts validated token claims into a Principal.
func FromClaims(claims *utils.Claims) (Principal, error) {
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return Principal{}, strconv.ErrSyntax
	}
	return Principal{UserID: userID, Role: claims.Role, Email: claims.Email}, nil
}

func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(LocalsKey, p)
}

func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	return FromLocal(c.Locals(LocalsKey))
}

// FromLocal accepts a raw locals value, as read from a websocket connection.
func FromLocal(value any) (Principal, bool) {
	p, ok := value.(Principal)
	if !ok || p.UserID <= 0 {
		return Principal{}, false
	}
	return p, true
}
