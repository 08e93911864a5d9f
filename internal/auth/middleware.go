package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/ticket-relay/internal/domain"
	apperrors "github.com/relaydesk/ticket-relay/pkg/util"
)

const principalKey = "auth_principal"

// StaffDirectory resolves who is currently staff.
type StaffDirectory interface {
	ListActiveStaff(ctx context.Context) ([]domain.StaffMember, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	SubjectID   string
	Staff       *domain.StaffMember
	Role        *domain.StaffRole
}

// IsService reports whether the caller is a machine client such as the dashboard.
func (p *Principal) IsService() bool {
	return p.SubjectType == domain.SubjectTypeService
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  StaffDirectory
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, staff StaffDirectory) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes. Staff tokens stop
// working as soon as the member is deactivated.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.Subject, SubjectID: claims.SubjectID, Role: claims.Role}

	switch claims.Subject {
	case domain.SubjectTypeService:
	case domain.SubjectTypeStaff:
		member, err := m.activeStaff(c.UserContext(), claims.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if member == nil {
			return apperrors.NewUnauthorized("staff not found")
		}
		principal.Staff = member
		principal.Role = &member.Role
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) activeStaff(ctx context.Context, slackID string) (*domain.StaffMember, error) {
	members, err := m.staff.ListActiveStaff(ctx)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].SlackID == slackID {
			return &members[i], nil
		}
	}
	return nil, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
