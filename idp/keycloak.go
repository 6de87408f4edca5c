package idp

import (
	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/internal/autherr"
	"github.com/veridianhq/veridian-server/internal/utils"
)

// KeycloakMapper maps Keycloak access-token claims onto a local claim
// account. Roles come from the client-specific resource_access block, so a
// user's roles in other Keycloak clients never leak into this application.
type KeycloakMapper struct {
	ClientID string
}

var _ ClaimMapper = (*KeycloakMapper)(nil)

func (m *KeycloakMapper) MapClaims(claims map[string]any) (*accounts.Account, error) {
	// The token must have been issued to this application.
	azp, _ := claims["azp"].(string)
	if azp != m.ClientID {
		return nil, autherr.New(autherr.KindClaimValidation, "the given access token was not issued for this application")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, autherr.New(autherr.KindClaimValidation, "attribute email not found in provided Keycloak claim")
	}
	name, _ := claims["name"].(string)

	verified, _ := claims["email_verified"].(bool)
	if !verified {
		return nil, autherr.New(autherr.KindClaimValidation, "your email address has not been verified yet")
	}

	return &accounts.Account{
		Email:    accounts.NormalizeEmail(email),
		FullName: name,
		Active:   true,
		Roles:    accounts.ParseRoles(m.roleNames(claims)),
	}, nil
}

// roleNames digs the client's role list out of the resource_access claim.
// Missing or oddly shaped blocks yield an empty list; the issuance service
// rejects role-less accounts downstream.
func (m *KeycloakMapper) roleNames(claims map[string]any) []string {
	resourceAccess, _ := claims["resource_access"].(map[string]any)
	client, _ := resourceAccess[m.ClientID].(map[string]any)
	rawRoles, _ := client["roles"].([]any)
	return utils.ToStringSlice(rawRoles)
}
