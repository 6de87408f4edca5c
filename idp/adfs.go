package idp

import (
	"fmt"

	"github.com/veridianhq/veridian-server/accounts"
	"github.com/veridianhq/veridian-server/internal/autherr"
	"github.com/veridianhq/veridian-server/internal/utils"
)

// AdfsMapper maps Active Directory Federation Services claims onto a local
// claim account. ADFS tokens carry the email in "sub" and split the display
// name into firstname/lastname attributes; roles arrive as AD group names
// in the "roles" claim.
type AdfsMapper struct {
	ClientID string
}

var _ ClaimMapper = (*AdfsMapper)(nil)

func (m *AdfsMapper) MapClaims(claims map[string]any) (*accounts.Account, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, autherr.New(autherr.KindClaimValidation, "attribute sub not found in provided ADFS claim")
	}
	firstname, _ := claims["firstname"].(string)
	if firstname == "" {
		return nil, autherr.New(autherr.KindClaimValidation, "attribute firstname not found in provided ADFS claim")
	}
	lastname, _ := claims["lastname"].(string)
	if lastname == "" {
		return nil, autherr.New(autherr.KindClaimValidation, "attribute lastname not found in provided ADFS claim")
	}

	clientID, _ := claims["client_id"].(string)
	if clientID != m.ClientID {
		return nil, autherr.New(autherr.KindClaimValidation, "the given claim was not issued for this application")
	}

	return &accounts.Account{
		Email:    accounts.NormalizeEmail(sub),
		FullName: fmt.Sprintf("%s, %s", lastname, firstname),
		Active:   true,
		Roles:    accounts.ParseRoles(m.roleNames(claims)),
	}, nil
}

func (m *AdfsMapper) roleNames(claims map[string]any) []string {
	rawRoles, _ := claims["roles"].([]any)
	return utils.ToStringSlice(rawRoles)
}
