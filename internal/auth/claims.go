package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Grant is what a token pair authorizes. CampaignIDs, when non-empty,
// restricts the holder to those campaigns; empty means every campaign.
type Grant struct {
	UserID      string
	Role        string
	CampaignIDs []int64
}

// Claims are the only supported JWT claims shape for the admin API.
// Both token types carry the grant: there is no user store to re-read it
// from on refresh.
type Claims struct {
	jwt.RegisteredClaims

	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	CampaignIDs []int64   `json:"campaign_ids,omitempty"`
	TokenType   TokenType `json:"token_type"`
}

func (c Claims) Grant() Grant {
	return Grant{UserID: c.UserID, Role: c.Role, CampaignIDs: c.CampaignIDs}
}
