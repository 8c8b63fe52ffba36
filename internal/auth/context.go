package auth

import (
	"context"
	"errors"
	"slices"
)

// ErrNoIdentity means the request did not pass through RequireAccessToken.
var ErrNoIdentity = errors.New("auth: no identity in context")

type grantKey struct{}

// WithIdentity attaches a verified grant to ctx.
func WithIdentity(ctx context.Context, g Grant) context.Context {
	return context.WithValue(ctx, grantKey{}, g)
}

// Identity returns the grant stored by WithIdentity.
func Identity(ctx context.Context) (Grant, error) {
	g, ok := ctx.Value(grantKey{}).(Grant)
	if !ok || g.UserID == "" || g.Role == "" {
		return Grant{}, ErrNoIdentity
	}
	return g, nil
}

func UserID(ctx context.Context) (string, error) {
	g, err := Identity(ctx)
	return g.UserID, err
}

func Role(ctx context.Context) (string, error) {
	g, err := Identity(ctx)
	return g.Role, err
}

// CanAccessCampaign reports whether the identity in ctx is scoped to id.
// An empty scope covers every campaign.
func CanAccessCampaign(ctx context.Context, id int64) bool {
	g, err := Identity(ctx)
	if err != nil {
		return false
	}
	return len(g.CampaignIDs) == 0 || slices.Contains(g.CampaignIDs, id)
}
