package auth

import (
	"context"

	"github.com/habedi/petcli/db"
)

// TokenStorer defines the contract for any component that can persist the
// credential pair. db.TokenRepository satisfies it.
type TokenStorer interface {
	Get(ctx context.Context) (*db.Token, error)
	Upsert(ctx context.Context, token *db.Token) error
	Clear(ctx context.Context) error
}
