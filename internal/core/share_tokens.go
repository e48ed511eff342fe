package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"proposalhub/pkg/domain"
)

const (
	tokenLength   = 32
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var defaultTokenSource io.Reader = rand.Reader

// ShareTokens is the share-token repository. A proposal holds at most one
// token.
type ShareTokens struct {
	svc    *Service
	random io.Reader
}

// GetOrCreate returns the proposal's token, issuing one when none exists.
// Repeated calls return the same token.
func (r *ShareTokens) GetOrCreate(ctx context.Context, proposalID int64) (domain.ShareToken, error) {
	var token domain.ShareToken
	_, err := r.svc.run(ctx, "share_tokens.get_or_create", func(tx domain.Transaction) error {
		if existing, ok := tx.FindShareToken(proposalID); ok {
			token = existing
			return nil
		}
		value, err := generateToken(r.random)
		if err != nil {
			return err
		}
		token, err = tx.CreateShareToken(domain.ShareToken{ProposalID: proposalID, Token: value})
		return err
	})
	return token, err
}

// GetByProposal returns the proposal's token without issuing one.
func (r *ShareTokens) GetByProposal(ctx context.Context, proposalID int64) (domain.ShareToken, bool, error) {
	var (
		token domain.ShareToken
		ok    bool
	)
	err := r.svc.view(ctx, "share_tokens.get_by_proposal", func(v domain.TransactionView) error {
		token, ok = v.FindShareToken(proposalID)
		return nil
	})
	return token, ok, err
}

// Lookup resolves a token value.
func (r *ShareTokens) Lookup(ctx context.Context, value string) (domain.ShareToken, bool, error) {
	var (
		token domain.ShareToken
		ok    bool
	)
	err := r.svc.view(ctx, "share_tokens.lookup", func(v domain.TransactionView) error {
		token, ok = v.FindShareTokenByValue(value)
		return nil
	})
	return token, ok, err
}

// Revoke deletes the proposal's token. The next GetOrCreate issues a new one.
func (r *ShareTokens) Revoke(ctx context.Context, proposalID int64) (bool, error) {
	revoked := false
	_, err := r.svc.run(ctx, "share_tokens.revoke", func(tx domain.Transaction) error {
		existing, ok := tx.FindShareToken(proposalID)
		if !ok {
			return nil
		}
		revoked = true
		return tx.DeleteShareToken(existing.ID)
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func generateToken(random io.Reader) (string, error) {
	buf := make([]byte, tokenLength)
	out := make([]byte, 0, tokenLength)
	// Rejection sampling keeps the alphabet uniform.
	limit := byte(256 - 256%len(tokenAlphabet))
	for len(out) < tokenLength {
		if _, err := io.ReadFull(random, buf); err != nil {
			return "", fmt.Errorf("generate share token: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == tokenLength {
				break
			}
		}
	}
	return string(out), nil
}
