package faketokenrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/veridianhq/veridian-server/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

type FakeTokenRepo struct {
	tokens       map[string]*token.AccessToken
	fingerprints map[string]string // fingerprint to token id
	lock         sync.RWMutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		tokens:       make(map[string]*token.AccessToken),
		fingerprints: make(map[string]string),
	}
}

func (tr *FakeTokenRepo) Insert(_ context.Context, record *token.AccessToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	return tr.insertLocked(record)
}

func (tr *FakeTokenRepo) insertLocked(record *token.AccessToken) error {
	copied := *record
	tr.tokens[record.ID] = &copied
	tr.fingerprints[record.Fingerprint] = record.ID
	return nil
}

func (tr *FakeTokenRepo) RotateUserSession(_ context.Context, record *token.AccessToken) (*token.AccessToken, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for _, t := range tr.tokens {
		if t.AccountID == record.AccountID && t.Type == token.TypeUser && !t.Revoked && t.Fingerprint != record.Fingerprint {
			t.Revoked = true
		}
	}

	if id, ok := tr.fingerprints[record.Fingerprint]; ok {
		copied := *tr.tokens[id]
		return &copied, nil
	}
	if err := tr.insertLocked(record); err != nil {
		return nil, err
	}
	copied := *record
	return &copied, nil
}

func (tr *FakeTokenRepo) GetByFingerprint(_ context.Context, fingerprint string) (*token.AccessToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	id, ok := tr.fingerprints[fingerprint]
	if !ok {
		return nil, token.ErrNotFound
	}
	copied := *tr.tokens[id]
	return &copied, nil
}

func (tr *FakeTokenRepo) GetByID(_ context.Context, id string) (*token.AccessToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	record, ok := tr.tokens[id]
	if !ok {
		return nil, token.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (tr *FakeTokenRepo) ListByAccount(_ context.Context, accountID string, tokenType token.Type) ([]*token.AccessToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	list := make([]*token.AccessToken, 0)
	for _, t := range tr.tokens {
		if t.AccountID == accountID && t.Type == tokenType {
			copied := *t
			list = append(list, &copied)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (tr *FakeTokenRepo) Revoke(_ context.Context, id string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	record, ok := tr.tokens[id]
	if !ok {
		return token.ErrNotFound
	}
	record.Revoked = true
	return nil
}

func (tr *FakeTokenRepo) RevokeAllForAccount(_ context.Context, accountID string, tokenType token.Type) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for _, t := range tr.tokens {
		if t.AccountID == accountID && t.Type == tokenType && !t.Revoked {
			t.Revoked = true
		}
	}
	return nil
}
