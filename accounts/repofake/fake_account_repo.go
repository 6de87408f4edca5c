package fakeaccountrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veridianhq/veridian-server/accounts"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts map[string]*accounts.Account
	emailIDs map[string]string // email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*accounts.Account),
		emailIDs: make(map[string]string),
	}
}

func (ar *FakeAccountRepo) Upsert(_ context.Context, account *accounts.Account) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account.Email = accounts.NormalizeEmail(account.Email)
	if existingID, ok := ar.emailIDs[account.Email]; ok {
		account.ID = existingID
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
		account.CreatedAt = time.Now()
	}
	account.UpdatedAt = time.Now()

	copied := *account
	ar.accounts[account.ID] = &copied
	ar.emailIDs[account.Email] = account.ID
	return nil
}

func (ar *FakeAccountRepo) GetByEmail(_ context.Context, email string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIDs[accounts.NormalizeEmail(email)]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	copied := *ar.accounts[id]
	return &copied, nil
}

func (ar *FakeAccountRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (ar *FakeAccountRepo) SetActive(_ context.Context, email string, active bool) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	id, ok := ar.emailIDs[accounts.NormalizeEmail(email)]
	if !ok {
		return accounts.ErrNotFound
	}
	ar.accounts[id].Active = active
	return nil
}

func (ar *FakeAccountRepo) List(_ context.Context, offset, limit int) ([]*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	list := make([]*accounts.Account, 0, len(ar.accounts))
	for _, a := range ar.accounts {
		copied := *a
		list = append(list, &copied)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}
