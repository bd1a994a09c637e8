package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashedPassword"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CreateUser stores u with a fresh id. Email and username are unique.
func (d *DB) CreateUser(_ context.Context, u User) (User, error) {
	u.ID = uuid.NewString()
	u.Email = normEmail(u.Email)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	err := d.db.Update(func(txn *badger.Txn) error {
		for _, k := range []string{userEmailPrefix + u.Email, userNamePrefix + u.Username} {
			ok, err := exists(txn, k)
			if err != nil {
				return err
			}
			if ok {
				return ErrConflict
			}
		}
		if err := setJSON(txn, userKeyPrefix+u.ID, u); err != nil {
			return err
		}
		if err := txn.Set([]byte(userEmailPrefix+u.Email), []byte(u.ID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
		if err := txn.Set([]byte(userNamePrefix+u.Username), []byte(u.ID)); err != nil {
			return fmt.Errorf("set username index: %w", err)
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (d *DB) UserByID(_ context.Context, id string) (User, error) {
	var u User
	err := d.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKeyPrefix+id, &u)
	})
	return u, err
}

func (d *DB) UserByEmail(ctx context.Context, email string) (User, error) {
	return d.userByIndex(ctx, userEmailPrefix+normEmail(email))
}

func (d *DB) UserByUsername(ctx context.Context, username string) (User, error) {
	return d.userByIndex(ctx, userNamePrefix+username)
}

func (d *DB) userByIndex(_ context.Context, indexKey string) (User, error) {
	var u User
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indexKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", indexKey, err)
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read %s: %w", indexKey, err)
		}
		return getJSON(txn, userKeyPrefix+string(id), &u)
	})
	return u, err
}
