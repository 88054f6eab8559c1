// Package storage persists fetched account bytes and inspection reports in a
// local pebble database.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/sasinspect/pkg/codec"
)

var (
	accountPrefix = []byte("acct/")
	reportPrefix  = []byte("report/")
)

// ErrNotFound is returned when a key is absent
var ErrNotFound = errors.New("not found")

// CachedAccount is the raw state of an account as last fetched
type CachedAccount struct {
	Address   codec.Identifier `json:"address"`
	Owner     codec.Identifier `json:"owner"`
	Lamports  uint64           `json:"lamports"`
	Data      []byte           `json:"data"`
	FetchedAt time.Time        `json:"fetchedAt"`
}

// Storage is the account cache and report store
type Storage interface {
	PutAccount(acct CachedAccount) error
	GetAccount(address codec.Identifier) (*CachedAccount, error)
	DeleteAccount(address codec.Identifier) error

	SaveReport(id ksuid.KSUID, data []byte) error
	ReadReport(id ksuid.KSUID) ([]byte, error)
	ListReports(limit int) ([]ksuid.KSUID, error)
	DeleteReport(id ksuid.KSUID) error

	Close() error
}

type DefaultStorage struct {
	db *pebble.DB
}

func NewDefaultStorage(path string) (*DefaultStorage, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage at %s: %w", path, err)
	}
	return &DefaultStorage{db: db}, nil
}

// NewMemoryStorage opens a database that lives only in memory
func NewMemoryStorage() (*DefaultStorage, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("failed to open memory storage: %w", err)
	}
	return &DefaultStorage{db: db}, nil
}

func (s *DefaultStorage) PutAccount(acct CachedAccount) error {
	if acct.FetchedAt.IsZero() {
		acct.FetchedAt = time.Now().UTC()
	}
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("failed to encode account %s: %w", acct.Address, err)
	}
	return s.db.Set(accountKey(acct.Address), data, pebble.NoSync)
}

func (s *DefaultStorage) GetAccount(address codec.Identifier) (*CachedAccount, error) {
	data, err := s.get(accountKey(address))
	if err != nil {
		return nil, err
	}

	var acct CachedAccount
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("corrupt cache entry for %s: %w", address, err)
	}
	return &acct, nil
}

func (s *DefaultStorage) DeleteAccount(address codec.Identifier) error {
	return s.db.Delete(accountKey(address), pebble.NoSync)
}

func (s *DefaultStorage) SaveReport(id ksuid.KSUID, data []byte) error {
	if id.IsNil() {
		return fmt.Errorf("report id is required")
	}
	return s.db.Set(reportKey(id), data, pebble.Sync)
}

func (s *DefaultStorage) ReadReport(id ksuid.KSUID) ([]byte, error) {
	return s.get(reportKey(id))
}

// ListReports returns up to limit report IDs, newest first. A limit of zero
// or less returns all of them.
func (s *DefaultStorage) ListReports(limit int) ([]ksuid.KSUID, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: reportPrefix,
		UpperBound: upperBound(reportPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	for valid := iter.Last(); valid; valid = iter.Prev() {
		id, err := ksuid.FromBytes(iter.Key()[len(reportPrefix):])
		if err != nil {
			return nil, fmt.Errorf("corrupt report key: %w", err)
		}
		ids = append(ids, id)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids, iter.Error()
}

func (s *DefaultStorage) DeleteReport(id ksuid.KSUID) error {
	return s.db.Delete(reportKey(id), pebble.NoSync)
}

func (s *DefaultStorage) Close() error {
	return s.db.Close()
}

// get copies the value out before releasing it back to pebble
func (s *DefaultStorage) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func accountKey(address codec.Identifier) []byte {
	return append(append([]byte{}, accountPrefix...), address[:]...)
}

func reportKey(id ksuid.KSUID) []byte {
	return append(append([]byte{}, reportPrefix...), id.Bytes()...)
}

func upperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
