package storage

import (
	"errors"
	"fmt"
	"time"

	"secureentry/internal/clock"

	"go.etcd.io/bbolt"
)

var bucketClock = []byte("secureentry.clock")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

type BboltStorage struct {
	db     *bbolt.DB
	sealer *Sealer
}

// NewBboltStorage opens the database at path. Records are sealed with a key
// derived from secret.
func NewBboltStorage(path string, secret []byte) (*BboltStorage, error) {
	sealer, err := NewSealer(secret)
	if err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketClock); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BboltStorage{db: db, sealer: sealer}, nil
}

func (s *BboltStorage) Close() error {
	return s.db.Close()
}

// put seals and stores a record in bucket.
func (s *BboltStorage) put(bucket []byte, record Storeable) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := record.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		sealed, err := s.sealer.Seal(data, record.Key())
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put(record.Key(), sealed)
	})
}

// get opens and decodes the record stored under record.Key().
func (s *BboltStorage) get(bucket []byte, record Storeable) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		sealed := tx.Bucket(bucket).Get(record.Key())
		if sealed == nil {
			return ErrNotFound
		}
		data, err := s.sealer.Open(sealed, record.Key())
		if err != nil {
			return err
		}
		if err := record.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})
}

// SaveOffset stores the last successful clock measurement.
func (s *BboltStorage) SaveOffset(o clock.Offset) error {
	return s.put(bucketClock, &DBClockOffset{
		Offset:     int64(o.Offset),
		MeasuredAt: o.MeasuredAt.UnixMilli(),
	})
}

// LoadOffset returns the stored clock measurement. A missing record is not an
// error; a record sealed with another key is.
func (s *BboltStorage) LoadOffset() (clock.Offset, bool, error) {
	var rec DBClockOffset
	err := s.get(bucketClock, &rec)
	if errors.Is(err, ErrNotFound) {
		return clock.Offset{}, false, nil
	}
	if err != nil {
		return clock.Offset{}, false, err
	}
	return clock.Offset{
		Offset:     time.Duration(rec.Offset),
		MeasuredAt: time.UnixMilli(rec.MeasuredAt),
	}, true, nil
}

// DeleteOffset removes the stored clock measurement.
func (s *BboltStorage) DeleteOffset() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClock).Delete((&DBClockOffset{}).Key())
	})
}
