package catalog

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const rowsBucketName = "catalog_rows"

// BoltSource implements the Source interface using BoltDB.
// Rows are keyed by a big-endian sequence so cursor order is import order.
type BoltSource struct {
	db *bbolt.DB
}

// NewBoltSource opens (or creates) a catalog store at path
func NewBoltSource(path string) (*BoltSource, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rowsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltSource{db: db}, nil
}

// Replace swaps the stored catalog for rows in a single transaction
func (b *BoltSource) Replace(rows []Row) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(rowsBucketName)); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("clearing catalog: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(rowsBucketName))
		if err != nil {
			return fmt.Errorf("creating catalog bucket: %w", err)
		}
		for _, row := range rows {
			seq, err := bucket.NextSequence()
			if err != nil {
				return fmt.Errorf("allocating key: %w", err)
			}
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("marshaling row: %w", err)
			}
			if err := bucket.Put(itob(seq), data); err != nil {
				return fmt.Errorf("storing row %d: %w", row.Line, err)
			}
		}
		return nil
	})
}

// Rows reads every stored row in import order
func (b *BoltSource) Rows(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]Row, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(rowsBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var row Row
			if err := json.Unmarshal(v, &row); err != nil {
				return fmt.Errorf("unmarshaling row: %w", err)
			}
			rows = append(rows, row)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Close closes the database connection
func (b *BoltSource) Close() error {
	return b.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
