// Package mongo is the MongoDB-backed store. Each owner gets a pair of
// collections, one for borrowers and one for call records, mirroring the
// per-tenant layout the agency dashboards read from.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harunnryd/vidya/pkg/errorsx"
	"github.com/harunnryd/vidya/pkg/store"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Database == "" {
		c.Database = "vidya"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

type Store struct {
	client *driver.Client
	db     *driver.Database
}

// New connects and verifies the deployment is reachable before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.URI == "" {
		return nil, errorsx.New(errorsx.ReasonConfigInvalid, "mongo uri is required")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := driver.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) borrowers(ownerID string) *driver.Collection {
	return s.db.Collection(fmt.Sprintf("owner_%s_borrowers", ownerID))
}

func (s *Store) calls(ownerID string) *driver.Collection {
	return s.db.Collection(fmt.Sprintf("owner_%s_calls", ownerID))
}

// SaveCallRecord upserts by call identifier so a replayed completion event
// rewrites the same document instead of duplicating it.
func (s *Store) SaveCallRecord(ctx context.Context, ownerID string, rec store.CallRecord) error {
	_, err := s.calls(ownerID).UpdateOne(ctx,
		bson.M{"call_id": rec.CallID},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreWrite)
	}
	return nil
}

func (s *Store) GetBorrower(ctx context.Context, ownerID, borrowerID string) (store.Borrower, error) {
	var b store.Borrower
	err := s.borrowers(ownerID).FindOne(ctx, bson.M{"_id": borrowerID}).Decode(&b)
	if err == driver.ErrNoDocuments {
		return store.Borrower{}, errorsx.New(errorsx.ReasonStoreNotFound, "borrower %s not found for owner %s", borrowerID, ownerID)
	}
	if err != nil {
		return store.Borrower{}, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	return b, nil
}

func (s *Store) UpdateBorrower(ctx context.Context, ownerID string, b store.Borrower) error {
	_, err := s.borrowers(ownerID).ReplaceOne(ctx,
		bson.M{"_id": b.ID},
		b,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreWrite)
	}
	return nil
}

func (s *Store) ListBorrowers(ctx context.Context, ownerID string) ([]store.Borrower, error) {
	cur, err := s.borrowers(ownerID).Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	defer cur.Close(ctx)

	var out []store.Borrower
	if err := cur.All(ctx, &out); err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	return out, nil
}

var _ store.Store = (*Store)(nil)
