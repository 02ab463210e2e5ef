package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/astview/pkg/ast"
	"github.com/matzehuels/astview/pkg/errors"
)

// DefaultMongoCollection is used when the URI names no collection.
const DefaultMongoCollection = "asts"

// Mongo reads every document of a MongoDB collection, one tree per
// document, in insertion (_id) order. The _id field is not part of the tree.
type Mongo struct {
	URI        string // connection string without the collection parameter
	Database   string
	Collection string
	Timeout    time.Duration
}

// ParseMongoURI splits mongodb://host/db?collection=name into a source.
func ParseMongoURI(uri string) (*Mongo, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, err, "invalid MongoDB URI")
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return nil, errors.New(errors.ErrCodeInvalidSource, "MongoDB URI must name a database: mongodb://host/<db>")
	}

	q := u.Query()
	coll := q.Get("collection")
	if coll == "" {
		coll = DefaultMongoCollection
	}
	q.Del("collection")
	u.RawQuery = q.Encode()

	return &Mongo{URI: u.String(), Database: db, Collection: coll, Timeout: 30 * time.Second}, nil
}

// Load connects, reads the collection and disconnects.
func (m *Mongo) Load(ctx context.Context) (ast.Collection, error) {
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.URI))
	if err != nil {
		return result(nil, fmt.Errorf("connect: %w", err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return result(m.read(ctx, client.Database(m.Database).Collection(m.Collection)))
}

func (m *Mongo) read(ctx context.Context, coll *mongo.Collection) (ast.Collection, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	cursor, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var out ast.Collection
	for cursor.Next(ctx) {
		v, err := decodeDocument(cursor.Current)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", len(out), err)
		}
		out = append(out, v)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeDocument converts a BSON document to an AST through relaxed
// extended JSON, which keeps field order and renders numbers as plain JSON.
func decodeDocument(doc bson.Raw) (ast.Value, error) {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return ast.Value{}, err
	}
	return ast.Parse(data)
}

func (m *Mongo) String() string {
	return fmt.Sprintf("mongodb:%s.%s", m.Database, m.Collection)
}
