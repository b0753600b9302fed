package legacy

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Documents is a collection of legacy documents. Lookups that find nothing
// return a nil document and no error.
type Documents[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, filter map[string]any) (*T, error)
	Create(ctx context.Context, doc *T) error
	Update(ctx context.Context, id string, fields map[string]any) (*T, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

type MongoDocuments[T any] struct {
	coll    *mongo.Collection
	id      func(string) (any, error)
	fields  map[string]struct{}
	prepare func(*T)
}

func NewAccounts(db *mongo.Database) *MongoDocuments[Account] {
	return &MongoDocuments[Account]{
		coll:   db.Collection("accounts"),
		id:     objectID,
		fields: accountFields,
		prepare: func(a *Account) {
			if a.ID.IsZero() {
				a.ID = primitive.NewObjectID()
			}
			if a.DateCreated == nil {
				now := time.Now().UTC()
				a.DateCreated = &now
			}
		},
	}
}

func NewMessages(db *mongo.Database) *MongoDocuments[Message] {
	return &MongoDocuments[Message]{
		coll:   db.Collection("messages"),
		id:     func(s string) (any, error) { return s, nil },
		fields: messageFields,
		prepare: func(m *Message) {
			if m.DateCreated.IsZero() {
				m.DateCreated = time.Now().UTC()
			}
		},
	}
}

func objectID(s string) (any, error) {
	return primitive.ObjectIDFromHex(s)
}

func (d *MongoDocuments[T]) List(ctx context.Context) ([]T, error) {
	cursor, err := d.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (d *MongoDocuments[T]) Get(ctx context.Context, id string) (*T, error) {
	key, err := d.id(id)
	if err != nil {
		return nil, err
	}
	return d.findOne(ctx, bson.M{"_id": key})
}

func (d *MongoDocuments[T]) FindOne(ctx context.Context, filter map[string]any) (*T, error) {
	return d.findOne(ctx, bson.M(sanitize(filter, d.fields)))
}

func (d *MongoDocuments[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	var doc T
	err := d.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *MongoDocuments[T]) Create(ctx context.Context, doc *T) error {
	if d.prepare != nil {
		d.prepare(doc)
	}
	_, err := d.coll.InsertOne(ctx, doc)
	return err
}

func (d *MongoDocuments[T]) Update(ctx context.Context, id string, fields map[string]any) (*T, error) {
	key, err := d.id(id)
	if err != nil {
		return nil, err
	}

	set := sanitize(fields, d.fields)
	if len(set) == 0 {
		return d.findOne(ctx, bson.M{"_id": key})
	}

	var doc T
	err = d.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *MongoDocuments[T]) Delete(ctx context.Context, id string) error {
	key, err := d.id(id)
	if err != nil {
		return err
	}
	_, err = d.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (d *MongoDocuments[T]) DeleteAll(ctx context.Context) error {
	_, err := d.coll.DeleteMany(ctx, bson.M{})
	return err
}

// Connect opens the document store and checks it is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
