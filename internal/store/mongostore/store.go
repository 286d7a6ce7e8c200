package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zoq/relay/internal/models"
	"github.com/zoq/relay/internal/store"
)

const (
	defaultMaxPoolSize    = 100
	defaultConnectTimeout = 10 * time.Second
)

// MongoStore implements store.Store against the same collections the
// directory service writes.
type MongoStore struct {
	client   *mongo.Client
	messages *mongo.Collection
	users    *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(defaultMaxPoolSize).
		SetConnectTimeout(defaultConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:   client,
		messages: db.Collection("messages"),
		users:    db.Collection("users"),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type messageDoc struct {
	ID         string    `bson:"id"`
	FromUserID string    `bson:"from_user_id"`
	ToUserID   string    `bson:"to_user_id"`
	Content    string    `bson:"content"`
	Read       bool      `bson:"read"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d messageDoc) model() models.Message {
	return models.Message{
		ID:         d.ID,
		FromUserID: d.FromUserID,
		ToUserID:   d.ToUserID,
		Content:    d.Content,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func (s *MongoStore) SaveMessage(ctx context.Context, fromUserID, toUserID, content string) (models.Message, error) {
	doc := messageDoc{
		ID:         uuid.NewString(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return models.Message{}, err
	}
	return doc.model(), nil
}

func (s *MongoStore) MessagesBetween(ctx context.Context, userID, partnerID string) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from_user_id": userID, "to_user_id": partnerID},
		bson.M{"from_user_id": partnerID, "to_user_id": userID},
	}}
	return s.findMessages(ctx, filter, 1)
}

func (s *MongoStore) MarkRead(ctx context.Context, fromUserID, toUserID string) error {
	filter := bson.M{"from_user_id": fromUserID, "to_user_id": toUserID, "read": false}
	_, err := s.messages.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	return err
}

func (s *MongoStore) MessagesInvolving(ctx context.Context, userID string) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"from_user_id": userID},
		bson.M{"to_user_id": userID},
	}}
	return s.findMessages(ctx, filter, -1)
}

func (s *MongoStore) findMessages(ctx context.Context, filter bson.M, order int) ([]models.Message, error) {
	cur, err := s.messages.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: order}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var messages []models.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		messages = append(messages, doc.model())
	}
	return messages, cur.Err()
}

type userDoc struct {
	ID         string `bson:"id"`
	Username   string `bson:"username"`
	ProfilePic string `bson:"profile_pic,omitempty"`
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.User{ID: doc.ID, Username: doc.Username, ProfilePic: doc.ProfilePic}, nil
}
