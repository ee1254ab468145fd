package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skillconnect/skillconnect-backend/internal/conversation"
	"github.com/skillconnect/skillconnect-backend/internal/database"
)

const messagesCollection = "messages"

// messageDoc is the MongoDB shape of a direct message. pair_key is the
// normalized participant pair so both directions of a conversation share
// one index prefix.
type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	FromUser  string             `bson:"from_user"`
	ToUser    string             `bson:"to_user"`
	PairKey   string             `bson:"pair_key"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d messageDoc) toMessage() conversation.Message {
	return conversation.Message{
		ID:        d.ID.Hex(),
		FromUser:  d.FromUser,
		ToUser:    d.ToUser,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
	}
}

// MessageStore persists direct messages in MongoDB and implements
// conversation.MessageStore.
type MessageStore struct{}

// Messages is the process-wide message store.
var Messages = &MessageStore{}

// EnsureMessageIndexes configures indexes for the messages collection.
// Called on startup from main after Mongo has connected.
func EnsureMessageIndexes(ctx context.Context) error {
	col := database.DB.Collection(messagesCollection)

	indexes := []mongo.IndexModel{
		{
			// Pair history loads, ascending by time.
			Keys: bson.D{
				{Key: "pair_key", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_pair_created"),
		},
		{
			// Per-user history for summary initialization.
			Keys:    bson.D{{Key: "from_user", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_from_created"),
		},
		{
			Keys:    bson.D{{Key: "to_user", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_to_created"),
		},
	}

	for _, m := range indexes {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// History returns every message the viewer sent or received, newest first.
// Identifier is the secondary sort key so equal timestamps order
// deterministically.
func (s *MessageStore) History(ctx context.Context, viewer string) ([]conversation.Message, error) {
	col := database.DB.Collection(messagesCollection)

	filter := bson.M{"$or": bson.A{
		bson.M{"from_user": viewer},
		bson.M{"to_user": viewer},
	}}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	return s.find(ctx, col, filter, opts)
}

// Between returns the full conversation between a and b, oldest first.
func (s *MessageStore) Between(ctx context.Context, a, b string) ([]conversation.Message, error) {
	col := database.DB.Collection(messagesCollection)

	filter := bson.M{"pair_key": conversation.PairKey(a, b)}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	msgs, err := s.find(ctx, col, filter, opts)
	if err != nil {
		return nil, err
	}
	WarmRecentPairCache(ctx, conversation.PairKey(a, b), msgs)
	return msgs, nil
}

// Insert stores a new message and returns it with the assigned identifier.
// Content is trimmed; empty content is rejected by the conversation layer
// before it gets here, but the store trims anyway so the record is clean.
func (s *MessageStore) Insert(ctx context.Context, from, to, content string) (conversation.Message, error) {
	doc := messageDoc{
		ID:        primitive.NewObjectID(),
		FromUser:  from,
		ToUser:    to,
		PairKey:   conversation.PairKey(from, to),
		Content:   strings.TrimSpace(content),
		CreatedAt: time.Now().UTC(),
	}

	col := database.DB.Collection(messagesCollection)
	if _, err := col.InsertOne(ctx, doc); err != nil {
		return conversation.Message{}, err
	}

	msg := doc.toMessage()
	PushMessageToRecentCache(msg)
	return msg, nil
}

func (s *MessageStore) find(ctx context.Context, col *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]conversation.Message, error) {
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []conversation.Message
	for cur.Next(ctx) {
		var d messageDoc
		if err := cur.Decode(&d); err != nil {
			continue
		}
		msgs = append(msgs, d.toMessage())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
