package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docutrack/docutrack/internal/log"
	"github.com/docutrack/docutrack/internal/models"
	"github.com/docutrack/docutrack/internal/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	eventsCollection    = "events"
	documentsCollection = "documents"
	usersCollection     = "users"
	rulesCollection     = "notification_rules"

	watchRetryDelay = 5 * time.Second
)

// MongoStore keeps events and documents as two collections; documents carry
// their parent's id in eventId. Cascade deletes and change streams need a
// replica set deployment.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	broker *Broker
}

func ConnectMongo(ctx context.Context, uri, dbName string, broker *Broker) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	if broker == nil {
		broker = NewBroker()
	}

	s := &MongoStore{client: client, db: client.Database(dbName), broker: broker}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[string]mongo.IndexModel{
		eventsCollection:    {Keys: bson.D{{Key: "userId", Value: 1}}},
		documentsCollection: {Keys: bson.D{{Key: "eventId", Value: 1}, {Key: "createdAt", Value: 1}}},
		usersCollection:     {Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		rulesCollection:     {Keys: bson.D{{Key: "userId", Value: 1}}},
	}

	for coll, index := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateOne(ctx, index); err != nil {
			return fmt.Errorf("create index on %s: %w", coll, err)
		}
	}

	return nil
}

func (s *MongoStore) Broker() *Broker {
	return s.broker
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrConflict
	default:
		return err
	}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...options.Lister[options.FindOptions]) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []T{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Events

func (s *MongoStore) SubscribeEvents(ctx context.Context, userID string) (*Subscription[models.Event], error) {
	return watch(ctx, s.broker, EventsTopic(userID), func(ctx context.Context) ([]models.Event, error) {
		return s.ListEvents(ctx, userID)
	}), nil
}

func (s *MongoStore) ListEvents(ctx context.Context, userID string) ([]models.Event, error) {
	events, err := findAll[models.Event](ctx, s.db.Collection(eventsCollection), bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *MongoStore) GetEvent(ctx context.Context, id string) (models.Event, error) {
	var event models.Event
	err := s.db.Collection(eventsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	return event, translateMongo(err)
}

func (s *MongoStore) CreateEvent(ctx context.Context, event *models.Event) error {
	event.Stamp(time.Now().UTC())
	if event.ReminderPreference == "" {
		event.ReminderPreference = types.ReminderNone
	}

	if _, err := s.db.Collection(eventsCollection).InsertOne(ctx, event); err != nil {
		return translateMongo(err)
	}

	s.broker.Publish(EventsTopic(event.UserID))
	return nil
}

func eventSet(p models.EventPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.ClearDueDate {
		set["dueDate"] = nil
	} else if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	if p.IsCompleted != nil {
		set["isCompleted"] = *p.IsCompleted
	}
	if p.ReminderPreference != nil {
		set["reminderPreference"] = *p.ReminderPreference
	}
	return set
}

func (s *MongoStore) UpdateEvent(ctx context.Context, id string, patch models.EventPatch) error {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}

	if set := eventSet(patch); len(set) > 0 {
		if _, err := s.db.Collection(eventsCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
			return translateMongo(err)
		}
	}

	s.broker.Publish(EventsTopic(event.UserID))
	return nil
}

func (s *MongoStore) DeleteEventCascade(ctx context.Context, id string) error {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		if _, err := s.db.Collection(documentsCollection).DeleteMany(ctx, bson.M{"eventId": id}); err != nil {
			return nil, err
		}
		res, err := s.db.Collection(eventsCollection).DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, ErrNotFound
		}
		return nil, nil
	})
	if err != nil {
		return translateMongo(err)
	}

	s.broker.Publish(EventsTopic(event.UserID), DocumentsTopic(id))
	return nil
}

func (s *MongoStore) ListReminderEvents(ctx context.Context) ([]models.Event, error) {
	filter := bson.M{
		"isCompleted":        false,
		"dueDate":            bson.M{"$ne": nil},
		"reminderPreference": bson.M{"$nin": bson.A{types.ReminderNone, ""}},
	}

	events, err := findAll[models.Event](ctx, s.db.Collection(eventsCollection), filter)
	if err != nil {
		return nil, fmt.Errorf("list reminder events: %w", err)
	}
	return events, nil
}

// Documents

func (s *MongoStore) SubscribeDocuments(ctx context.Context, eventID string) (*Subscription[models.Document], error) {
	return watch(ctx, s.broker, DocumentsTopic(eventID), func(ctx context.Context) ([]models.Document, error) {
		return s.ListDocuments(ctx, eventID)
	}), nil
}

func (s *MongoStore) ListDocuments(ctx context.Context, eventID string) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})

	docs, err := findAll[models.Document](ctx, s.db.Collection(documentsCollection), bson.M{"eventId": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *MongoStore) GetDocument(ctx context.Context, eventID, id string) (models.Document, error) {
	var doc models.Document
	err := s.db.Collection(documentsCollection).FindOne(ctx, bson.M{"_id": id, "eventId": eventID}).Decode(&doc)
	return doc, translateMongo(err)
}

func (s *MongoStore) CreateDocument(ctx context.Context, eventID string, doc *models.Document) error {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return err
	}

	doc.Stamp(time.Now().UTC())
	doc.EventID = eventID
	doc.Normalize()

	if _, err := s.db.Collection(documentsCollection).InsertOne(ctx, doc); err != nil {
		return translateMongo(err)
	}

	s.broker.Publish(DocumentsTopic(eventID))
	return nil
}

func documentSet(p models.DocumentPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.GoogleDocsLink != nil {
		set["googleDocsLink"] = *p.GoogleDocsLink
	}
	if p.DueDate != nil {
		set["dueDate"] = *p.DueDate
	}
	if p.Status != nil {
		set["status"] = *p.Status
		set["isCompleted"] = p.Status.IsCompleted()
	}
	return set
}

func (s *MongoStore) UpdateDocument(ctx context.Context, eventID, id string, patch models.DocumentPatch) error {
	filter := bson.M{"_id": id, "eventId": eventID}

	set := documentSet(patch)
	if len(set) == 0 {
		if _, err := s.GetDocument(ctx, eventID, id); err != nil {
			return err
		}
	} else {
		res, err := s.db.Collection(documentsCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
		if err != nil {
			return translateMongo(err)
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
	}

	s.broker.Publish(DocumentsTopic(eventID))
	return nil
}

func (s *MongoStore) DeleteDocument(ctx context.Context, eventID, id string) error {
	res, err := s.db.Collection(documentsCollection).DeleteOne(ctx, bson.M{"_id": id, "eventId": eventID})
	if err != nil {
		return translateMongo(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	s.broker.Publish(DocumentsTopic(eventID))
	return nil
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Stamp(time.Now().UTC())
	_, err := s.db.Collection(usersCollection).InsertOne(ctx, user)
	return translateMongo(err)
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"email": email}).Decode(&user)
	return user, translateMongo(err)
}

func (s *MongoStore) UserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	return user, translateMongo(err)
}

// Notification rules

func (s *MongoStore) CreateRule(ctx context.Context, rule *models.NotificationRule) error {
	rule.Stamp(time.Now().UTC())
	_, err := s.db.Collection(rulesCollection).InsertOne(ctx, rule)
	return translateMongo(err)
}

func (s *MongoStore) ListRules(ctx context.Context, userID string) ([]models.NotificationRule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	rules, err := findAll[models.NotificationRule](ctx, s.db.Collection(rulesCollection), bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notification rules: %w", err)
	}
	return rules, nil
}

func (s *MongoStore) DeleteRule(ctx context.Context, userID, id string) error {
	res, err := s.db.Collection(rulesCollection).DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return translateMongo(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Change streams

type changeEvent struct {
	OperationType string `bson:"operationType"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
	FullDocument *struct {
		UserID  string `bson:"userId"`
		EventID string `bson:"eventId"`
	} `bson:"fullDocument"`
}

// topicsForChange maps a change stream event to broker topics. Deletes carry
// no document body, so they fall back to a prefix covering every scope of
// that collection.
func topicsForChange(ev changeEvent) (topics []string, prefix string) {
	switch ev.NS.Coll {
	case eventsCollection:
		if ev.FullDocument != nil && ev.FullDocument.UserID != "" {
			return []string{EventsTopic(ev.FullDocument.UserID)}, ""
		}
		return nil, EventsTopicPrefix
	case documentsCollection:
		if ev.FullDocument != nil && ev.FullDocument.EventID != "" {
			return []string{DocumentsTopic(ev.FullDocument.EventID)}, ""
		}
		return nil, "events/"
	default:
		return nil, ""
	}
}

// Watch relays the database change stream into the broker until ctx is
// cancelled, reopening the stream after failures.
func (s *MongoStore) Watch(ctx context.Context) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"ns.coll": bson.M{"$in": bson.A{eventsCollection, documentsCollection}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for {
		err := s.watchOnce(ctx, pipeline, opts)
		if ctx.Err() != nil {
			return
		}
		log.Error("Mongo change stream stopped, retrying", err, "delay", watchRetryDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetryDelay):
		}

		// Changes may have been missed while the stream was down.
		s.broker.PublishPrefix("")
	}
}

func (s *MongoStore) watchOnce(ctx context.Context, pipeline mongo.Pipeline, opts *options.ChangeStreamOptionsBuilder) error {
	stream, err := s.db.Watch(ctx, pipeline, opts)
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var ev changeEvent
		if err := stream.Decode(&ev); err != nil {
			log.Error("Failed to decode change event", err)
			continue
		}

		topics, prefix := topicsForChange(ev)
		if len(topics) > 0 {
			s.broker.Publish(topics...)
		}
		if prefix != "" {
			s.broker.PublishPrefix(prefix)
		}
	}

	if err := stream.Err(); err != nil {
		return err
	}
	return errors.New("change stream closed")
}

var _ Store = (*MongoStore)(nil)

// MaskURI hides credentials in a connection string for logging.
func MaskURI(uri string) string {
	at := strings.LastIndex(uri, "@")
	scheme := strings.Index(uri, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return uri
	}
	return uri[:scheme+3] + "***" + uri[at:]
}
