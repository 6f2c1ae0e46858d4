package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus"
	"github.com/vladyslavplus/KosherClouds-sub002/platform/eventbus/outbox"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/domain"
	"github.com/vladyslavplus/KosherClouds-sub002/services/review/internal/repository"
)

// CollectionName коллекция отзывов
const CollectionName = "reviews"

// ReviewDocument представляет документ в коллекции MongoDB
type ReviewDocument struct {
	ID              string           `bson:"_id"`
	OrderID         string           `bson:"order_id"`
	ProductID       string           `bson:"product_id"`
	UserID          string           `bson:"user_id"`
	Rating          int              `bson:"rating"`
	Comment         string           `bson:"comment,omitempty"`
	Status          string           `bson:"status"`
	ModerationNotes string           `bson:"moderation_notes,omitempty"`
	ModeratedBy     string           `bson:"moderated_by,omitempty"`
	ModeratedAt     *time.Time       `bson:"moderated_at,omitempty"`
	Outbox          []OutboxDocument `bson:"outbox,omitempty"`
	Purged          bool             `bson:"purged,omitempty"`
	Version         int64            `bson:"version"`
	CreatedAt       time.Time        `bson:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at"`
}

// OutboxDocument неотправленное событие, хранится в массиве outbox документа отзыва
type OutboxDocument struct {
	EventID       string    `bson:"event_id"`
	EventType     string    `bson:"event_type"`
	SchemaVersion int       `bson:"schema_version"`
	OccurredAt    time.Time `bson:"occurred_at"`
	PartitionKey  string    `bson:"partition_key"`
	Producer      string    `bson:"producer,omitempty"`
	Payload       []byte    `bson:"payload"`
	Attempts      int       `bson:"attempts"`
	LastError     string    `bson:"last_error,omitempty"`
}

func toOutboxDocument(p domain.PendingEvent) OutboxDocument {
	return OutboxDocument{
		EventID:       p.Envelope.EventID,
		EventType:     p.Envelope.EventType,
		SchemaVersion: p.Envelope.SchemaVersion,
		OccurredAt:    p.Envelope.OccurredAt,
		PartitionKey:  p.Envelope.PartitionKey,
		Producer:      p.Envelope.Producer,
		Payload:       []byte(p.Envelope.Payload),
		Attempts:      p.Attempts,
		LastError:     p.LastError,
	}
}

func (d OutboxDocument) toDomain() domain.PendingEvent {
	return domain.PendingEvent{
		Envelope: eventbus.Envelope{
			EventID:       d.EventID,
			EventType:     d.EventType,
			SchemaVersion: d.SchemaVersion,
			OccurredAt:    d.OccurredAt.UTC(),
			PartitionKey:  d.PartitionKey,
			Producer:      d.Producer,
			Payload:       d.Payload,
		},
		Attempts:  d.Attempts,
		LastError: d.LastError,
	}
}

func toDocument(r domain.Review) ReviewDocument {
	var pending []OutboxDocument
	for _, p := range r.Outbox {
		pending = append(pending, toOutboxDocument(p))
	}
	return ReviewDocument{
		ID:              r.ID,
		OrderID:         r.OrderID,
		ProductID:       r.ProductID,
		UserID:          r.UserID,
		Rating:          r.Rating,
		Comment:         r.Comment,
		Status:          string(r.Status),
		ModerationNotes: r.ModerationNotes,
		ModeratedBy:     r.ModeratedBy,
		ModeratedAt:     r.ModeratedAt,
		Outbox:          pending,
		Purged:          r.Purged,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d ReviewDocument) toDomain() domain.Review {
	var moderatedAt *time.Time
	if d.ModeratedAt != nil {
		t := d.ModeratedAt.UTC()
		moderatedAt = &t
	}
	var pending []domain.PendingEvent
	for _, p := range d.Outbox {
		pending = append(pending, p.toDomain())
	}
	return domain.Review{
		ID:              d.ID,
		OrderID:         d.OrderID,
		ProductID:       d.ProductID,
		UserID:          d.UserID,
		Rating:          d.Rating,
		Comment:         d.Comment,
		Status:          domain.Status(d.Status),
		ModerationNotes: d.ModerationNotes,
		ModeratedBy:     d.ModeratedBy,
		ModeratedAt:     moderatedAt,
		Outbox:          pending,
		Purged:          d.Purged,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

// Repository реализует ReviewRepository используя MongoDB
type Repository struct {
	col *mongo.Collection
}

// NewRepository создаёт MongoDB репозиторий и уникальный индекс (order_id, product_id, user_id).
// Для отзыва на заказ product_id = "", так что индекс покрывает оба правила уникальности.
func NewRepository(ctx context.Context, client *mongo.Client, dbName string) (*Repository, error) {
	col := client.Database(dbName).Collection(CollectionName)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_order_product_user"),
		},
		{
			Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "outbox.event_id", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("outbox_event_id"),
		},
	}
	if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("create review indexes: %w", err)
	}

	return &Repository{col: col}, nil
}

// Create вставляет документ отзыва
func (r *Repository) Create(ctx context.Context, review domain.Review) error {
	_, err := r.col.InsertOne(ctx, toDocument(review))
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrAlreadyExists
	}
	return err
}

// GetByID получает отзыв по _id
func (r *Repository) GetByID(ctx context.Context, id string) (domain.Review, error) {
	var doc ReviewDocument
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Review{}, repository.ErrNotFound
		}
		return domain.Review{}, err
	}
	return doc.toDomain(), nil
}

// ListByOrder отзывы заказа в порядке создания
func (r *Repository) ListByOrder(ctx context.Context, orderID string) ([]domain.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []ReviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// Update атомарно заменяет документ, если version совпадает
// Использует FindOneAndReplace: фильтр по _id и version, новая версия = version+1
func (r *Repository) Update(ctx context.Context, review domain.Review) (domain.Review, error) {
	expected := review.Version
	review.Version++

	filter := bson.M{"_id": review.ID, "version": expected}
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var updated ReviewDocument
	err := r.col.FindOneAndReplace(ctx, filter, toDocument(review), opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Review{}, r.missingOrConflict(ctx, review.ID)
		}
		return domain.Review{}, err
	}
	return updated.toDomain(), nil
}

// PendingOutbox неотправленные события; документы в порядке последнего изменения
func (r *Repository) PendingOutbox(ctx context.Context, limit int) ([]outbox.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"outbox.0": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []ReviewDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	var out []outbox.Record
	for _, d := range docs {
		for _, p := range d.Outbox {
			if len(out) == limit {
				return out, nil
			}
			out = append(out, outbox.Record{Envelope: p.toDomain().Envelope, Attempts: p.Attempts})
		}
	}
	return out, nil
}

// MarkOutboxSent снимает событие с outbox ($pull) и увеличивает version,
// чтобы запись по устаревшей копии не вернула событие обратно.
// Документ с purged и пустым outbox удаляется.
func (r *Repository) MarkOutboxSent(ctx context.Context, eventID string) error {
	update := bson.M{
		"$pull": bson.M{"outbox": bson.M{"event_id": eventID}},
		"$inc":  bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc ReviewDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"outbox.event_id": eventID}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	if !doc.Purged || len(doc.Outbox) > 0 {
		return nil
	}
	_, err = r.col.DeleteOne(ctx, bson.M{"_id": doc.ID, "purged": true, "outbox.0": bson.M{"$exists": false}})
	return err
}

// MarkOutboxFailed увеличивает attempts события; version не меняется
func (r *Repository) MarkOutboxFailed(ctx context.Context, eventID, errMsg string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"outbox.event_id": eventID},
		bson.M{
			"$inc": bson.M{"outbox.$.attempts": 1},
			"$set": bson.M{"outbox.$.last_error": errMsg},
		},
	)
	return err
}

func (r *Repository) missingOrConflict(ctx context.Context, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
