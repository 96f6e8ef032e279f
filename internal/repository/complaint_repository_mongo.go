package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

const (
	complaintsCollection = "complaints"
	countersCollection   = "complaint_counters"
	usersCollection      = "users"
)

type complaintMongoRepository struct {
	complaints *mongo.Collection
	counters   *mongo.Collection
}

// NewComplaintMongoRepository returns a document-store implementation where
// timeline and comments are embedded arrays appended with $push.
func NewComplaintMongoRepository(db *mongo.Database) ComplaintRepository {
	return &complaintMongoRepository{
		complaints: db.Collection(complaintsCollection),
		counters:   db.Collection(countersCollection),
	}
}

// NextSequence increments the month's counter document. A missing counter is
// seeded from the number of complaints already stored in that month; a
// concurrent seed loses the insert race and falls back to $inc.
func (r *complaintMongoRepository) NextSequence(ctx context.Context, at time.Time) (int64, error) {
	key := domain.PeriodKey(at)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < 2; attempt++ {
		var counter struct {
			Seq int64 `bson:"seq"`
		}
		err := r.counters.FindOneAndUpdate(ctx,
			bson.M{"_id": key},
			bson.M{"$inc": bson.M{"seq": 1}},
			opts,
		).Decode(&counter)
		if err == nil {
			return counter.Seq, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return 0, fmt.Errorf("next complaint sequence: %w", err)
		}

		start, end := domain.ComplaintPeriod(at)
		existing, err := r.complaints.CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": start, "$lt": end}})
		if err != nil {
			return 0, fmt.Errorf("count complaints in period: %w", err)
		}
		seq := existing + 1
		_, err = r.counters.InsertOne(ctx, bson.M{"_id": key, "seq": seq})
		if err == nil {
			return seq, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("seed complaint sequence: %w", err)
		}
	}
	return 0, fmt.Errorf("next complaint sequence: counter %s contended", key)
}

func (r *complaintMongoRepository) Create(ctx context.Context, c *domain.Complaint) error {
	doc := *c
	if doc.Attachments == nil {
		doc.Attachments = []domain.Attachment{}
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if doc.Comments == nil {
		doc.Comments = []domain.Comment{}
	}
	if doc.Timeline == nil {
		doc.Timeline = []domain.TimelineEntry{}
	}
	if _, err := r.complaints.InsertOne(ctx, doc); err != nil {
		return mapMongoError(err)
	}
	return nil
}

func (r *complaintMongoRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *complaintMongoRepository) GetByComplaintID(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	return r.findOne(ctx, bson.M{"complaintId": complaintID})
}

func (r *complaintMongoRepository) findOne(ctx context.Context, filter bson.M) (*domain.Complaint, error) {
	var complaint domain.Complaint
	if err := r.complaints.FindOne(ctx, filter).Decode(&complaint); err != nil {
		return nil, mapMongoError(err)
	}
	return &complaint, nil
}

func (r *complaintMongoRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error) {
	query := buildComplaintMongoFilter(filter)

	total, err := r.complaints.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	direction := -1
	if filter.SortAsc {
		direction = 1
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = SortByCreatedAt
	}
	opts := options.Find().
		SetSort(bson.D{{Key: string(sortBy), Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(filter.Offset)).
		SetLimit(int64(filter.Limit)).
		SetProjection(bson.M{"comments": 0, "timeline": 0})

	cursor, err := r.complaints.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	complaints := make([]domain.Complaint, 0, filter.Limit)
	if err := cursor.All(ctx, &complaints); err != nil {
		return nil, 0, err
	}
	return complaints, total, nil
}

// buildComplaintMongoFilter AND-s the visibility scope with every filter so a
// search never widens what the caller may see.
func buildComplaintMongoFilter(filter ComplaintFilter) bson.M {
	conditions := bson.A{}

	if filter.CustomerID != nil {
		conditions = append(conditions, bson.M{"customer": *filter.CustomerID})
	}
	if filter.ParticipantID != nil {
		conditions = append(conditions, bson.M{"$or": bson.A{
			bson.M{"dealer": *filter.ParticipantID},
			bson.M{"assignedTo": *filter.ParticipantID},
		}})
	}
	if filter.Status != nil {
		conditions = append(conditions, bson.M{"status": *filter.Status})
	}
	if filter.Category != nil {
		conditions = append(conditions, bson.M{"category": *filter.Category})
	}
	if filter.Priority != nil {
		conditions = append(conditions, bson.M{"priority": *filter.Priority})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		conditions = append(conditions, bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"complaintId": pattern},
		}})
	}

	if len(conditions) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": conditions}
}

func (r *complaintMongoRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	set := bson.M{"status": change.Status, "updatedAt": change.UpdatedAt}
	if change.ResolvedAt != nil {
		set["actualResolutionDate"] = *change.ResolvedAt
	}
	push := bson.M{"timeline": change.Entry}
	if change.Comment != nil {
		push["comments"] = *change.Comment
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set, "$push": push})
}

func (r *complaintMongoRepository) AppendComment(ctx context.Context, id string, comment domain.Comment, entry domain.TimelineEntry) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":  bson.M{"updatedAt": comment.CreatedAt},
		"$push": bson.M{"comments": comment, "timeline": entry},
	})
}

func (r *complaintMongoRepository) SetRating(ctx context.Context, id string, rating domain.SatisfactionRating, entry domain.TimelineEntry) error {
	filter := bson.M{"_id": id, "status": bson.M{"$in": domain.RateableStatuses}}
	res, err := r.complaints.UpdateOne(ctx, filter, bson.M{
		"$set":  bson.M{"satisfactionRating": rating, "updatedAt": rating.RatedAt},
		"$push": bson.M{"timeline": entry},
	})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	exists, err := r.complaints.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrStatusConflict
	}
	return ErrNotFound
}

func (r *complaintMongoRepository) Assign(ctx context.Context, id string, assignment Assignment) error {
	set := bson.M{"assignedTo": assignment.AssigneeID, "updatedAt": assignment.UpdatedAt}
	if assignment.DealerID != nil {
		set["dealer"] = *assignment.DealerID
	}
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":  set,
		"$push": bson.M{"timeline": assignment.Entry},
	})
}

func (r *complaintMongoRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.complaints.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *complaintMongoRepository) Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error) {
	overviewPipeline, categoryPipeline := statsPipelines(since)

	overviewCursor, err := r.complaints.Aggregate(ctx, overviewPipeline)
	if err != nil {
		return nil, err
	}
	var overview []struct {
		Total      int64    `bson:"total"`
		Pending    int64    `bson:"pending"`
		InProgress int64    `bson:"inProgress"`
		Resolved   int64    `bson:"resolved"`
		Closed     int64    `bson:"closed"`
		Escalated  int64    `bson:"escalated"`
		AvgRating  *float64 `bson:"avgRating"`
	}
	if err := overviewCursor.All(ctx, &overview); err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{Since: since, CategoryStats: []domain.CategoryCount{}}
	if len(overview) > 0 {
		o := overview[0]
		stats.Overview = domain.StatusOverview{
			Total:      o.Total,
			Pending:    o.Pending,
			InProgress: o.InProgress,
			Resolved:   o.Resolved,
			Closed:     o.Closed,
			Escalated:  o.Escalated,
			AvgRating:  o.AvgRating,
		}
	}

	categoryCursor, err := r.complaints.Aggregate(ctx, categoryPipeline)
	if err != nil {
		return nil, err
	}
	var categories []struct {
		Category domain.ComplaintCategory `bson:"_id"`
		Count    int64                    `bson:"count"`
	}
	if err := categoryCursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	for _, c := range categories {
		stats.CategoryStats = append(stats.CategoryStats, domain.CategoryCount{Category: c.Category, Count: c.Count})
	}
	return stats, nil
}

// statsPipelines builds the overview and category aggregations. $avg skips
// complaints without a rating and yields null when none are rated.
func statsPipelines(since time.Time) (overview, categories mongo.Pipeline) {
	match := bson.D{{Key: "$match", Value: bson.D{{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: since}}}}}}
	overview = mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "pending", Value: sumStatus(domain.ComplaintStatusPending)},
			{Key: "inProgress", Value: sumStatus(domain.ComplaintStatusInProgress)},
			{Key: "resolved", Value: sumStatus(domain.ComplaintStatusResolved)},
			{Key: "closed", Value: sumStatus(domain.ComplaintStatusClosed)},
			{Key: "escalated", Value: sumStatus(domain.ComplaintStatusEscalated)},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$satisfactionRating.rating"}}},
		}}},
	}
	categories = mongo.Pipeline{
		match,
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	return overview, categories
}

func sumStatus(status domain.ComplaintStatus) bson.D {
	return bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$status", string(status)}}}, 1, 0,
	}}}}}
}

func mapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

// EnsureMongoIndexes creates the unique keys and lookup indexes the
// repositories rely on.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
		{Keys: bson.D{{Key: "whatsappNumber", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := db.Collection(complaintsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "complaintId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "customer", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "dealer", Value: 1}}},
		{Keys: bson.D{{Key: "assignedTo", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("complaints indexes: %w", err)
	}
	return nil
}
