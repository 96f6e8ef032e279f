package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/repository"
)

const complaintsNS = "complaints.complaints"

func countResponse(n int32) bson.D {
	return mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func TestComplaintMongo_NextSequence(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	at := time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

	mt.Run("existing counter is incremented", func(mt *mtest.T) {
		// Arrange
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "202503"}, {Key: "seq", Value: int64(8)},
		}}))

		// Act
		seq, err := repo.NextSequence(context.Background(), at)

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, int64(8), seq)
	})

	mt.Run("missing counter is seeded from the month's complaints", func(mt *mtest.T) {
		// Arrange
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			countResponse(3),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}),
		)

		// Act
		seq, err := repo.NextSequence(context.Background(), at)

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), seq)
	})

	mt.Run("lost seed race falls back to increment", func(mt *mtest.T) {
		// Arrange
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			countResponse(3),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
				{Key: "_id", Value: "202503"}, {Key: "seq", Value: int64(5)},
			}}),
		)

		// Act
		seq, err := repo.NextSequence(context.Background(), at)

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, int64(5), seq)
	})
}

func TestComplaintMongo_SetRating(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ratedAt := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	rating := domain.SatisfactionRating{Rating: 5, RatedAt: ratedAt}
	entry := domain.TimelineEntry{ID: "tl-1", Action: domain.TimelineRated, PerformedBy: "cust-1", Timestamp: ratedAt}

	mt.Run("matching status stores the rating", func(mt *mtest.T) {
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)}, bson.E{Key: "nModified", Value: int32(1)},
		))

		err := repo.SetRating(context.Background(), "c-1", rating, entry)

		assert.NoError(mt, err)
	})

	mt.Run("existing complaint in wrong status is a conflict", func(mt *mtest.T) {
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
			countResponse(1),
		)

		err := repo.SetRating(context.Background(), "c-1", rating, entry)

		assert.ErrorIs(mt, err, repository.ErrStatusConflict)
	})

	mt.Run("missing complaint is not found", func(mt *mtest.T) {
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}, bson.E{Key: "nModified", Value: int32(0)}),
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch),
		)

		err := repo.SetRating(context.Background(), "c-1", rating, entry)

		assert.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestComplaintMongo_Stats(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	since := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("overview and categories are mapped in server order", func(mt *mtest.T) {
		// Arrange
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: nil},
				{Key: "total", Value: int32(6)},
				{Key: "pending", Value: int32(2)},
				{Key: "inProgress", Value: int32(1)},
				{Key: "resolved", Value: int32(2)},
				{Key: "closed", Value: int32(1)},
				{Key: "escalated", Value: int32(0)},
				{Key: "avgRating", Value: 4.5},
			}),
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "billing_issue"}, {Key: "count", Value: int32(3)}},
				bson.D{{Key: "_id", Value: "delivery_problem"}, {Key: "count", Value: int32(2)}},
				bson.D{{Key: "_id", Value: "other"}, {Key: "count", Value: int32(1)}},
			),
		)

		// Act
		stats, err := repo.Stats(context.Background(), since)

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, int64(6), stats.Overview.Total)
		assert.Equal(mt, int64(2), stats.Overview.Resolved)
		require.NotNil(mt, stats.Overview.AvgRating)
		assert.InDelta(mt, 4.5, *stats.Overview.AvgRating, 0.0001)
		assert.Equal(mt, []domain.CategoryCount{
			{Category: domain.CategoryBillingIssue, Count: 3},
			{Category: domain.CategoryDeliveryProblem, Count: 2},
			{Category: domain.CategoryOther, Count: 1},
		}, stats.CategoryStats)
	})

	mt.Run("unrated window has null average", func(mt *mtest.T) {
		// Arrange
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch, bson.D{
				{Key: "_id", Value: nil},
				{Key: "total", Value: int32(2)},
				{Key: "pending", Value: int32(2)},
				{Key: "avgRating", Value: nil},
			}),
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch),
		)

		// Act
		stats, err := repo.Stats(context.Background(), since)

		// Assert
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), stats.Overview.Total)
		assert.Nil(mt, stats.Overview.AvgRating)
		assert.Empty(mt, stats.CategoryStats)
		assert.NotNil(mt, stats.CategoryStats)
	})

	mt.Run("empty window yields zero counts", func(mt *mtest.T) {
		repo := repository.NewComplaintMongoRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, complaintsNS, mtest.FirstBatch),
		)

		stats, err := repo.Stats(context.Background(), since)

		require.NoError(mt, err)
		assert.Equal(mt, domain.StatusOverview{}, stats.Overview)
	})
}
