package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

type userMongoRepository struct {
	users *mongo.Collection
}

// NewUserMongoRepository returns a document-store implementation.
func NewUserMongoRepository(db *mongo.Database) UserRepository {
	return &userMongoRepository{users: db.Collection(usersCollection)}
}

func (r *userMongoRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.users.InsertOne(ctx, user)
	return mapMongoError(err)
}

func (r *userMongoRepository) Update(ctx context.Context, user *domain.User) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"name":            user.Name,
		"phone":           user.Phone,
		"whatsappNumber":  user.WhatsAppNumber,
		"businessName":    user.BusinessName,
		"address":         user.Address,
		"isEmailVerified": user.IsEmailVerified,
		"isActive":        user.IsActive,
		"role":            user.Role,
		"updatedAt":       user.UpdatedAt,
	}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userMongoRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userMongoRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"phone": phone},
		bson.M{"whatsappNumber": phone},
	}}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *userMongoRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"passwordHash": passwordHash,
		"updatedAt":    at,
	}})
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userMongoRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLogin": at}})
	return mapMongoError(err)
}

func (r *userMongoRepository) ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.User, error) {
	cursor, err := r.users.Find(ctx, bson.M{"role": bson.M{"$in": roles}}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := []domain.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.User, error) {
	var user domain.User
	if err := r.users.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		return nil, mapMongoError(err)
	}
	return &user, nil
}
