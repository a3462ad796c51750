package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"usuarios/backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection      = "usuarios"
	ActivitiesCollection = "actividades"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Username  string             `bson:"username"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Role      string             `bson:"rol"`
	Progress  *progressDocument  `bson:"progreso,omitempty"`
	Badges    []badgeDocument    `bson:"insignias"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type progressDocument struct {
	CompletedActivities int `bson:"actividadesCompletadas"`
	Percentage          int `bson:"porcentaje"`
}

type badgeDocument struct {
	BadgeID      string    `bson:"insigniaID"`
	DateObtained time.Time `bson:"fechaObtenido"`
}

func (d *userDocument) toModel() *models.User {
	user := &models.User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Email:     d.Email,
		Password:  d.Password,
		Role:      d.Role,
		Badges:    make([]models.Badge, 0, len(d.Badges)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Progress != nil {
		user.Progress = &models.Progress{
			CompletedActivities: d.Progress.CompletedActivities,
			Percentage:          d.Progress.Percentage,
		}
	}
	for _, b := range d.Badges {
		user.Badges = append(user.Badges, models.Badge{BadgeID: b.BadgeID, DateObtained: b.DateObtained})
	}
	return user
}

// MongoUserStore keeps one document per user in the usuarios collection.
type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{coll: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique email index. Registration relies on it to
// reject concurrent sign-ups with the same address.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.Password,
		Role:      user.Role,
		Badges:    []badgeDocument{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if user.Progress != nil {
		doc.Progress = &progressDocument{
			CompletedActivities: user.Progress.CompletedActivities,
			Percentage:          user.Progress.Percentage,
		}
	}
	for _, b := range user.Badges {
		doc.Badges = append(doc.Badges, badgeDocument{BadgeID: b.BadgeID, DateObtained: b.DateObtained})
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	*user = *doc.toModel()
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoUserStore) FindAll(ctx context.Context) ([]models.User, error) {
	cursor, err := s.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]models.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toModel())
	}
	return users, nil
}

func (s *MongoUserStore) UpdatePartial(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if update.IsEmpty() {
		return s.findOne(ctx, bson.M{"_id": oid})
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Password != nil {
		set["password"] = *update.Password
	}
	if update.Role != nil {
		set["rol"] = *update.Role
	}
	if update.Progress != nil {
		set["progreso"] = progressDocument{
			CompletedActivities: update.Progress.CompletedActivities,
			Percentage:          update.Progress.Percentage,
		}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDocument
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoUserStore) Delete(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc userDocument
	if err := s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoUserStore) PushBadge(ctx context.Context, id string, badge models.Badge) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$push": bson.M{"insignias": badgeDocument{BadgeID: badge.BadgeID, DateObtained: badge.DateObtained}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("push badge: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type MongoActivityCounter struct {
	coll *mongo.Collection
}

func NewMongoActivityCounter(db *mongo.Database) *MongoActivityCounter {
	return &MongoActivityCounter{coll: db.Collection(ActivitiesCollection)}
}

func (c *MongoActivityCounter) CountActivities(ctx context.Context) (int64, error) {
	total, err := c.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return total, nil
}
