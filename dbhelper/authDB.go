package dbhelper

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/speakcheck/apiv1/models"
	"github.com/speakcheck/apiv1/utils"
)

// Lookups return (nil, nil) when no matching document exists; callers decide
// whether absence is an error.

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) (string, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.USER_COLLECTION).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", utils.ErrDuplicateKey
		}
		return "", err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected inserted id type")
	}
	return id.Hex(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var user models.User
	err := s.db.Collection(models.USER_COLLECTION).
		FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var user models.User
	err = s.db.Collection(models.USER_COLLECTION).
		FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial patch and stamps updated_at. It reports
// whether a user document matched.
func (s *Store) UpdateUser(ctx context.Context, userID string, fields map[string]interface{}) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, nil
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.USER_COLLECTION).
		UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}
	ctx, cancel := opCtx(ctx)
	defer cancel()
	_, err = s.db.Collection(models.USER_COLLECTION).
		UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"last_login": time.Now().UTC()}})
	return err
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, session *models.UserSession) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	_, err := s.db.Collection(models.USER_SESSION_COLLECTION).InsertOne(ctx, session)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicateKey
	}
	return err
}

// GetActiveSessionByToken filters to active, unexpired sessions server-side.
func (s *Store) GetActiveSessionByToken(ctx context.Context, token string) (*models.UserSession, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var session models.UserSession
	err := s.db.Collection(models.USER_SESSION_COLLECTION).FindOne(ctx, bson.M{
		"token":      token,
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// InvalidateSession deactivates the session holding token. Idempotent:
// repeating the call reports false without error.
func (s *Store) InvalidateSession(ctx context.Context, token string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.USER_SESSION_COLLECTION).UpdateOne(ctx,
		bson.M{"token": token, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) InvalidateUserSessions(ctx context.Context, userID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.USER_SESSION_COLLECTION).UpdateMany(ctx,
		bson.M{"user_id": oid, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SweepSessions physically removes sessions whose logical lifetime has ended.
func (s *Store) SweepSessions(ctx context.Context) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.USER_SESSION_COLLECTION).DeleteMany(ctx, bson.M{
		"$or": []bson.M{
			{"expires_at": bson.M{"$lt": time.Now().UTC()}},
			{"is_active": false},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Password reset tokens

func (s *Store) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	_, err := s.db.Collection(models.PASSWORD_RESET_COLLECTION).InsertOne(ctx, token)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicateKey
	}
	return err
}

func (s *Store) GetValidResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	var reset models.PasswordResetToken
	err := s.db.Collection(models.PASSWORD_RESET_COLLECTION).FindOne(ctx, bson.M{
		"token":      token,
		"used":       false,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&reset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &reset, nil
}

// MarkResetTokenUsed permanently consumes the token.
func (s *Store) MarkResetTokenUsed(ctx context.Context, token string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.PASSWORD_RESET_COLLECTION).UpdateOne(ctx,
		bson.M{"token": token, "used": false},
		bson.M{"$set": bson.M{"used": true}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) SweepResetTokens(ctx context.Context) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()
	res, err := s.db.Collection(models.PASSWORD_RESET_COLLECTION).DeleteMany(ctx, bson.M{
		"$or": []bson.M{
			{"expires_at": bson.M{"$lt": time.Now().UTC()}},
			{"used": true},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
