package resetstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"taskhub/internal/domain/models"
)

// DefaultTTL is how long a reset token stays redeemable.
const DefaultTTL = time.Hour

// ErrInvalidToken is returned when a token is unknown, expired, or already
// used. Callers get one error for all three so responses leak nothing.
var ErrInvalidToken = errors.New("invalid or expired reset token")

type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("password_resets"), ttl: DefaultTTL}
}

// NewWithTTL builds a store with a custom token lifetime.
func NewWithTTL(db *mongo.Database, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{c: db.Collection("password_resets"), ttl: ttl}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Issue creates a reset record for the user and returns the plaintext token.
// The token itself is never stored, only its SHA-256 hash. Outstanding
// tokens for the same user are invalidated first.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID) (string, error) {
	if _, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "used": false},
		bson.M{"$set": bson.M{"used": true}}); err != nil {
		return "", err
	}

	token := uuid.NewString()
	rec := models.PasswordReset{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		TokenHash: hashToken(token),
		ExpiresAt: time.Now().Add(s.ttl),
		Used:      false,
		CreatedAt: time.Now(),
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a token and returns the owning user's ID. The record is
// marked used atomically so a token can only ever be redeemed once.
func (s *Store) Consume(ctx context.Context, token string) (primitive.ObjectID, error) {
	var rec models.PasswordReset
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"token_hash": hashToken(token),
			"used":       false,
			"expires_at": bson.M{"$gt": time.Now()},
		},
		bson.M{"$set": bson.M{"used": true}},
	).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return primitive.NilObjectID, ErrInvalidToken
		}
		return primitive.NilObjectID, err
	}
	return rec.UserID, nil
}
