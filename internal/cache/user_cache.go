package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCache stores flattened user profile records under "users:<id>" and
// indexes them in the "user" sorted set scored by the numeric uId.
type UserCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewUserCache(rdb *redis.Client, log *zap.Logger) *UserCache {
	return &UserCache{rdb: rdb, log: log.Named("userCache")}
}

func flattenUser(u *domain.User) map[string]string {
	return map[string]string{
		"_id":            u.ID.Hex(),
		"authId":         u.AuthID.Hex(),
		"uId":            u.UID,
		"username":       u.Username,
		"email":          u.Email,
		"avatarColor":    u.AvatarColor,
		"profilePicture": u.ProfilePicture,
		"postsCount":     intField(u.PostsCount),
		"followersCount": intField(u.FollowersCount),
		"followingCount": intField(u.FollowingCount),
		"blocked":        jsonField(u.Blocked),
		"blockedBy":      jsonField(u.BlockedBy),
		"notifications":  jsonField(u.Notifications),
		"social":         jsonField(u.Social),
		"work":           u.Work,
		"school":         u.School,
		"location":       u.Location,
		"quote":          u.Quote,
		"bgImageId":      u.BgImageID,
		"bgImageVersion": u.BgImageVersion,
		"createdAt":      u.CreatedAt.Format(time.RFC3339Nano),
	}
}

func parseUser(fields map[string]string) *domain.User {
	id, _ := primitive.ObjectIDFromHex(fields["_id"])
	authID, _ := primitive.ObjectIDFromHex(fields["authId"])
	u := &domain.User{
		ID:             id,
		AuthID:         authID,
		UID:            fields["uId"],
		Username:       fields["username"],
		Email:          fields["email"],
		AvatarColor:    fields["avatarColor"],
		ProfilePicture: fields["profilePicture"],
		PostsCount:     parseIntField(fields["postsCount"]),
		FollowersCount: parseIntField(fields["followersCount"]),
		FollowingCount: parseIntField(fields["followingCount"]),
		Work:           fields["work"],
		School:         fields["school"],
		Location:       fields["location"],
		Quote:          fields["quote"],
		BgImageID:      fields["bgImageId"],
		BgImageVersion: fields["bgImageVersion"],
		CreatedAt:      parseTimeField(fields["createdAt"]),
	}
	parseJSONField(fields["blocked"], &u.Blocked)
	parseJSONField(fields["blockedBy"], &u.BlockedBy)
	parseJSONField(fields["notifications"], &u.Notifications)
	parseJSONField(fields["social"], &u.Social)
	return u
}

// SaveUser writes the flattened record and indexes the key by uId.
func (c *UserCache) SaveUser(ctx context.Context, key, uid string, user *domain.User) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, userZSet, redis.Z{Score: scoreFromUID(uid), Member: key})
	pipe.HSet(ctx, userKeyPrefix+key, flattenUser(user))
	if _, err := pipe.Exec(ctx); err != nil {
		return upstream(c.log, "save user to cache", err)
	}
	return nil
}

// GetUser returns the cached profile, or nil on a cache miss.
func (c *UserCache) GetUser(ctx context.Context, key string) (*domain.User, error) {
	fields, err := c.rdb.HGetAll(ctx, userKeyPrefix+key).Result()
	if err != nil {
		return nil, upstream(c.log, "get user from cache", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parseUser(fields), nil
}

// DeleteUser drops the record and its index membership.
func (c *UserCache) DeleteUser(ctx context.Context, key string) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZRem(ctx, userZSet, key)
	pipe.Del(ctx, userKeyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return upstream(c.log, "delete user from cache", err)
	}
	return nil
}
