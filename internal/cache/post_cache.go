package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/chattyapp/chatty-server/internal/domain"
)

// PostCache stores flattened post records under "posts:<id>", indexed in the
// "post" sorted set scored by the author's numeric uId. The owning user's
// cached postsCount is maintained alongside every save and delete.
type PostCache struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewPostCache(rdb *redis.Client, log *zap.Logger) *PostCache {
	return &PostCache{rdb: rdb, log: log.Named("postCache")}
}

func flattenPost(p *domain.Post) map[string]string {
	return map[string]string{
		"_id":            p.ID.Hex(),
		"userId":         p.UserID,
		"username":       p.Username,
		"email":          p.Email,
		"avatarColor":    p.AvatarColor,
		"profilePicture": p.ProfilePicture,
		"post":           p.Post,
		"bgColor":        p.BgColor,
		"feelings":       p.Feelings,
		"privacy":        p.Privacy,
		"gifUrl":         p.GifURL,
		"imgId":          p.ImgID,
		"imgVersion":     p.ImgVersion,
		"commentsCount":  intField(p.CommentsCount),
		"reactions":      jsonField(p.Reactions),
		"createdAt":      p.CreatedAt.Format(time.RFC3339Nano),
	}
}

func parsePost(fields map[string]string) *domain.Post {
	id, _ := primitive.ObjectIDFromHex(fields["_id"])
	p := &domain.Post{
		ID:             id,
		UserID:         fields["userId"],
		Username:       fields["username"],
		Email:          fields["email"],
		AvatarColor:    fields["avatarColor"],
		ProfilePicture: fields["profilePicture"],
		Post:           fields["post"],
		BgColor:        fields["bgColor"],
		Feelings:       fields["feelings"],
		Privacy:        fields["privacy"],
		GifURL:         fields["gifUrl"],
		ImgID:          fields["imgId"],
		ImgVersion:     fields["imgVersion"],
		CommentsCount:  parseIntField(fields["commentsCount"]),
		CreatedAt:      parseTimeField(fields["createdAt"]),
	}
	parseJSONField(fields["reactions"], &p.Reactions)
	return p
}

// SavePost writes the record, indexes it by the author's uId and bumps the
// author's cached postsCount.
func (c *PostCache) SavePost(ctx context.Context, key, currentUserID, uid string, post *domain.Post) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZAdd(ctx, postZSet, redis.Z{Score: scoreFromUID(uid), Member: key})
	pipe.HSet(ctx, postKeyPrefix+key, flattenPost(post))
	pipe.HIncrBy(ctx, userKeyPrefix+currentUserID, "postsCount", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return upstream(c.log, "save post to cache", err)
	}
	return nil
}

// GetPost returns the cached post, or nil on a cache miss.
func (c *PostCache) GetPost(ctx context.Context, key string) (*domain.Post, error) {
	fields, err := c.rdb.HGetAll(ctx, postKeyPrefix+key).Result()
	if err != nil {
		return nil, upstream(c.log, "get post from cache", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return parsePost(fields), nil
}

// GetPosts reads the index newest-first between the inclusive start and end
// ranks and resolves each member to its record. Members whose record has
// expired or been dropped are skipped.
func (c *PostCache) GetPosts(ctx context.Context, start, end int64) ([]*domain.Post, error) {
	keys, err := c.rdb.ZRevRange(ctx, postZSet, start, end).Result()
	if err != nil {
		return nil, upstream(c.log, "get posts from cache", err)
	}
	posts := make([]*domain.Post, 0, len(keys))
	for _, key := range keys {
		fields, err := c.rdb.HGetAll(ctx, postKeyPrefix+key).Result()
		if err != nil {
			return nil, upstream(c.log, "get posts from cache", err)
		}
		if len(fields) == 0 {
			continue
		}
		posts = append(posts, parsePost(fields))
	}
	return posts, nil
}

// GetPostsWithImages is GetPosts restricted to records carrying an uploaded
// image or a gif link.
func (c *PostCache) GetPostsWithImages(ctx context.Context, start, end int64) ([]*domain.Post, error) {
	posts, err := c.GetPosts(ctx, start, end)
	if err != nil {
		return nil, err
	}
	withImages := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		if p.HasImage() {
			withImages = append(withImages, p)
		}
	}
	return withImages, nil
}

// GetTotalPosts returns the size of the post index.
func (c *PostCache) GetTotalPosts(ctx context.Context) (int64, error) {
	total, err := c.rdb.ZCard(ctx, postZSet).Result()
	if err != nil {
		return 0, upstream(c.log, "get total posts from cache", err)
	}
	return total, nil
}

// UpdatePost merges the patch into the cached record and returns the merged,
// authoritative post. Empty patch fields leave existing values untouched;
// absent means unchanged.
func (c *PostCache) UpdatePost(ctx context.Context, key string, patch *domain.Post) (*domain.Post, error) {
	existing, err := c.GetPost(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domain.NewNotFoundError("post not found")
	}
	merged := mergePost(existing, patch)
	if err := c.rdb.HSet(ctx, postKeyPrefix+key, flattenPost(merged)).Err(); err != nil {
		return nil, upstream(c.log, "update post in cache", err)
	}
	return merged, nil
}

func mergePost(existing, patch *domain.Post) *domain.Post {
	merged := *existing
	if patch.Post != "" {
		merged.Post = patch.Post
	}
	if patch.BgColor != "" {
		merged.BgColor = patch.BgColor
	}
	if patch.Feelings != "" {
		merged.Feelings = patch.Feelings
	}
	if patch.Privacy != "" {
		merged.Privacy = patch.Privacy
	}
	if patch.GifURL != "" {
		merged.GifURL = patch.GifURL
	}
	if patch.ImgID != "" {
		merged.ImgID = patch.ImgID
	}
	if patch.ImgVersion != "" {
		merged.ImgVersion = patch.ImgVersion
	}
	if patch.ProfilePicture != "" {
		merged.ProfilePicture = patch.ProfilePicture
	}
	return &merged
}

// DeletePost drops the record, its index membership and one unit of the
// owner's cached postsCount.
func (c *PostCache) DeletePost(ctx context.Context, key, currentUserID string) error {
	pipe := c.rdb.TxPipeline()
	pipe.ZRem(ctx, postZSet, key)
	pipe.Del(ctx, postKeyPrefix+key)
	pipe.HIncrBy(ctx, userKeyPrefix+currentUserID, "postsCount", -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return upstream(c.log, "delete post from cache", err)
	}
	return nil
}
