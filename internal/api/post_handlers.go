package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chattyapp/chatty-server/internal/domain"
	"github.com/chattyapp/chatty-server/internal/realtime"
	"github.com/chattyapp/chatty-server/internal/storage"
)

type postRequest struct {
	Post           string `json:"post" validate:"required"`
	BgColor        string `json:"bgColor"`
	Privacy        string `json:"privacy"`
	Feelings       string `json:"feelings"`
	GifURL         string `json:"gifUrl"`
	ProfilePicture string `json:"profilePicture"`
}

type postWithImageRequest struct {
	Post           string `json:"post"`
	BgColor        string `json:"bgColor"`
	Privacy        string `json:"privacy"`
	Feelings       string `json:"feelings"`
	GifURL         string `json:"gifUrl"`
	ProfilePicture string `json:"profilePicture"`
	Image          string `json:"image" validate:"required"`
	ImgID          string `json:"imgId"`
	ImgVersion     string `json:"imgVersion"`
}

// buildPost assembles the canonical post with the author snapshot copied
// from the token claims. The snapshot is fixed here and never refreshed.
func buildPost(claims domain.AuthPayload, req postRequest) *domain.Post {
	return &domain.Post{
		ID:             primitive.NewObjectID(),
		UserID:         claims.UserID,
		Username:       claims.Username,
		Email:          claims.Email,
		AvatarColor:    claims.AvatarColor,
		ProfilePicture: req.ProfilePicture,
		Post:           req.Post,
		BgColor:        req.BgColor,
		Feelings:       req.Feelings,
		Privacy:        req.Privacy,
		GifURL:         req.GifURL,
		CreatedAt:      time.Now().UTC(),
	}
}

// createPipeline is the cache -> broadcast -> enqueue sequence. A cache
// failure stops the pipeline before any broadcast or job submission.
func (s *Server) createPipeline(w http.ResponseWriter, r *http.Request, claims domain.AuthPayload, post *domain.Post, message string) {
	ctx := r.Context()
	if err := s.deps.PostCache.SavePost(ctx, post.ID.Hex(), claims.UserID, claims.UID, post); err != nil {
		s.writeError(w, err)
		return
	}
	s.deps.Emitter.Emit(realtime.EventAddPost, post)
	s.enqueue(ctx, s.deps.PostQueue, domain.JobAddPost, domain.KeyValueJob[domain.Post]{Key: claims.UserID, Value: *post})
	s.respond(w, http.StatusCreated, map[string]string{"message": message})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := CurrentUser(r.Context())
	var req postRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	post := buildPost(claims, req)
	s.createPipeline(w, r, claims, post, "Post created successfully")
}

// handleCreatePostWithImage uploads before entering the pipeline; an upload
// failure aborts with no cache, broadcast or queue side effects.
func (s *Server) handleCreatePostWithImage(w http.ResponseWriter, r *http.Request) {
	claims, _ := CurrentUser(r.Context())
	var req postWithImageRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.deps.Uploader.Upload(r.Context(), req.Image, "")
	if err != nil {
		s.writeError(w, domain.NewValidationError("%s", err.Error()))
		return
	}

	post := buildPost(claims, postRequest{
		Post:           req.Post,
		BgColor:        req.BgColor,
		Privacy:        req.Privacy,
		Feelings:       req.Feelings,
		GifURL:         req.GifURL,
		ProfilePicture: req.ProfilePicture,
	})
	post.ImgID = result.PublicID
	post.ImgVersion = result.Version
	s.createPipeline(w, r, claims, post, "Post with image created successfully")
}

// updatePipeline merges the patch in the cache, broadcasts the merged record
// and schedules the durable update with that same record.
func (s *Server) updatePipeline(w http.ResponseWriter, r *http.Request, postID string, patch *domain.Post, message string) {
	ctx := r.Context()
	merged, err := s.deps.PostCache.UpdatePost(ctx, postID, patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.deps.Emitter.Emit(realtime.EventUpdatePost, merged)
	s.enqueue(ctx, s.deps.PostQueue, domain.JobUpdatePost, domain.KeyValueJob[domain.Post]{Key: postID, Value: *merged})
	s.respond(w, http.StatusOK, map[string]string{"message": message})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	patch := &domain.Post{
		Post:           req.Post,
		BgColor:        req.BgColor,
		Privacy:        req.Privacy,
		Feelings:       req.Feelings,
		GifURL:         req.GifURL,
		ProfilePicture: req.ProfilePicture,
	}
	s.updatePipeline(w, r, chi.URLParam(r, "postId"), patch, "Post updated successfully")
}

// handleUpdatePostWithImage reuses a supplied image reference verbatim; only
// when none is supplied does it upload a new image first, aborting the whole
// operation on upload failure.
func (s *Server) handleUpdatePostWithImage(w http.ResponseWriter, r *http.Request) {
	var req postWithImageRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	patch := &domain.Post{
		Post:           req.Post,
		BgColor:        req.BgColor,
		Privacy:        req.Privacy,
		Feelings:       req.Feelings,
		GifURL:         req.GifURL,
		ProfilePicture: req.ProfilePicture,
		ImgID:          req.ImgID,
		ImgVersion:     req.ImgVersion,
	}
	if req.ImgID == "" || req.ImgVersion == "" {
		result, err := s.deps.Uploader.Upload(r.Context(), req.Image, "")
		if err != nil {
			s.writeError(w, domain.NewValidationError("%s", err.Error()))
			return
		}
		patch.ImgID = result.PublicID
		patch.ImgVersion = result.Version
	}
	s.updatePipeline(w, r, chi.URLParam(r, "postId"), patch, "Post with image updated successfully")
}

// handleDeletePost removes the cached record synchronously; durable deletion
// happens whenever the job runs.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	claims, _ := CurrentUser(r.Context())
	ctx := r.Context()
	postID := chi.URLParam(r, "postId")

	if err := s.deps.PostCache.DeletePost(ctx, postID, claims.UserID); err != nil {
		s.writeError(w, err)
		return
	}
	s.deps.Emitter.Emit(realtime.EventDeletePost, postID)
	s.enqueue(ctx, s.deps.PostQueue, domain.JobDeletePost, domain.KeyPairJob{KeyOne: postID, KeyTwo: claims.UserID})
	s.respond(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

type postsResponse struct {
	Message    string         `json:"message"`
	Posts      []*domain.Post `json:"posts"`
	TotalPosts int64          `json:"totalPosts"`
}

func parsePage(r *http.Request) (int, error) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 {
		return 0, domain.NewValidationError("page is invalid")
	}
	return page, nil
}

func (s *Server) handleGetPosts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()
	skip, limit, cacheSkip := pageBounds(page)

	posts, err := s.deps.PostCache.GetPosts(ctx, cacheSkip, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var total int64
	if len(posts) > 0 {
		total, err = s.deps.PostCache.GetTotalPosts(ctx)
	} else {
		posts, err = s.deps.PostStore.GetPosts(ctx, bson.M{}, skip, limit, bson.D{{Key: "createdAt", Value: -1}})
		if err == nil {
			total, err = s.deps.PostStore.CountPosts(ctx)
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respond(w, http.StatusOK, postsResponse{Message: "All posts", Posts: capPosts(posts), TotalPosts: total})
}

func (s *Server) handleGetPostsWithImages(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ctx := r.Context()
	skip, limit, cacheSkip := pageBounds(page)

	posts, err := s.deps.PostCache.GetPostsWithImages(ctx, cacheSkip, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(posts) == 0 {
		posts, err = s.deps.PostStore.GetPosts(ctx, storage.PostsWithImagesFilter(), skip, limit, bson.D{{Key: "createdAt", Value: -1}})
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.respond(w, http.StatusOK, postsResponse{Message: "All posts with images", Posts: capPosts(posts)})
}
