package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/config"
	"github.com/beatchart/beatchart/models"
	"github.com/beatchart/beatchart/storage"
	"github.com/beatchart/beatchart/utils"
)

// TrackController handles token-gated uploads and public track reads.
type TrackController struct {
	db    *gorm.DB
	store storage.Store
}

// NewTrackController creates a new TrackController instance.
func NewTrackController(db *gorm.DB, store storage.Store) *TrackController {
	return &TrackController{db: db, store: store}
}

// Upload accepts a multipart track submission gated by a single-use token.
// Steps run strictly in order: validate input, admit the token, store the
// audio blob (fatal on failure), store artwork (falls back to the
// placeholder), persist metadata, consume the token. A consume failure
// after metadata committed is reported as a distinct reconciliation error;
// losing the token race after metadata committed compensates by removing
// the just-written track and blobs.
func (t *TrackController) Upload(ctx *gin.Context) {
	email := strings.TrimSpace(ctx.PostForm("email"))
	secret := strings.TrimSpace(ctx.PostForm("token"))
	artist := utils.Sanitize(strings.TrimSpace(ctx.PostForm("artist")))
	title := utils.Sanitize(strings.TrimSpace(ctx.PostForm("title")))
	genre := utils.Sanitize(strings.TrimSpace(strings.ToLower(ctx.PostForm("genre"))))
	description := utils.Sanitize(ctx.PostForm("description"))
	allowDownload := ctx.PostForm("allow_download") == "true"

	if email == "" || secret == "" {
		utils.Error(ctx, http.StatusBadRequest, 40010, "email and token are required")
		return
	}
	if artist == "" || title == "" || genre == "" {
		utils.Error(ctx, http.StatusBadRequest, 40011, "artist, title and genre are required")
		return
	}

	audio, err := ctx.FormFile("audio")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "audio file is required")
		return
	}
	maxSize := int64(config.Get().UploadMaxSizeMB) * 1024 * 1024
	if audio.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40013, "audio file too large")
		return
	}
	artwork, _ := ctx.FormFile("artwork") // optional

	// RECEIVED -> TOKEN_VALIDATED
	token, err := admitToken(t.db, email, secret)
	if err != nil {
		if errors.Is(err, errTokenInvalid) {
			utils.Error(ctx, http.StatusForbidden, 40310, "upload token invalid")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50010, "token store unavailable")
		return
	}

	// TOKEN_VALIDATED -> BLOB_STORED
	audioKey := fmt.Sprintf("tracks/%s%s", uuid.NewString(), safeExt(audio.Filename, ".mp3"))
	audioURL, err := t.putUpload(ctx, audioKey, audio)
	if err != nil {
		// Best-effort cleanup of whatever partially landed; never mask
		// the original failure.
		if rmErr := t.store.Remove(ctx.Request.Context(), audioKey); rmErr != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("audio cleanup failed key=%s: %v", audioKey, rmErr)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to store audio")
		return
	}

	artworkURL := models.DefaultArtworkURL
	artworkKey := ""
	if artwork != nil {
		key := fmt.Sprintf("artwork/%s%s", uuid.NewString(), safeExt(artwork.Filename, ".jpg"))
		if u, err := t.putUpload(ctx, key, artwork); err != nil {
			// Artwork is decorative: degrade to the placeholder.
			if utils.Sugar != nil {
				utils.Sugar.Warnf("artwork store failed, using placeholder: %v", err)
			}
		} else {
			artworkURL = u
			artworkKey = key
		}
	}

	// BLOB_STORED -> METADATA_PERSISTED
	track := models.Track{
		Artist:        artist,
		Title:         title,
		Genre:         genre,
		Description:   description,
		AudioURL:      audioURL,
		AudioKey:      audioKey,
		ArtworkURL:    artworkURL,
		ArtworkKey:    artworkKey,
		OwnerEmail:    email,
		AllowDownload: allowDownload,
		Approved:      true,
	}
	if err := t.db.Create(&track).Error; err != nil {
		t.removeBlobs(ctx, audioKey, artworkKey)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to persist track")
		return
	}

	// METADATA_PERSISTED -> TOKEN_CONSUMED
	if err := consumeToken(t.db, token.ID); err != nil {
		if errors.Is(err, errTokenAlreadyUsed) {
			// A concurrent upload spent the token first. Compensate by
			// withdrawing this track so the token gated exactly one
			// upload.
			if delErr := t.db.Delete(&models.Track{}, track.ID).Error; delErr != nil && utils.Sugar != nil {
				utils.Sugar.Errorf("compensation failed, orphan track=%d: %v", track.ID, delErr)
			}
			t.removeBlobs(ctx, audioKey, artworkKey)
			utils.Error(ctx, http.StatusForbidden, 40311, "upload token already used")
			return
		}
		// Track persisted but the token is still spendable: recoverable
		// inconsistency, logged for operator reconciliation.
		perr := &PartialUploadError{Stage: "consume-token", Err: err}
		if utils.Sugar != nil {
			utils.Sugar.Errorf("reconciliation needed track=%d token=%d: %v", track.ID, token.ID, perr)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50090, "upload incomplete, contact support")
		return
	}

	utils.InvalidateByPrefix("cache:charts:")

	utils.Success(ctx, gin.H{"track": track})
}

// GetTrack returns one public track with its aggregates.
func (t *TrackController) GetTrack(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid track id")
		return
	}

	var track models.Track
	if err := t.db.First(&track, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40410, "track not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load track")
		return
	}
	if !track.Approved {
		utils.Error(ctx, http.StatusNotFound, 40410, "track not found")
		return
	}

	utils.Success(ctx, gin.H{"track": track})
}

func (t *TrackController) putUpload(ctx *gin.Context, key string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return t.store.Put(ctx.Request.Context(), key, contentType, f, fh.Size)
}

func (t *TrackController) removeBlobs(ctx *gin.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := t.store.Remove(ctx.Request.Context(), key); err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("blob cleanup failed key=%s: %v", key, err)
		}
	}
}

// safeExt keeps the client file extension when it looks sane, otherwise
// falls back to the given default.
func safeExt(filename, fallback string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return fallback
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fallback
		}
	}
	return ext
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
