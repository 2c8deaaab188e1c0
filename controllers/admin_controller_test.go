package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/beatchart/beatchart/models"
)

func newAdminTestRouter(db *gorm.DB, fs *fakeStore) *gin.Engine {
	r := gin.New()
	ac := NewAdminController(db, fs)
	r.POST("/api/v1/admin/tokens", ac.IssueToken)
	r.GET("/api/v1/admin/tracks", ac.ListTracks)
	r.PUT("/api/v1/admin/tracks/:id/approve", ac.SetApproval(true))
	r.PUT("/api/v1/admin/tracks/:id/unapprove", ac.SetApproval(false))
	r.DELETE("/api/v1/admin/tracks/:id", ac.DeleteTrack)
	return r
}

func TestIssueToken(t *testing.T) {
	db := newTestDB(t)
	r := newAdminTestRouter(db, newFakeStore())

	w := postJSON(r, "/api/v1/admin/tokens", gin.H{"email": "new-artist@example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var data struct {
		TokenID uint   `json:"token_id"`
		Email   string `json:"email"`
		Secret  string `json:"secret"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Secret == "" {
		t.Fatal("no secret returned")
	}

	// The issued secret admits exactly once.
	token, err := admitToken(db, "new-artist@example.com", data.Secret)
	if err != nil {
		t.Fatalf("issued token rejected: %v", err)
	}
	if token.ID != data.TokenID {
		t.Fatalf("admitted token %d, want %d", token.ID, data.TokenID)
	}

	w = postJSON(r, "/api/v1/admin/tokens", gin.H{"email": "not-an-email"})
	if w.Code != http.StatusBadRequest || decodeEnvelope(t, w).Code != 40060 {
		t.Fatalf("bad email: status=%d body=%s", w.Code, w.Body.String())
	}
	w = postJSON(r, "/api/v1/admin/tokens", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing email: status=%d", w.Code)
	}
}

func TestAdminListTracksIncludesUnapproved(t *testing.T) {
	db := newTestDB(t)
	r := newAdminTestRouter(db, newFakeStore())

	createTrack(t, db, nil)
	createTrack(t, db, func(tr *models.Track) { tr.Approved = false })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/tracks", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var data struct {
		Items      []models.Track `json:"items"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(decodeEnvelope(t, w).Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Pagination.Total != 2 || len(data.Items) != 2 {
		t.Fatalf("admin feed shows %d/%d tracks, want 2", len(data.Items), data.Pagination.Total)
	}
}

func TestSetApproval(t *testing.T) {
	db := newTestDB(t)
	r := newAdminTestRouter(db, newFakeStore())
	track := createTrack(t, db, nil)

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/tracks/%d/unapprove", track.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unapprove: status=%d body=%s", w.Code, w.Body.String())
	}
	var stored models.Track
	if err := db.First(&stored, track.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Approved {
		t.Fatal("track still approved")
	}

	req = httptest.NewRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/tracks/%d/approve", track.ID), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: status=%d body=%s", w.Code, w.Body.String())
	}
	if err := db.First(&stored, track.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.Approved {
		t.Fatal("track not re-approved")
	}

	req = httptest.NewRequest(http.MethodPut, "/api/v1/admin/tracks/9999/approve", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing track: status=%d, want 404", w.Code)
	}
}

func TestDeleteTrackReleasesBlobs(t *testing.T) {
	db := newTestDB(t)
	fs := newFakeStore()
	r := newAdminTestRouter(db, fs)

	fs.objects["tracks/a.mp3"] = []byte("audio")
	fs.objects["artwork/a.jpg"] = []byte("cover")
	track := createTrack(t, db, func(tr *models.Track) {
		tr.AudioKey = "tracks/a.mp3"
		tr.ArtworkKey = "artwork/a.jpg"
	})

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/tracks/%d", track.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.Track{}).Count(&count)
	if count != 0 {
		t.Fatalf("track rows = %d, want 0", count)
	}
	if fs.count() != 0 {
		t.Fatalf("blobs = %d, want 0", fs.count())
	}

	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/tracks/%d", track.ID), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("double delete: status=%d, want 404", w.Code)
	}
}
