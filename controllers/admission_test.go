package controllers

import (
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/beatchart/beatchart/models"
)

func createToken(t *testing.T, db *gorm.DB, email, secret string) *models.UploadToken {
	t.Helper()
	token := &models.UploadToken{Email: email, Secret: secret}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("create token: %v", err)
	}
	return token
}

func TestAdmitToken(t *testing.T) {
	db := newTestDB(t)
	createToken(t, db, "artist@example.com", "SeCrEt-123")

	token, err := admitToken(db, "artist@example.com", "SeCrEt-123")
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if token.Used {
		t.Fatal("admission must not mark the token used")
	}

	// Secrets compare byte-exact; a case variant is a different secret.
	if _, err := admitToken(db, "artist@example.com", "secret-123"); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("case-variant secret admitted, err=%v", err)
	}
	if _, err := admitToken(db, "other@example.com", "SeCrEt-123"); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("wrong email admitted, err=%v", err)
	}
	if _, err := admitToken(db, "artist@example.com", ""); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("empty secret admitted, err=%v", err)
	}
}

func TestAdmitTokenRejectsUsed(t *testing.T) {
	db := newTestDB(t)
	token := createToken(t, db, "artist@example.com", "one-shot")

	if err := consumeToken(db, token.ID); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := admitToken(db, "artist@example.com", "one-shot"); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("used token admitted, err=%v", err)
	}
}

func TestConsumeTokenOnce(t *testing.T) {
	db := newTestDB(t)
	token := createToken(t, db, "artist@example.com", "one-shot")

	if err := consumeToken(db, token.ID); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := consumeToken(db, token.ID); !errors.Is(err, errTokenAlreadyUsed) {
		t.Fatalf("second consume err=%v, want already used", err)
	}

	var stored models.UploadToken
	if err := db.First(&stored, token.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !stored.Used || stored.UsedAt == nil {
		t.Fatalf("token not marked used: used=%v usedAt=%v", stored.Used, stored.UsedAt)
	}
}

func TestConsumeTokenConcurrent(t *testing.T) {
	db := newTestDB(t)
	token := createToken(t, db, "artist@example.com", "contended")

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- consumeToken(db, token.ID)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errTokenAlreadyUsed):
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("token consumed %d times, want exactly 1", wins)
	}
}
