package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestReportEmailEncryptedAtRest(t *testing.T) {
	key := make([]byte, 32)
	rand.Read(key)
	if err := InitEncryption(base64.StdEncoding.EncodeToString(key)); err != nil {
		t.Fatalf("InitEncryption: %v", err)
	}
	defer func() { fieldCipher = nil }()

	db := openTestDB(t)
	b := Briefing{Lang: "de"}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("create briefing: %v", err)
	}
	r := Report{BriefingID: b.ID, UserEmail: "max@example.com", Status: ReportStatusPending}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}
	if r.UserEmail != "max@example.com" {
		t.Errorf("in-memory email must stay plaintext, got %q", r.UserEmail)
	}

	var raw string
	db.Raw("SELECT user_email FROM reports WHERE id = ?", r.ID).Scan(&raw)
	if raw == "max@example.com" || raw == "" {
		t.Errorf("expected ciphertext at rest, got %q", raw)
	}

	var loaded Report
	if err := db.First(&loaded, r.ID).Error; err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.UserEmail != "max@example.com" {
		t.Errorf("expected decrypted email, got %q", loaded.UserEmail)
	}
}

func TestReportEmailPlaintextWithoutKey(t *testing.T) {
	db := openTestDB(t)
	r := Report{BriefingID: 1, UserEmail: "a@b.de"}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}
	var raw string
	db.Raw("SELECT user_email FROM reports WHERE id = ?", r.ID).Scan(&raw)
	if raw != "a@b.de" {
		t.Errorf("expected plaintext, got %q", raw)
	}
}

func TestDecodeAnswers(t *testing.T) {
	b := Briefing{Answers: []byte(`{"branche":"handel","anwendungsfaelle":["marketing"]}`)}
	a, err := b.DecodeAnswers()
	if err != nil {
		t.Fatalf("DecodeAnswers: %v", err)
	}
	if a.Str("branche") != "handel" || len(a.List("anwendungsfaelle")) != 1 {
		t.Errorf("unexpected answers %v", a)
	}

	empty, err := (&Briefing{}).DecodeAnswers()
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty answers, got %v, %v", empty, err)
	}

	if _, err := (&Briefing{Answers: []byte(`[1,2]`)}).DecodeAnswers(); err == nil {
		t.Error("expected error for non-object answers")
	}
}
