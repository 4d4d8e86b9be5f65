package db

import (
	"strings"
	"testing"

	"github.com/chainlabs/questline/internal/models"
)

func TestConnectMemory(t *testing.T) {
	conn, err := ConnectMemory()
	if err != nil {
		t.Fatalf("ConnectMemory() error = %v", err)
	}
	if conn == nil {
		t.Fatal("ConnectMemory() returned nil DB")
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect("postgres", "host=localhost")
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "unsupported driver")
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 3 {
		t.Errorf("AllModels() returned %d models, want 3", got)
	}
}

func TestAutoMigrate(t *testing.T) {
	conn, err := ConnectMemory()
	if err != nil {
		t.Fatalf("ConnectMemory() error = %v", err)
	}
	if err := AutoMigrate(conn); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	for _, table := range []string{"sessions", "messages", "session_progresses"} {
		if !conn.Migrator().HasTable(table) {
			t.Errorf("table %q not created", table)
		}
	}
}

func TestAutoMigrate_RoundTrip(t *testing.T) {
	conn, err := ConnectMemory()
	if err != nil {
		t.Fatalf("ConnectMemory() error = %v", err)
	}
	if err := AutoMigrate(conn); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	sess := models.Session{ID: "sess-1", Phase: models.PhaseNoGoal, IsActive: true}
	if err := conn.Create(&sess).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	prog := models.SessionProgress{
		SessionID: "sess-1",
		Goal:      "launch an online store",
		Hero:      models.Hero{Title: "Launch", Description: "3-week plan"},
		Missions: []models.Mission{
			{ID: "m1", Title: "Pick a niche", Points: 25, Status: models.MissionPending},
		},
	}
	if err := conn.Create(&prog).Error; err != nil {
		t.Fatalf("create progress: %v", err)
	}

	var got models.SessionProgress
	if err := conn.First(&got, "session_id = ?", "sess-1").Error; err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if got.Hero.Title != "Launch" {
		t.Errorf("Hero.Title = %q, want %q", got.Hero.Title, "Launch")
	}
	if len(got.Missions) != 1 || got.Missions[0].ID != "m1" {
		t.Errorf("Missions = %+v, want one mission m1", got.Missions)
	}
}
