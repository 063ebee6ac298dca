package orgmode

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/eisen/pkg/model"
)

const sample = `#+TITLE: inbox
* Projects
** TODO [#A] Pay rent :home:money:
   DEADLINE: <2025-03-01 Sat 14:00>
   :PROPERTIES:
   :ID:       0b7c5a
   :END:
   Transfer before noon.
** DONE Renew passport
   CLOSED: [2025-01-10 Fri 09:00]
** TODO [#C] Sort photos
   SCHEDULED: <2025-03-05 Wed> DEADLINE: <2025-03-09 Sun>
** NEXT Call plumber
* Notes
  *bold* text that is not a heading
`

func TestParse(t *testing.T) {
	drafts, err := Parse(strings.NewReader(sample), "inbox.org")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d: %+v", len(drafts), drafts)
	}

	rent := drafts[0]
	if rent.Title != "Pay rent" {
		t.Errorf("unexpected title %q", rent.Title)
	}
	if rent.Importance != model.Important {
		t.Errorf("priority A should be important, got %s", rent.Importance)
	}
	want := time.Date(2025, 3, 1, 14, 0, 0, 0, time.Local)
	if rent.Due == nil || !rent.Due.Equal(want) {
		t.Errorf("expected due %v, got %v", want, rent.Due)
	}
	if rent.Description != "#home #money\n\nTransfer before noon." {
		t.Errorf("unexpected description %q", rent.Description)
	}
	if rent.Source != "inbox.org" {
		t.Errorf("unexpected source %q", rent.Source)
	}

	photos := drafts[1]
	if photos.Importance != model.NotImportant {
		t.Errorf("priority C should be not important, got %s", photos.Importance)
	}
	endOfDay := time.Date(2025, 3, 9, 23, 59, 0, 0, time.Local)
	if photos.Due == nil || !photos.Due.Equal(endOfDay) {
		t.Errorf("expected due %v, got %v", endOfDay, photos.Due)
	}

	plumber := drafts[2]
	if plumber.Due != nil || plumber.Importance != model.Important || plumber.Description != "" {
		t.Errorf("unexpected draft %+v", plumber)
	}
}

func TestParseFilesAndFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inbox.org")
	if err := os.WriteFile(path, []byte(sample), 0600); err != nil {
		t.Fatal(err)
	}
	drafts, err := ParseFiles([]string{path})
	if err != nil {
		t.Fatalf("ParseFiles failed: %v", err)
	}
	home := FilterByTag(drafts, "home")
	if len(home) != 1 || home[0].Title != "Pay rent" {
		t.Errorf("unexpected filter result %+v", home)
	}

	if _, err := ParseFiles([]string{filepath.Join(dir, "missing.org")}); err == nil {
		t.Error("expected error for a missing file")
	}
}
