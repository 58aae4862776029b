package services

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/driveon/backend/internal/models"
)

func TestShareLinkLifecycle(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "shared.txt", nil, "share me")

	link, err := sh.CreateLink(userID, f.ID, CreateLinkParams{})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if link.Token == "" || len(link.Token) != 64 {
		t.Fatalf("token %q is not 32 random bytes hex-encoded", link.Token)
	}

	info, err := sh.GetPublicInfo(link.Token)
	if err != nil {
		t.Fatalf("GetPublicInfo failed: %v", err)
	}
	if info.Name != "shared.txt" || info.Size != int64(len("share me")) || info.RequiresPassword {
		t.Fatalf("unexpected public info: %+v", info)
	}

	dl, err := sh.Download(link.Token, "")
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(dl.Content)
	dl.Content.Close()
	if string(data) != "share me" {
		t.Fatalf("downloaded %q, want %q", data, "share me")
	}

	var stored models.ShareLink
	if err := db.First(&stored, link.ID).Error; err != nil {
		t.Fatalf("reload link: %v", err)
	}
	if stored.DownloadCount != 1 {
		t.Fatalf("download_count = %d, want 1", stored.DownloadCount)
	}
	if stored.LastAccessedAt == nil {
		t.Fatal("last_accessed_at not set")
	}

	if err := sh.Revoke(userID, link.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := sh.GetPublicInfo(link.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
}

func TestShareLinkPasswordGate(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "locked.txt", nil, "secret")
	link, err := sh.CreateLink(userID, f.ID, CreateLinkParams{Password: "hunter2"})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	// Metadata is visible without the password but flags the requirement
	info, err := sh.GetPublicInfo(link.Token)
	if err != nil {
		t.Fatalf("GetPublicInfo failed: %v", err)
	}
	if !info.RequiresPassword {
		t.Fatal("RequiresPassword not set")
	}

	if _, err := sh.Download(link.Token, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without password, got %v", err)
	}
	if _, err := sh.Download(link.Token, "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized with wrong password, got %v", err)
	}

	dl, err := sh.Download(link.Token, "hunter2")
	if err != nil {
		t.Fatalf("Download with correct password failed: %v", err)
	}
	dl.Content.Close()

	// Rejected attempts must not count
	var stored models.ShareLink
	db.First(&stored, link.ID)
	if stored.DownloadCount != 1 {
		t.Fatalf("download_count = %d, want 1", stored.DownloadCount)
	}
}

func TestShareLinkExpiryDeactivatesLazily(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "old.txt", nil, "stale")
	link, err := sh.CreateLink(userID, f.ID, CreateLinkParams{})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.ShareLink{}).Where("id = ?", link.ID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("backdate link: %v", err)
	}

	if _, err := sh.GetPublicInfo(link.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired link, got %v", err)
	}

	// First touch flipped it inactive
	var stored models.ShareLink
	db.First(&stored, link.ID)
	if stored.IsActive {
		t.Fatal("expired link still marked active after access")
	}
}

func TestShareLinkDownloadCap(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "capped.txt", nil, "limited")
	one := int64(1)
	link, err := sh.CreateLink(userID, f.ID, CreateLinkParams{MaxDownloads: &one})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	dl, err := sh.Download(link.Token, "")
	if err != nil {
		t.Fatalf("first Download failed: %v", err)
	}
	dl.Content.Close()

	if _, err := sh.Download(link.Token, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past the download cap, got %v", err)
	}
}

func TestShareLinkOrphanTolerance(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	keep := mustUpload(t, h, blobs, userID, "keep.txt", nil, "kept")
	gone := mustUpload(t, h, blobs, userID, "gone.txt", nil, "doomed")

	if _, err := sh.CreateLink(userID, keep.ID, CreateLinkParams{}); err != nil {
		t.Fatalf("CreateLink(keep) failed: %v", err)
	}
	orphan, err := sh.CreateLink(userID, gone.ID, CreateLinkParams{})
	if err != nil {
		t.Fatalf("CreateLink(gone) failed: %v", err)
	}

	// The weak reference lets the file vanish underneath the link
	if _, err := h.DeleteFile(userID, gone.ID); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}

	// Visitors get not-found, never a crash
	if _, err := sh.GetPublicInfo(orphan.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for orphaned link, got %v", err)
	}

	// Owner listing drops the orphan but counts it in the total
	links, total, err := sh.ListForOwner(userID, 1, 50)
	if err != nil {
		t.Fatalf("ListForOwner failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	if len(links) != 1 || links[0].File == nil || links[0].File.Name != "keep.txt" {
		t.Fatalf("expected only the intact link, got %d entries", len(links))
	}
}

func TestShareLinkTrashedFileRefused(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "binned.txt", nil, "x")
	if err := ts.Trash(userID, ItemFile, f.ID); err != nil {
		t.Fatalf("Trash failed: %v", err)
	}
	if _, err := sh.CreateLink(userID, f.ID, CreateLinkParams{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound sharing a trashed file, got %v", err)
	}
}

func TestLegacyPublicToggle(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "public.txt", nil, "open")

	on, err := sh.SetFilePublic(userID, f.ID, true)
	if err != nil {
		t.Fatalf("SetFilePublic(true) failed: %v", err)
	}
	if !on.IsPublic || on.ShareToken == nil {
		t.Fatal("enabling public sharing did not mint a token")
	}

	dl, err := sh.DownloadShared(*on.ShareToken)
	if err != nil {
		t.Fatalf("DownloadShared failed: %v", err)
	}
	data, _ := io.ReadAll(dl.Content)
	dl.Content.Close()
	if string(data) != "open" {
		t.Fatalf("downloaded %q, want %q", data, "open")
	}

	off, err := sh.SetFilePublic(userID, f.ID, false)
	if err != nil {
		t.Fatalf("SetFilePublic(false) failed: %v", err)
	}
	if off.IsPublic || off.ShareToken != nil {
		t.Fatal("disabling public sharing did not clear the token")
	}
	if _, err := sh.GetSharedFile(*on.ShareToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after disabling, got %v", err)
	}
}

func TestShareReaperSweep(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	sh := NewShareService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "swept.txt", nil, "x")
	expired, err := sh.CreateLink(userID, f.ID, CreateLinkParams{})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	fresh, err := sh.CreateLink(userID, f.ID, CreateLinkParams{})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}

	past := time.Now().Add(-time.Hour)
	db.Model(&models.ShareLink{}).Where("id = ?", expired.ID).Update("expires_at", past)

	reaper := NewShareReaperService(db, time.Hour)
	reaper.sweep()

	var a, b models.ShareLink
	db.First(&a, expired.ID)
	db.First(&b, fresh.ID)
	if a.IsActive {
		t.Fatal("sweep left the expired link active")
	}
	if !b.IsActive {
		t.Fatal("sweep deactivated an unexpired link")
	}
}
