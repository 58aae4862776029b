package services

import (
	"errors"
	"testing"

	"github.com/driveon/backend/internal/models"
)

// buildTree creates root/sub/leaf with a file in each level plus one at the
// user's root directory, and returns the pieces the trash tests poke at
type tree struct {
	root, sub, leaf *models.Folder
	rootFile        *models.File // inside root
	subFile         *models.File // inside sub
	leafFile        *models.File // inside leaf
	topFile         *models.File // outside the tree
}

func buildTree(t *testing.T, h *HierarchyService, blobs *fakeBlobStore, userID uint) tree {
	t.Helper()
	root, err := h.CreateFolder(userID, "root", nil)
	if err != nil {
		t.Fatalf("CreateFolder(root) failed: %v", err)
	}
	sub, err := h.CreateFolder(userID, "sub", &root.ID)
	if err != nil {
		t.Fatalf("CreateFolder(sub) failed: %v", err)
	}
	leaf, err := h.CreateFolder(userID, "leaf", &sub.ID)
	if err != nil {
		t.Fatalf("CreateFolder(leaf) failed: %v", err)
	}
	return tree{
		root:     root,
		sub:      sub,
		leaf:     leaf,
		rootFile: mustUpload(t, h, blobs, userID, "root.txt", &root.ID, "root file"),
		subFile:  mustUpload(t, h, blobs, userID, "sub.txt", &sub.ID, "sub file"),
		leafFile: mustUpload(t, h, blobs, userID, "leaf.txt", &leaf.ID, "leaf file"),
		topFile:  mustUpload(t, h, blobs, userID, "top.txt", nil, "top file"),
	}
}

func trashState(t *testing.T, ts *TrashService, userID uint) (trashedFiles, trashedFolders int64) {
	t.Helper()
	if err := ts.db.Model(&models.File{}).
		Where("user_id = ? AND is_trashed = true", userID).Count(&trashedFiles).Error; err != nil {
		t.Fatalf("count trashed files: %v", err)
	}
	if err := ts.db.Model(&models.Folder{}).
		Where("user_id = ? AND is_trashed = true", userID).Count(&trashedFolders).Error; err != nil {
		t.Fatalf("count trashed folders: %v", err)
	}
	return
}

func TestTrashFolderCascadesWholeSubtree(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)
	tr := buildTree(t, h, blobs, userID)

	if err := ts.Trash(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Trash(root) failed: %v", err)
	}

	files, folders := trashState(t, ts, userID)
	if files != 3 || folders != 3 {
		t.Fatalf("trashed files=%d folders=%d, want 3/3", files, folders)
	}

	// The file outside the tree is untouched
	live, err := h.GetFile(userID, tr.topFile.ID)
	if err != nil || live.IsTrashed {
		t.Fatalf("top-level file affected by cascade: trashed=%v err=%v", live.IsTrashed, err)
	}

	// Quota unchanged: trash is not deletion
	want := int64(len("root file") + len("sub file") + len("leaf file") + len("top file"))
	if got := storageUsed(t, db, userID); got != want {
		t.Fatalf("storage_used = %d after trash, want %d", got, want)
	}
}

func TestTrashFreesNameForReuse(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "draft.txt", nil, "v1")
	if err := ts.Trash(userID, ItemFile, f.ID); err != nil {
		t.Fatalf("Trash failed: %v", err)
	}

	// A trashed file no longer occupies its name
	mustUpload(t, h, blobs, userID, "draft.txt", nil, "v2")

	// Restoring the original now collides at the storage layer
	if err := ts.Restore(userID, ItemFile, f.ID); err == nil {
		restored, gerr := h.GetFile(userID, f.ID)
		if gerr == nil && !restored.IsTrashed {
			t.Fatal("restore succeeded despite a live file with the same name")
		}
	}
}

func TestTrashAlreadyTrashed(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "once.txt", nil, "x")
	if err := ts.Trash(userID, ItemFile, f.ID); err != nil {
		t.Fatalf("Trash failed: %v", err)
	}
	if err := ts.Trash(userID, ItemFile, f.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound trashing a trashed file, got %v", err)
	}
	if err := ts.Trash(userID, "document", f.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for bad item type, got %v", err)
	}
}

func TestRestoreRequiresLiveParent(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)
	tr := buildTree(t, h, blobs, userID)

	if err := ts.Trash(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Trash(root) failed: %v", err)
	}

	// Children cannot come back before their parent
	if err := ts.Restore(userID, ItemFolder, tr.sub.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState restoring sub under trashed root, got %v", err)
	}
	if err := ts.Restore(userID, ItemFile, tr.subFile.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState restoring file under trashed folder, got %v", err)
	}

	// Restoring the top of the cascade revives everything
	if err := ts.Restore(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Restore(root) failed: %v", err)
	}
	files, folders := trashState(t, ts, userID)
	if files != 0 || folders != 0 {
		t.Fatalf("after restore: trashed files=%d folders=%d, want 0/0", files, folders)
	}

	// Round trip preserved names and parents
	sub, err := h.GetFolder(userID, tr.sub.ID)
	if err != nil {
		t.Fatalf("GetFolder(sub) failed: %v", err)
	}
	if sub.Name != "sub" || sub.ParentID == nil || *sub.ParentID != tr.root.ID {
		t.Fatalf("sub came back as %q under %v, want sub under root", sub.Name, sub.ParentID)
	}
	leafFile, err := h.GetFile(userID, tr.leafFile.ID)
	if err != nil {
		t.Fatalf("GetFile(leafFile) failed: %v", err)
	}
	if leafFile.FolderID == nil || *leafFile.FolderID != tr.leaf.ID {
		t.Fatal("leaf file lost its folder across the round trip")
	}
}

func TestRestoreIsCoarse(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)
	tr := buildTree(t, h, blobs, userID)

	// Trash a leaf file on its own, then the whole tree on top of it
	if err := ts.Trash(userID, ItemFile, tr.leafFile.ID); err != nil {
		t.Fatalf("Trash(leafFile) failed: %v", err)
	}
	if err := ts.Trash(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Trash(root) failed: %v", err)
	}

	// Restoring the tree revives the individually trashed file too
	if err := ts.Restore(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Restore(root) failed: %v", err)
	}
	got, err := h.GetFile(userID, tr.leafFile.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if got.IsTrashed {
		t.Fatal("individually trashed file stayed in trash after subtree restore")
	}
}

func TestPermanentDeleteRequiresTrashed(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "live.txt", nil, "x")
	if err := ts.PermanentDelete(userID, ItemFile, f.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound purging a live file, got %v", err)
	}
}

func TestPermanentDeleteFolderPurgesSubtree(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)
	tr := buildTree(t, h, blobs, userID)

	if err := ts.Trash(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Trash(root) failed: %v", err)
	}
	if err := ts.PermanentDelete(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("PermanentDelete(root) failed: %v", err)
	}

	var fileCount, folderCount int64
	db.Model(&models.File{}).Where("user_id = ?", userID).Count(&fileCount)
	db.Model(&models.Folder{}).Where("user_id = ?", userID).Count(&folderCount)
	if fileCount != 1 || folderCount != 0 {
		t.Fatalf("after purge: files=%d folders=%d, want 1/0 (only top.txt)", fileCount, folderCount)
	}

	// Only the untouched file still occupies quota and blob space
	if got := storageUsed(t, db, userID); got != int64(len("top file")) {
		t.Fatalf("storage_used = %d, want %d", got, len("top file"))
	}
	if !blobs.has(tr.topFile.FilePath) {
		t.Fatal("blob of the untouched file was deleted")
	}
	if blobs.has(tr.leafFile.FilePath) || blobs.has(tr.subFile.FilePath) || blobs.has(tr.rootFile.FilePath) {
		t.Fatal("purged blobs survived PermanentDelete")
	}
}

func TestEmptyTrash(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)
	tr := buildTree(t, h, blobs, userID)

	if err := ts.Trash(userID, ItemFolder, tr.root.ID); err != nil {
		t.Fatalf("Trash(root) failed: %v", err)
	}
	if err := ts.Trash(userID, ItemFile, tr.topFile.ID); err != nil {
		t.Fatalf("Trash(topFile) failed: %v", err)
	}

	result, err := ts.EmptyTrash(userID)
	if err != nil {
		t.Fatalf("EmptyTrash failed: %v", err)
	}
	if result.Files != 4 || result.Folders != 3 {
		t.Fatalf("EmptyTrash removed files=%d folders=%d, want 4/3", result.Files, result.Folders)
	}
	wantFreed := int64(len("root file") + len("sub file") + len("leaf file") + len("top file"))
	if result.BytesFreed != wantFreed {
		t.Fatalf("BytesFreed = %d, want %d", result.BytesFreed, wantFreed)
	}
	if got := storageUsed(t, db, userID); got != 0 {
		t.Fatalf("storage_used = %d after EmptyTrash, want 0", got)
	}
}

func TestEmptyTrashBlobFailureSkipsLedger(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)

	f := mustUpload(t, h, blobs, userID, "stuck.txt", nil, "payload")
	if err := ts.Trash(userID, ItemFile, f.ID); err != nil {
		t.Fatalf("Trash failed: %v", err)
	}

	blobs.failDel = true
	result, err := ts.EmptyTrash(userID)
	if err != nil {
		t.Fatalf("EmptyTrash failed: %v", err)
	}
	// The record goes, the ledger does not move for the stuck blob
	if result.Files != 1 || result.BytesFreed != 0 {
		t.Fatalf("result = %+v, want 1 file and 0 bytes freed", result)
	}
	if got := storageUsed(t, db, userID); got != int64(len("payload")) {
		t.Fatalf("storage_used = %d, want %d", got, len("payload"))
	}
}

func TestListTrash(t *testing.T) {
	db := newTestDB(t)
	blobs := newFakeBlobStore()
	h := NewHierarchyService(db, blobs)
	ts := NewTrashService(db, blobs)
	userID := createUser(t, db, 1<<30)
	tr := buildTree(t, h, blobs, userID)

	if err := ts.Trash(userID, ItemFolder, tr.sub.ID); err != nil {
		t.Fatalf("Trash(sub) failed: %v", err)
	}
	if err := ts.Trash(userID, ItemFile, tr.topFile.ID); err != nil {
		t.Fatalf("Trash(topFile) failed: %v", err)
	}

	listing, err := ts.ListTrash(userID, 1, 50)
	if err != nil {
		t.Fatalf("ListTrash failed: %v", err)
	}
	// sub cascade trashed sub+leaf folders and their two files, plus top.txt
	if listing.Total != 6 {
		t.Fatalf("Total = %d, want 6", listing.Total)
	}
	if len(listing.Files) != 3 || len(listing.Folders) != 2 {
		t.Fatalf("files=%d folders=%d, want 3/2", len(listing.Files), len(listing.Folders))
	}
}
