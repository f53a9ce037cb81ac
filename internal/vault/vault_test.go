package vault

import (
	"encoding/json"
	"errors"
	"io/fs"
	"testing"

	"github.com/zarlcorp/core/pkg/zfilesystem"
)

// failingFS accepts reads but rejects every write.
type failingFS struct {
	*zfilesystem.MemFS
}

func (failingFS) WriteFile(string, []byte, fs.FileMode) error {
	return errors.New("disk full")
}

func testRecord(login string) Record {
	return Record{Login: login, Password: "hunter2", URL: "example.com"}
}

func openTestVault(t *testing.T) (*Vault, *zfilesystem.MemFS) {
	t.Helper()
	fsys := zfilesystem.NewMemFS()
	return Open(fsys), fsys
}

func TestOpenEmpty(t *testing.T) {
	v, _ := openTestVault(t)
	if v.Len() != 0 {
		t.Errorf("len = %d, want 0", v.Len())
	}
	if v.Degraded() || v.Corrupt() {
		t.Error("fresh vault should be healthy")
	}
}

func TestAddThenReload(t *testing.T) {
	v, fsys := openTestVault(t)

	if _, err := v.Add(testRecord("first")); err != nil {
		t.Fatal(err)
	}
	added, err := v.Add(testRecord("second"))
	if err != nil {
		t.Fatal(err)
	}

	reloaded := Open(fsys)
	if reloaded.Len() != 2 {
		t.Fatalf("len = %d, want 2", reloaded.Len())
	}
	last, _ := reloaded.At(1)
	if last != added {
		t.Errorf("last = %+v, want %+v", last, added)
	}
}

func TestAddAssignsID(t *testing.T) {
	v, _ := openTestVault(t)
	r, err := v.Add(testRecord("a"))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.ID) != 8 {
		t.Errorf("id = %q, want 8 hex chars", r.ID)
	}
}

func TestAddValidation(t *testing.T) {
	v, fsys := openTestVault(t)

	_, err := v.Add(Record{Login: "   ", Password: "x"})
	if !errors.Is(err, ErrEmptyLogin) {
		t.Errorf("err = %v, want ErrEmptyLogin", err)
	}

	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "login" {
		t.Errorf("err = %v, want ValidationError on login", err)
	}

	_, err = v.Add(Record{Login: "a", Password: ""})
	if !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("err = %v, want ErrEmptyPassword", err)
	}

	if v.Len() != 0 {
		t.Error("invalid records must not be stored")
	}
	if _, err := fsys.ReadFile(blobFile); err == nil {
		t.Error("invalid records must not be persisted")
	}
}

func TestAddTrimsFields(t *testing.T) {
	v, _ := openTestVault(t)
	r, err := v.Add(Record{Login: "  bob ", Password: " pw ", URL: " x.io "})
	if err != nil {
		t.Fatal(err)
	}
	if r.Login != "bob" || r.Password != "pw" || r.URL != "x.io" {
		t.Errorf("fields not trimmed: %+v", r)
	}
}

func TestUpdateThenView(t *testing.T) {
	v, fsys := openTestVault(t)
	orig, _ := v.Add(testRecord("a"))
	v.Add(testRecord("b"))

	want := Record{Login: "alice", Password: "n3w", URL: ""}
	if err := v.UpdateAt(0, want); err != nil {
		t.Fatal(err)
	}

	got, _ := v.At(0)
	want.ID = orig.ID
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	reloaded := Open(fsys)
	got, _ = reloaded.At(0)
	if got != want {
		t.Errorf("after reload got %+v, want %+v", got, want)
	}
}

func TestUpdateByID(t *testing.T) {
	v, _ := openTestVault(t)
	v.Add(testRecord("a"))
	b, _ := v.Add(testRecord("b"))

	if err := v.Update(b.ID, Record{Login: "bee", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	got, err := v.Get(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Login != "bee" {
		t.Errorf("login = %q, want bee", got.Login)
	}
}

func TestUpdateValidation(t *testing.T) {
	v, _ := openTestVault(t)
	r, _ := v.Add(testRecord("a"))

	err := v.Update(r.ID, Record{Login: "a", Password: "  "})
	if !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("err = %v, want ErrEmptyPassword", err)
	}

	got, _ := v.Get(r.ID)
	if got != r {
		t.Error("failed update must not mutate")
	}
}

func TestUpdateNotFound(t *testing.T) {
	v, _ := openTestVault(t)
	if err := v.UpdateAt(3, testRecord("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := v.Update("nope", testRecord("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRemoveShiftsIndices(t *testing.T) {
	v, fsys := openTestVault(t)
	v.Add(testRecord("a"))
	v.Add(testRecord("b"))
	c, _ := v.Add(testRecord("c"))

	if err := v.RemoveAt(1); err != nil {
		t.Fatal(err)
	}

	if v.Len() != 2 {
		t.Fatalf("len = %d, want 2", v.Len())
	}
	got, _ := v.At(1)
	if got != c {
		t.Errorf("index 1 = %+v, want %+v", got, c)
	}

	reloaded := Open(fsys)
	if reloaded.Len() != 2 {
		t.Errorf("reloaded len = %d, want 2", reloaded.Len())
	}
}

func TestRemoveByID(t *testing.T) {
	v, _ := openTestVault(t)
	a, _ := v.Add(testRecord("a"))

	if err := v.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if err := v.Remove(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove err = %v, want ErrNotFound", err)
	}
}

func TestPersistWritesEmptyArray(t *testing.T) {
	v, fsys := openTestVault(t)
	a, _ := v.Add(testRecord("a"))
	v.Remove(a.ID)

	data, err := fsys.ReadFile(blobFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("blob = %s, want []", data)
	}
}

func TestLoadCorruptBlob(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	if err := fsys.WriteFile(blobFile, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := Open(fsys)
	if v.Len() != 0 {
		t.Errorf("len = %d, want 0", v.Len())
	}
	if !v.Corrupt() {
		t.Error("vault should report corrupt")
	}

	backup, err := fsys.ReadFile(corruptFile)
	if err != nil {
		t.Fatal("corrupt blob should be backed up")
	}
	if string(backup) != "{not json" {
		t.Errorf("backup = %q", backup)
	}
}

func TestLoadLegacyBlobAssignsIDs(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	legacy := `[{"login":"a","password":"p","url":""},{"login":"b","password":"q","url":"b.io"}]`
	if err := fsys.WriteFile(blobFile, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	v := Open(fsys)
	if v.Len() != 2 {
		t.Fatalf("len = %d, want 2", v.Len())
	}
	for _, r := range v.List() {
		if r.ID == "" {
			t.Errorf("record %q has no id", r.Login)
		}
	}
}

func TestLegacyIDsStableAcrossOpens(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	legacy := `[{"login":"a","password":"p","url":""},{"login":"a","password":"p","url":""}]`
	if err := fsys.WriteFile(blobFile, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	first := Open(fsys).List()
	second := Open(fsys).List()
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("record %d: id %q then %q", i, first[i].ID, second[i].ID)
		}
	}
	if first[0].ID == first[1].ID {
		t.Error("identical records at different positions need distinct ids")
	}

	// an id from one process resolves in the next
	if err := Open(fsys).Remove(first[1].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	left := Open(fsys).List()
	if len(left) != 1 || left[0].ID != first[0].ID {
		t.Errorf("left = %+v, want only %s", left, first[0].ID)
	}
}

// unreadableFS fails every read with something other than not-exist.
type unreadableFS struct {
	*zfilesystem.MemFS
}

func (unreadableFS) ReadFile(string) ([]byte, error) {
	return nil, fs.ErrPermission
}

func TestUnreadableBlobRejectsWrites(t *testing.T) {
	fsys := unreadableFS{zfilesystem.NewMemFS()}
	v := Open(fsys)
	if !v.Degraded() {
		t.Fatal("unreadable blob should degrade the vault")
	}

	_, err := v.Add(testRecord("a"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := fsys.MemFS.ReadFile(blobFile); !errors.Is(err, fs.ErrNotExist) {
		t.Error("degraded vault must not overwrite the blob it could not read")
	}
}

func TestRead(t *testing.T) {
	v, fsys := openTestVault(t)

	got, err := Read(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}

	added, _ := v.Add(testRecord("a"))
	got, err = Read(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != added {
		t.Errorf("got %+v, want [%+v]", got, added)
	}
}

func TestReadCorruptHasNoSideEffects(t *testing.T) {
	fsys := zfilesystem.NewMemFS()
	if err := fsys.WriteFile(blobFile, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Read(fsys); err == nil {
		t.Error("corrupt blob should be an error")
	}
	if _, err := fsys.ReadFile(corruptFile); !errors.Is(err, fs.ErrNotExist) {
		t.Error("Read must not write a backup")
	}
}

func TestReadUnreadable(t *testing.T) {
	_, err := Read(unreadableFS{zfilesystem.NewMemFS()})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestWireFormat(t *testing.T) {
	v, fsys := openTestVault(t)
	v.Add(Record{Login: "a", Password: "p", URL: "u"})

	data, _ := fsys.ReadFile(blobFile)
	var raw []map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"login", "password", "url"} {
		if _, ok := raw[0][k]; !ok {
			t.Errorf("blob missing %q: %s", k, data)
		}
	}
}

func TestWriteFailureDegrades(t *testing.T) {
	v := Open(failingFS{zfilesystem.NewMemFS()})

	_, err := v.Add(testRecord("a"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if !v.Degraded() {
		t.Error("vault should be degraded")
	}
	if v.Len() != 1 {
		t.Error("record should be kept in memory")
	}

	// memory-only from now on, and every write says so
	if _, err := v.Add(testRecord("b")); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("degraded add err = %v, want ErrStorageUnavailable", err)
	}
	if v.Len() != 2 {
		t.Errorf("len = %d, want 2", v.Len())
	}
}

func TestListIsCopy(t *testing.T) {
	v, _ := openTestVault(t)
	v.Add(testRecord("a"))

	list := v.List()
	list[0].Login = "changed"

	got, _ := v.At(0)
	if got.Login != "a" {
		t.Error("List must not expose internal slice")
	}
}
