// Package vault keeps the ordered list of saved credentials and mirrors it
// to a single JSON blob on a filesystem.
//
// Every mutation rewrites the whole blob before returning. If a write fails
// the vault keeps working from memory for the rest of the session.
package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"

	"github.com/zarlcorp/core/pkg/zcrypto"
	"github.com/zarlcorp/core/pkg/zfilesystem"
)

const (
	// StorageKey names the blob holding every record.
	StorageKey = "passwords"

	blobFile    = StorageKey + ".json"
	corruptFile = StorageKey + ".corrupt.json"
)

// sentinel errors
var (
	ErrNotFound           = errors.New("record not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrEmptyLogin         = errors.New("login is required")
	ErrEmptyPassword      = errors.New("password is required")
)

// ValidationError reports a record field that failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Record is one saved login/password/url triple.
type Record struct {
	ID       string `json:"id,omitempty"`
	Login    string `json:"login"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

// Validate trims the record fields and checks the required ones.
func (r Record) Validate() (Record, error) {
	r.Login = strings.TrimSpace(r.Login)
	r.Password = strings.TrimSpace(r.Password)
	r.URL = strings.TrimSpace(r.URL)

	if r.Login == "" {
		return r, &ValidationError{Field: "login", Err: ErrEmptyLogin}
	}
	if r.Password == "" {
		return r, &ValidationError{Field: "password", Err: ErrEmptyPassword}
	}
	return r, nil
}

// Read parses the blob in fsys without side effects. A missing blob is an
// empty list; unreadable or corrupt blobs are errors.
func Read(fsys zfilesystem.ReadWriteFileFS) ([]Record, error) {
	data, err := fsys.ReadFile(blobFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read vault: %w: %w", ErrStorageUnavailable, err)
	}
	records, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("read vault: %w", err)
	}
	return records, nil
}

func decode(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = legacyID(i, records[i])
		}
	}
	return records, nil
}

// legacyID derives an id for a record stored without one. It depends only on
// the record's position and content, so every process reading the same blob
// agrees on it until the next write stores it.
func legacyID(i int, r Record) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%s\x00%s\x00%s", i, r.Login, r.Password, r.URL)
	return hex.EncodeToString(h.Sum(nil)[:4])
}

// Vault holds records in insertion order.
type Vault struct {
	fs       zfilesystem.ReadWriteFileFS
	records  []Record
	degraded bool
	corrupt  bool
}

// Open loads the vault from fsys. It never fails: a missing blob is an empty
// vault, an unreadable one puts the vault in memory-only mode, and a corrupt
// one is set aside and treated as empty.
func Open(fsys zfilesystem.ReadWriteFileFS) *Vault {
	v := &Vault{fs: fsys}
	v.Load()
	return v
}

// Load replaces the in-memory records with the persisted blob.
func (v *Vault) Load() {
	v.records = nil
	v.corrupt = false

	data, err := v.fs.ReadFile(blobFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("vault unreadable, using memory only", "err", err)
			v.degraded = true
		}
		return
	}

	records, err := decode(data)
	if err != nil {
		slog.Warn("vault corrupt, starting empty", "err", err, "backup", corruptFile)
		v.corrupt = true
		if werr := v.fs.WriteFile(corruptFile, data, 0o600); werr != nil {
			slog.Warn("vault backup", "err", werr)
		}
		return
	}

	v.records = records
}

// Degraded reports whether the vault has fallen back to memory only.
func (v *Vault) Degraded() bool { return v.degraded }

// Corrupt reports whether the last load found an unparseable blob.
func (v *Vault) Corrupt() bool { return v.corrupt }

// Len returns the number of records.
func (v *Vault) Len() int { return len(v.records) }

// List returns a copy of all records in insertion order.
func (v *Vault) List() []Record {
	return slices.Clone(v.records)
}

// At returns the record at index i.
func (v *Vault) At(i int) (Record, error) {
	if i < 0 || i >= len(v.records) {
		return Record{}, ErrNotFound
	}
	return v.records[i], nil
}

// Get returns the record with the given id.
func (v *Vault) Get(id string) (Record, error) {
	i := v.Index(id)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	return v.records[i], nil
}

// Index returns the position of id, or -1.
func (v *Vault) Index(id string) int {
	return slices.IndexFunc(v.records, func(r Record) bool { return r.ID == id })
}

// Add validates r, appends it and persists. The stored record is returned
// with its assigned id.
func (v *Vault) Add(r Record) (Record, error) {
	r, err := r.Validate()
	if err != nil {
		return Record{}, fmt.Errorf("add record: %w", err)
	}

	r.ID = newID()
	v.records = append(v.records, r)
	return r, v.persist()
}

// Update replaces the record with the given id.
func (v *Vault) Update(id string, r Record) error {
	i := v.Index(id)
	if i < 0 {
		return fmt.Errorf("update record %s: %w", id, ErrNotFound)
	}
	return v.UpdateAt(i, r)
}

// UpdateAt replaces the record at index i, keeping its id.
func (v *Vault) UpdateAt(i int, r Record) error {
	if i < 0 || i >= len(v.records) {
		return fmt.Errorf("update record #%d: %w", i+1, ErrNotFound)
	}

	r, err := r.Validate()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	r.ID = v.records[i].ID
	v.records[i] = r
	return v.persist()
}

// Remove deletes the record with the given id.
func (v *Vault) Remove(id string) error {
	i := v.Index(id)
	if i < 0 {
		return fmt.Errorf("remove record %s: %w", id, ErrNotFound)
	}
	return v.RemoveAt(i)
}

// RemoveAt deletes the record at index i. Later records shift down by one.
func (v *Vault) RemoveAt(i int) error {
	if i < 0 || i >= len(v.records) {
		return fmt.Errorf("remove record #%d: %w", i+1, ErrNotFound)
	}

	v.records = slices.Delete(v.records, i, i+1)
	return v.persist()
}

// persist rewrites the whole blob. After the first failed write the vault
// stops writing for the session and every later mutation reports
// ErrStorageUnavailable while still applying in memory.
func (v *Vault) persist() error {
	if v.degraded {
		return fmt.Errorf("persist: %w", ErrStorageUnavailable)
	}

	records := v.records
	if records == nil {
		records = []Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("persist: marshal: %w", err)
	}

	if err := v.fs.WriteFile(blobFile, data, 0o600); err != nil {
		v.degraded = true
		slog.Error("vault write failed, continuing in memory", "err", err)
		return fmt.Errorf("persist: %w: %w", ErrStorageUnavailable, err)
	}

	return nil
}

// newID returns an 8-character hex id.
func newID() string {
	b, err := zcrypto.RandBytes(4)
	if err != nil {
		// crypto/rand failure is unrecoverable
		panic("vault id: " + err.Error())
	}
	return hex.EncodeToString(b)
}
