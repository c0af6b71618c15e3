// Package manifest models the per-note bookkeeping snapshot that the
// orchestrating layer persists alongside edit records.
//
// The engine treats most of the snapshot as caller-owned data: it only
// maintains the fields that must stay in sync with the edit-record
// table (path, per-version sizes and digests). Snapshots are immutable
// values: every mutation is a copy-on-write transform returning a new
// snapshot, never an in-place edit, so a failed transaction can simply
// drop its copy.
package manifest

import (
	"encoding/json"
	"fmt"
)

// Version is one named revision entry in a snapshot. ID matches the
// editId of the underlying edit record.
type Version struct {
	ID               string `json:"id"`
	Branch           string `json:"branch"`
	Name             string `json:"name,omitempty"`
	Description      string `json:"description,omitempty"`
	ContentHash      string `json:"contentHash,omitempty"`
	Size             int64  `json:"size"`
	UncompressedSize int64  `json:"uncompressedSize"`
	CreatedAt        int64  `json:"createdAt"`
}

// VersionMeta is the caller-supplied metadata update for a version.
// Each field is a three-state Option: absent keeps the stored value,
// null clears it, a string replaces it.
type VersionMeta struct {
	Name        Option[string] `json:"name,omitzero"`
	Description Option[string] `json:"description,omitzero"`
}

// Snapshot is the manifest payload for one note.
type Snapshot struct {
	NoteID   string    `json:"noteId"`
	Path     string    `json:"path,omitempty"`
	Versions []Version `json:"versions,omitempty"`
}

// Decode parses a snapshot from its stored JSON payload.
func Decode(payload []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode manifest: %w", err)
	}
	return s, nil
}

// Encode serializes a snapshot to its stored JSON payload.
func (s Snapshot) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// clone returns a deep copy so transforms never alias the receiver's
// version slice.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Versions = make([]Version, len(s.Versions))
	copy(out.Versions, s.Versions)
	return out
}

// WithPath returns a copy with the note path replaced.
func (s Snapshot) WithPath(path string) Snapshot {
	out := s.clone()
	out.Path = path
	return out
}

// WithNoteID returns a copy rekeyed to a different note. Used by note
// renames, where the manifest row moves with the history.
func (s Snapshot) WithNoteID(noteID string) Snapshot {
	out := s.clone()
	out.NoteID = noteID
	return out
}

// WithVersion returns a copy with v inserted, replacing any existing
// version with the same ID. Existing name/description are preserved
// when the replacement carries none (the engine refreshes sizes and
// digests without knowing about user-facing labels).
func (s Snapshot) WithVersion(v Version) Snapshot {
	out := s.clone()
	for i, existing := range out.Versions {
		if existing.ID == v.ID && existing.Branch == v.Branch {
			if v.Name == "" {
				v.Name = existing.Name
			}
			if v.Description == "" {
				v.Description = existing.Description
			}
			out.Versions[i] = v
			return out
		}
	}
	out.Versions = append(out.Versions, v)
	return out
}

// WithVersionMeta returns a copy with meta resolved onto the version
// with the given ID. Unknown IDs are a no-op copy.
func (s Snapshot) WithVersionMeta(id string, meta VersionMeta) Snapshot {
	out := s.clone()
	for i, v := range out.Versions {
		if v.ID != id {
			continue
		}
		v.Name = meta.Name.Apply(v.Name)
		v.Description = meta.Description.Apply(v.Description)
		out.Versions[i] = v
	}
	return out
}

// WithoutVersion returns a copy with the version for (branch, id)
// removed.
func (s Snapshot) WithoutVersion(branch, id string) Snapshot {
	out := s.clone()
	kept := out.Versions[:0]
	for _, v := range out.Versions {
		if v.ID == id && v.Branch == branch {
			continue
		}
		kept = append(kept, v)
	}
	out.Versions = kept
	return out
}

// WithVersionRenamed returns a copy with the version oldID rekeyed to
// newID across all branches.
func (s Snapshot) WithVersionRenamed(oldID, newID string) Snapshot {
	out := s.clone()
	for i, v := range out.Versions {
		if v.ID == oldID {
			v.ID = newID
			out.Versions[i] = v
		}
	}
	return out
}
