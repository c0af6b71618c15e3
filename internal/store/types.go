package store

// StorageType discriminates how an edit record's payload is encoded.
type StorageType string

const (
	// StorageFull marks a complete compressed snapshot of the content.
	StorageFull StorageType = "full"

	// StorageDiff marks a compressed patch against the previous record.
	StorageDiff StorageType = "diff"

	// StorageLegacy marks a row written before compression was
	// introduced. The payload is raw UTF-8; the empty marker is what
	// the read path keys the fallback decode on.
	StorageLegacy StorageType = ""
)

// EditRecord is one physical storage unit of a note's history.
// Identity is the (NoteID, Branch, EditID) triple.
type EditRecord struct {
	NoteID  string
	Branch  string
	EditID  string
	Storage StorageType

	// Content is the compressed payload: a full snapshot or a patch,
	// per Storage.
	Content []byte

	// ContentHash is the digest of the record's reconstructed,
	// uncompressed content. Empty on legacy rows.
	ContentHash string

	// BaseEditID is the nearest full-snapshot ancestor. Equals EditID
	// on full records.
	BaseEditID string

	// PreviousEditID is the immediate chain predecessor. Empty for a
	// full record that starts a chain.
	PreviousEditID string

	// ChainLength counts patch hops since the last full snapshot.
	ChainLength int

	// Seq is the store-wide logical sequence number. Head selection
	// and timeline ordering use Seq, never wall time.
	Seq int64

	CreatedAt        int64 // unix milliseconds, for display only
	Size             int64 // compressed bytes
	UncompressedSize int64
}

// ManifestRow is the persisted manifest snapshot for one note. The
// payload is caller-owned JSON; the store never inspects it.
type ManifestRow struct {
	NoteID    string
	Payload   []byte
	UpdatedAt int64
}

// Counts summarizes table sizes for database stats.
type Counts struct {
	EditCount     int64
	ManifestCount int64
}
