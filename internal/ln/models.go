// Package ln defines the shared light-novel domain model: the metadata and
// parsed-content records produced by the import pipeline, and the progress
// and highlight records that external collaborators (reader, sync service)
// key against the pipeline's block identifiers.
//
// JSON field names are camelCase because these records cross the wire to the
// web frontend and the sync backend unchanged.
package ln

// BlockIndexMap is a stable, offset-addressable span of a chapter's clean
// text. BlockID is reproducible across re-parses of unchanged content
// ("ch{chapterIndex}-b{ordinal}"), and StartOffset/EndOffset are
// chapter-local clean-character offsets.
type BlockIndexMap struct {
	BlockID     string `json:"blockId"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

// BookStats holds per-chapter and total clean character counts plus the flat
// cross-chapter block index. TotalLength always equals the sum of
// ChapterLengths, and BlockMaps is the concatenation of every chapter's
// blocks in chapter order then ordinal order.
type BookStats struct {
	ChapterLengths []int           `json:"chapterLengths"`
	TotalLength    int             `json:"totalLength"`
	BlockMaps      []BlockIndexMap `json:"blockMaps,omitempty"`
}

// TocItem is a table-of-contents entry resolved to a spine position.
type TocItem struct {
	Label        string `json:"label"`
	Href         string `json:"href"`
	ChapterIndex int    `json:"chapterIndex"`
}

// LNMetadata is the identity and descriptive record for an imported book.
// The pipeline creates it once per successful parse; the processing, sync,
// and category fields are mutated only by external collaborators afterwards.
type LNMetadata struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`

	// Cover is a data-URI JPEG thumbnail, empty when no cover was found.
	Cover   string `json:"cover,omitempty"`
	AddedAt int64  `json:"addedAt"`

	IsProcessing bool   `json:"isProcessing,omitempty"`
	IsError      bool   `json:"isError,omitempty"`
	ErrorMsg     string `json:"errorMsg,omitempty"`

	Stats        BookStats `json:"stats"`
	ChapterCount int       `json:"chapterCount"`
	Toc          []TocItem `json:"toc"`

	HasProgress  bool     `json:"hasProgress,omitempty"`
	LastModified int64    `json:"lastModified,omitempty"`
	SyncVersion  int      `json:"syncVersion,omitempty"`
	Language     string   `json:"language,omitempty"`
	CategoryIDs  []string `json:"categoryIds,omitempty"`
}

// LNParsedBook is the heavy content payload. Chapters and ChapterFilenames
// are parallel slices sharing the chapter index space. ImageBlobs maps each
// extracted image's path variants (plain, leading-slash, slash-stripped) to
// the same data-URI string.
type LNParsedBook struct {
	Chapters         []string          `json:"chapters"`
	ImageBlobs       map[string]string `json:"imageBlobs"`
	ChapterFilenames []string          `json:"chapterFilenames"`
}

// LNHighlight is a highlight anchored to a block id and clean-character
// offsets within that block. Produced and stored by the reader, carried here
// because it shares the block addressing scheme.
type LNHighlight struct {
	ID           string `json:"id"`
	ChapterIndex int    `json:"chapterIndex"`
	BlockID      string `json:"blockId"`
	Text         string `json:"text"`
	StartOffset  int    `json:"startOffset"`
	EndOffset    int    `json:"endOffset"`
	CreatedAt    int64  `json:"createdAt"`
}

// LNProgress is a reading position resolved against the pipeline's block
// ids. The sync service compares instances with the predicates below when
// merging positions from multiple devices.
type LNProgress struct {
	ChapterIndex      int     `json:"chapterIndex"`
	PageNumber        int     `json:"pageNumber,omitempty"`
	ChapterCharOffset int     `json:"chapterCharOffset"`
	TotalCharsRead    int     `json:"totalCharsRead"`
	SentenceText      string  `json:"sentenceText"`
	ChapterProgress   float64 `json:"chapterProgress"`
	TotalProgress     float64 `json:"totalProgress"`

	BlockID          string `json:"blockId,omitempty"`
	BlockLocalOffset int    `json:"blockLocalOffset,omitempty"`
	ContextSnippet   string `json:"contextSnippet,omitempty"`

	LastRead     int64  `json:"lastRead,omitempty"`
	LastModified int64  `json:"lastModified,omitempty"`
	SyncVersion  int    `json:"syncVersion,omitempty"`
	DeviceID     string `json:"deviceId,omitempty"`

	Highlights []LNHighlight `json:"highlights,omitempty"`
}

// IsFurtherThan reports whether p represents a later reading position.
func (p *LNProgress) IsFurtherThan(other *LNProgress) bool {
	return p.TotalProgress > other.TotalProgress
}

// IsNewerThan reports whether p was modified more recently. A zero
// LastModified is treated as older than any set timestamp.
func (p *LNProgress) IsNewerThan(other *LNProgress) bool {
	return p.LastModified > other.LastModified
}

// HasHigherVersion reports whether p carries a higher sync version.
func (p *LNProgress) HasHigherVersion(other *LNProgress) bool {
	return p.SyncVersion > other.SyncVersion
}
