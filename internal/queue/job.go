package queue

// ArchiveJob is what we push to Redis Streams. No image bytes here — the
// worker fetches the staged object by key and copies it into the archival
// folder hierarchy.
type ArchiveJob struct {
	ObjectKey   string `json:"object_key"`  // staging key the compressor wrote
	ArchiveKey  string `json:"archive_key"` // arkiv/{group}/{name}
	ContentType string `json:"content_type"`
}
