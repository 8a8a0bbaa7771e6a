package backup

// EnumerateResult carries either the tables of a database or the reason they
// could not be listed. Tables is never nil.
type EnumerateResult struct {
	Database string
	Tables   []string
	Err      error
}

func (r EnumerateResult) OK() bool { return r.Err == nil }

// DumpResult holds the absolute artifact path on success.
type DumpResult struct {
	Database string
	Table    string
	Path     string
	Err      error
}

func (r DumpResult) OK() bool { return r.Err == nil }

// UploadResult records the stored object size as reported by the backend.
type UploadResult struct {
	Path     string
	Key      string
	Location string
	Size     int64
	Err      error
}

func (r UploadResult) OK() bool { return r.Err == nil }
