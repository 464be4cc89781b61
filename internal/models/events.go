package models

// DocumentEdited is published after a batched mutation of a script document.
type DocumentEdited struct {
	EventType string   `json:"eventType"`
	ScriptID  int64    `json:"scriptId"`
	Version   uint64   `json:"version"`
	Source    string   `json:"source"`
	BlockIDs  []string `json:"blockIds,omitempty"`
	Skipped   int      `json:"skipped,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// DocumentSaved is published after a script document is persisted.
type DocumentSaved struct {
	EventType   string `json:"eventType"`
	ScriptID    int64  `json:"scriptId"`
	Version     uint64 `json:"version"`
	BlockCount  int    `json:"blockCount"`
	Fingerprint string `json:"fingerprint"`
	Timestamp   int64  `json:"timestamp"`
}

const (
	EventDocumentEdited = "script.document.edited"
	EventDocumentSaved  = "script.document.saved"
)
