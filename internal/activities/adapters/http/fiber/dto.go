package fiber

type AccountPayload struct {
	ID        string `json:"id" example:"9a1b2c"`
	Host      string `json:"host,omitempty" example:"remote.example"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// RecordActivityRequest represents one backend activity
// @Description Activity ingest DTO
type RecordActivityRequest struct {
	ID        string         `json:"id" example:"act_01"`
	Kind      string         `json:"kind" example:"note.created"`
	Actor     AccountPayload `json:"actor"`
	Target    AccountPayload `json:"target"`
	NoteID    string         `json:"note_id"`
	ReplyID   string         `json:"reply_id"`
	RenoteID  string         `json:"renote_id"`
	HasFiles  bool           `json:"has_files"`
	FileID    string         `json:"file_id"`
	FileSize  int64          `json:"file_size"`
	Host      string         `json:"host"`
	Tag       string         `json:"tag"`
	ViewerKey string         `json:"viewer_key"`
	Visitor   bool           `json:"visitor"`
	Timestamp int64          `json:"timestamp"`
}

type RecordActivityResponse struct {
	Status string `json:"status"`
}

type BulkRecordActivitiesRequest struct {
	Activities []RecordActivityRequest `json:"activities"`
}

type BulkRecordActivitiesResponse struct {
	Recorded   int `json:"recorded"`
	Duplicates int `json:"duplicates"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_activity"`
	Message string `json:"message" example:"note.created requires note_id"`
}
