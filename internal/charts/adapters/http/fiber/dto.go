package fiber

type ChartResponse struct {
	Chart  string             `json:"chart" example:"users"`
	Span   string             `json:"span" example:"hour"`
	Series map[string][]int64 `json:"series"`
}

type ResyncRequest struct {
	Charts []string `json:"charts" example:"users,notes"`
}

type ResyncResponse struct {
	Resynced []string          `json:"resynced"`
	Failed   map[string]string `json:"failed"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_query"`
	Message string `json:"message" example:"limit must be between 1 and 500"`
}
