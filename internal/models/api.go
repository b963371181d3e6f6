package models

// Wire types of the two adapter endpoints.

type TranscribeRequest struct {
	Audio    string `json:"audio"` // base64 or data: URL
	MIMEType string `json:"mime_type,omitempty"`
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

type ExtractRequest struct {
	Text string `json:"text"`
}

type ExtractResponse struct {
	Tasks []TaskRecord `json:"tasks"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
