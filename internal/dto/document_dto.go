package dto

type UploadPDFResponse struct {
	Message   string `json:"message"`
	Filename  string `json:"filename"`
	SessionId string `json:"session_id"`
	Chunks    int    `json:"chunks"`
}

type PDFStatusResponse struct {
	HasPDF    bool   `json:"has_pdf"`
	SessionId string `json:"session_id,omitempty"`
	Filename  string `json:"filename,omitempty"`
}

type HealthResponse struct {
	Ok   bool   `json:"ok"`
	Time string `json:"time"`
}
