package handlers

import (
	"net/http"
)

// Voice clips come in as multipart uploads. 15 MB is generous for a widget
// recording.
const maxAudioUpload = 15 << 20

type transcribeResponse struct {
	FileURL string `json:"file_url"`
	Text    string `json:"text"`
}

func (a *App) AudioTranscribe(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == 0 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "multipart form required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "file field required")
		return
	}
	defer file.Close()

	fileURL, err := a.Speech.Upload(r.Context(), header.Filename, file)
	if err != nil {
		a.Logger.Error().Err(err).Int64("user_id", userID).Msg("audio upload failed")
		a.error(w, http.StatusBadGateway, "upload_failed", "failed to upload audio")
		return
	}
	text, err := a.Speech.Transcribe(r.Context(), fileURL)
	if err != nil {
		a.Logger.Error().Err(err).Str("file_url", fileURL).Msg("transcription failed")
		a.error(w, http.StatusBadGateway, "transcription_failed", "failed to transcribe audio")
		return
	}
	a.json(w, http.StatusOK, transcribeResponse{FileURL: fileURL, Text: text})
}
