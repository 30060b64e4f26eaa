package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gateway/internal/domain"
	"gateway/internal/quota"
	"gateway/internal/storage"
)

// multipartOverhead is headroom for form boundaries and headers on top of the
// file size limit.
const multipartOverhead = 1 << 20

type uploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

// UploadProfilePic stages the "profilePic" form file, draws one profile change
// and pins the file to IPFS.
func (a *App) UploadProfilePic(w http.ResponseWriter, r *http.Request) {
	if a.Pinner == nil || a.Uploads == nil {
		a.error(w, r, http.StatusServiceUnavailable, "unavailable", msgServiceUnavailable)
		return
	}
	log := a.requestLogger(r)
	if a.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("profilePic")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, r, http.StatusRequestEntityTooLarge, "too_large", msgFileTooLarge)
			return
		}
		a.error(w, r, http.StatusBadRequest, "bad_request", msgNoFile)
		return
	}
	defer file.Close()

	staged, err := a.Uploads.Stage(r.Context(), header.Filename, file, a.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			a.error(w, r, http.StatusRequestEntityTooLarge, "too_large", msgFileTooLarge)
			return
		}
		log.Error().Err(err).Msg("stage upload failed")
		a.error(w, r, http.StatusInternalServerError, "internal", msgUploadFailed)
		return
	}
	defer func() {
		if err := a.Uploads.Remove(staged.Key); err != nil {
			log.Warn().Err(err).Str("key", staged.Key).Msg("remove staged upload failed")
		}
	}()

	if !a.consume(w, r, quota.ActionProfileChange) {
		return
	}

	src, err := a.Uploads.Open(staged.Key)
	if err != nil {
		log.Error().Err(err).Msg("open staged upload failed")
		a.error(w, r, http.StatusInternalServerError, "internal", msgUploadFailed)
		return
	}
	defer src.Close()

	ctx, cancel := a.upstreamContext(r.Context())
	defer cancel()
	pin, err := a.Pinner.PinFile(ctx, header.Filename, src)
	if err != nil {
		log.Error().Err(err).Msg("pin upload failed")
		a.error(w, r, http.StatusBadGateway, "upstream_failed", msgUploadFailed)
		return
	}
	log.Info().Str("hash", pin.Hash).Int64("size", staged.Size).Msg("profile picture pinned")
	a.json(w, http.StatusOK, uploadResponse{ImageURL: a.Pinner.GatewayURL(pin.Hash)})
}

type updateNameRequest struct {
	UID     string `json:"uid"`
	NewName string `json:"newName"`
}

type updateNameResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	NewName string `json:"newName"`
}

// UpdateProfileName renames the caller after drawing one profile change.
func (a *App) UpdateProfileName(w http.ResponseWriter, r *http.Request) {
	var req updateNameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgInvalidPayload)
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	req.NewName = strings.TrimSpace(req.NewName)
	if req.UID == "" || req.NewName == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgMissingNameFields)
		return
	}
	if req.UID != a.currentUserID(r) {
		a.error(w, r, http.StatusForbidden, "forbidden", msgForeignProfile)
		return
	}
	if !a.consume(w, r, quota.ActionProfileChange) {
		return
	}

	log := a.requestLogger(r)
	if err := a.Profiles.UpdateDisplayName(r.Context(), req.UID, req.NewName, a.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, r, http.StatusNotFound, "not_found", msgUserNotFound)
			return
		}
		log.Error().Err(err).Msg("update profile name failed")
		a.error(w, r, http.StatusInternalServerError, "internal", msgProfileFailed)
		return
	}
	log.Info().Str("new_name", req.NewName).Msg("profile name updated")
	a.json(w, http.StatusOK, updateNameResponse{
		Success: true,
		Message: translate(r.Context(), msgProfileUpdated),
		NewName: req.NewName,
	})
}
