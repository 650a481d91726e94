package http

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	activityDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/domain"
	postDomain "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
	postService "github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/service"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := s.users.Login(req.Username, req.Password)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	s.logger.Info("User logged in", "username", session.Username)
	writeJSON(w, http.StatusOK, map[string]string{
		"token":    session.Token,
		"username": session.Username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)
	s.users.Logout(session.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	postID, err := postService.ExtractPostID(req.URL)
	if err != nil {
		http.Error(w, "Invalid URL: no post id found", http.StatusBadRequest)
		return
	}

	post, err := s.fetcher.Fetch(r.Context(), postID)
	if err != nil {
		s.logger.Error("Failed to fetch post", "post_id", postID, "error", err)
		http.Error(w, fetchFailureMessage(err), fetchFailureStatus(err))
		return
	}

	session := sessionFrom(r)
	if err := s.users.SetDraft(session.Token, post); err != nil {
		http.Error(w, "Session expired", http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// fetchFailureStatus maps distinguishable fetch failures onto response
// codes the operator UI can act on.
func fetchFailureStatus(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrPostNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests
	case stderrors.Is(err, errors.ErrInvalidPostID):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrFetchTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func fetchFailureMessage(err error) string {
	switch {
	case stderrors.Is(err, errors.ErrPostNotFound):
		return "Post not found: it may be deleted or private"
	case stderrors.Is(err, errors.ErrRateLimited):
		return "Source API rate limit reached, wait before retrying"
	case stderrors.Is(err, errors.ErrCredentialRejected):
		return "Source API credential rejected"
	case stderrors.Is(err, errors.ErrInsufficientScope):
		return "Source API credential lacks the required scope"
	case stderrors.Is(err, errors.ErrFetchTimeout):
		return "Source API request timed out"
	default:
		return "Failed to fetch post"
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel      string `json:"channel"`
		Text         string `json:"text"`
		ScheduleTime string `json:"schedule_time,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session := sessionFrom(r)

	draft, err := s.users.Draft(session.Token)
	if err != nil {
		http.Error(w, "Analyze a post first", http.StatusBadRequest)
		return
	}

	entry, err := s.channels.GetChannel(req.Channel)
	if err != nil {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	var when time.Time
	if req.ScheduleTime != "" {
		when, err = time.Parse(time.RFC3339, req.ScheduleTime)
		if err != nil {
			http.Error(w, "Invalid schedule_time, use RFC3339", http.StatusBadRequest)
			return
		}
	}

	text := req.Text
	if text == "" {
		text = draft.Text
	}
	if entry.Link != "" {
		text += fmt.Sprintf("\n\n🔗 <a href=\"%s\">Visit Channel</a>", entry.Link)
	}
	text = postDomain.TruncateText(text)

	media := s.downloader.DownloadBatch(r.Context(), draft.Media, draft.ID)

	content := postDomain.DeliveryContent{
		Text:         text,
		Media:        media,
		ChannelLabel: entry.Label,
	}

	delivered, messageID, err := s.scheduler.Schedule(r.Context(), entry.DestinationID, content, session.Username, when)
	if err != nil {
		s.logger.Error("Delivery failed", "channel", entry.Label, "error", err)
		http.Error(w, "Post failed, check bot permissions", http.StatusBadGateway)
		return
	}

	s.users.ClearDraft(session.Token)

	if delivered {
		if err := s.activity.Record(session.Username, entry.Label, activityDomain.ActionPosted, text, messageID); err != nil {
			s.logger.Error("Failed to record activity", "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "posted",
			"message_id": messageID,
		})
		return
	}

	if err := s.activity.Record(session.Username, entry.Label, activityDomain.ActionScheduled, text, 0); err != nil {
		s.logger.Error("Failed to record activity", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "scheduled",
		"schedule_time": when.Format(time.RFC3339),
	})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel   string `json:"channel"`
		MessageID int    `json:"message_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.channels.GetChannel(req.Channel)
	if err != nil {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	session := sessionFrom(r)

	deleted := s.delivery.DeletePost(r.Context(), entry.DestinationID, req.MessageID)
	if deleted {
		if err := s.activity.Record(session.Username, entry.Label, activityDomain.ActionDeleted, "", req.MessageID); err != nil {
			s.logger.Error("Failed to record activity", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleListScheduled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.ListScheduled())
}

func (s *Server) handleCancelScheduled(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "Invalid index", http.StatusBadRequest)
		return
	}

	switch err := s.scheduler.Cancel(index); {
	case stderrors.Is(err, errors.ErrScheduleNotFound):
		http.Error(w, "Scheduled post not found", http.StatusNotFound)
	case stderrors.Is(err, errors.ErrAlreadyPosted):
		http.Error(w, "Post already delivered", http.StatusConflict)
	case err != nil:
		http.Error(w, "Failed to cancel", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.channels.GetAllChannels()
	if err != nil {
		s.logger.Error("Failed to list channels", "error", err)
		http.Error(w, "Failed to list channels", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleSaveChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
		ID    string `json:"id"`
		Link  string `json:"link,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := s.channels.SaveChannel(req.Label, req.ID, req.Link)
	if err != nil {
		if stderrors.Is(err, errors.ErrChannelLabelEmpty) {
			http.Error(w, "Channel label cannot be empty", http.StatusBadRequest)
			return
		}
		s.logger.Error("Failed to save channel", "label", req.Label, "error", err)
		http.Error(w, "Failed to save channel", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")

	if err := s.channels.DeleteChannel(label); err != nil {
		if stderrors.Is(err, errors.ErrChannelNotFound) {
			http.Error(w, "Channel not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to delete channel", "label", label, "error", err)
		http.Error(w, "Failed to delete channel", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyChannel(w http.ResponseWriter, r *http.Request) {
	entry, err := s.channels.GetChannel(r.PathValue("label"))
	if err != nil {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}

	title, err := s.channels.VerifyDestination(r.Context(), entry.DestinationID)
	if err != nil {
		s.logger.Error("Channel verification failed", "label", entry.Label, "error", err)
		http.Error(w, "Verification failed: make sure the bot is an administrator of the channel", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"label": entry.Label,
		"title": title,
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	records, err := s.activity.Recent()
	if err != nil {
		s.logger.Error("Failed to load activity log", "error", err)
		http.Error(w, "Failed to load activity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
