package api

import (
	"net/http"

	"github.com/shelfmarkapp/shelfmark-server/internal/dto"
	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
)

// authPayload is the wire shape of a successful auth call: the sanitized
// user plus the token pair.
type authPayload struct {
	User *dto.User `json:"user"`
	service.SessionResponse
}

func newAuthPayload(resp *service.AuthResponse) authPayload {
	return authPayload{
		User:            dto.NewUser(resp.User),
		SessionResponse: resp.SessionResponse,
	}
}

// handleRegister creates a new account and logs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, newAuthPayload(resp), s.logger)
}

// handleLogin authenticates a user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, newAuthPayload(resp), s.logger)
}

// handleRefresh rotates a refresh token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.RefreshTokens(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, newAuthPayload(resp), s.logger)
}

// handleLogout revokes the session behind a refresh token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleGetCurrentUser returns the authenticated user's profile.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), getUserID(r.Context()))
	if err != nil {
		response.Unauthorized(w, "User no longer exists", s.logger)
		return
	}

	response.Success(w, dto.NewUser(user), s.logger)
}
