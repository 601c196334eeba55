package http

import (
	"net/http"

	"tazzio/internal/core"
	"tazzio/internal/log"
	"tazzio/internal/session"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type signInResponse struct {
	Token    string        `json:"token"`
	Identity core.Identity `json:"identity"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	// Sign-up never creates a session, so a throwaway manager is enough.
	m := session.NewManager(s.registry.remote, s.logger)
	id, err := m.SignUp(r.Context(), sanitizeInput(req.Email), req.Password, sanitizeInput(req.DisplayName))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(id).Write(w)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	token, id, err := s.registry.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	NewJSONResponse().Body(signInResponse{Token: token, Identity: id}).Write(w)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	if err := s.registry.SignOut(r.Context(), ws); err != nil {
		// The local session is gone either way.
		log.FromContext(r.Context()).WarnContext(r.Context(), "Remote sign out failed", log.FieldError, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

// handlePasswordReset always answers 202 for well-formed addresses so the
// endpoint cannot be used to probe for accounts.
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	m := session.NewManager(s.registry.remote, s.logger)
	if err := m.RequestPasswordReset(r.Context(), sanitizeInput(req.Email)); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type passwordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	m := session.NewManager(s.registry.remote, s.logger)
	if err := m.ConfirmPasswordReset(r.Context(), sanitizeInput(req.Token), req.Password); err != nil {
		writeError(w, r, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleChangeEmail(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req changeEmailRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	if err := ws.session.UpdateEmail(r.Context(), sanitizeInput(req.Email)); err != nil {
		writeError(w, r, err, ws.budget.Translate)
		return
	}
	id, _ := ws.session.Current()
	NewJSONResponse().Body(id).Write(w)
}

type changePasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, ws *Workspace) {
	var req changePasswordRequest
	if !decodeOrFail(w, r, &req) {
		return
	}
	if err := ws.session.UpdatePassword(r.Context(), req.Password); err != nil {
		writeError(w, r, err, ws.budget.Translate)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
