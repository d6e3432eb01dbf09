package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/stacklok/jobtracker/internal/api/common"
	"github.com/stacklok/jobtracker/internal/remote"
)

// login answers with a bare token and profile rather than an envelope.
func (routes *Routes) login(w http.ResponseWriter, r *http.Request) {
	var creds remote.Credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	profile, err := routes.service.Authenticate(r.Context(), creds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	token, err := routes.issuer.Issue(profile.Email)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		common.WriteErrorResponse(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, remote.LoginResult{Token: token, User: *profile}, http.StatusOK)
}

func (routes *Routes) register(w http.ResponseWriter, r *http.Request) {
	var user remote.NewUser
	if !decodeBody(w, r, &user) {
		return
	}
	if err := routes.service.Register(r.Context(), user); err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, nil, "User created", http.StatusCreated)
}

// changePassword only lets users change their own password. An empty email
// defaults to the authenticated user.
func (routes *Routes) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	var change remote.PasswordChange
	if !decodeBody(w, r, &change) {
		return
	}
	if change.Email == "" {
		change.Email = user
	}
	if !strings.EqualFold(strings.TrimSpace(change.Email), user) {
		common.WriteErrorResponse(w, "Cannot change the password of another user", http.StatusForbidden)
		return
	}
	if err := routes.service.ChangePassword(r.Context(), change); err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, nil, "Password changed", http.StatusOK)
}
