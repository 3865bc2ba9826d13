package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

type tokenRequest struct {
	Code string `json:"code"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// tokenHandler exchanges an authorization code plus the server-held client
// credentials for an access token with the identity provider. Provider
// failures are relayed back status-preserving; nothing here touches room or
// game state.
func (s *Server) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if s.cfg.DiscordClientID == "" || s.cfg.DiscordClientSecret == "" {
		log.Error().Msg("token exchange requested without client credentials configured")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "missing client credentials",
		})
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "missing authorization code",
		})
		return
	}

	form := url.Values{
		"client_id":     {s.cfg.DiscordClientID},
		"client_secret": {s.cfg.DiscordClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {req.Code},
	}

	resp, err := s.httpClient.PostForm(s.cfg.TokenURL, form)
	if err != nil {
		log.Error().Err(err).Msg("token exchange request failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "token exchange failed",
		})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "token exchange failed",
		})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		writeJSON(w, resp.StatusCode, map[string]string{
			"error":   "token exchange failed",
			"details": string(body),
		})
		return
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "token exchange failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token.AccessToken,
	})
}
